package crm

import (
	"context"
	"encoding/json"
	"fmt"
)

// ListDeals returns the first page of deals, newest first.
func (c *Client) ListDeals(ctx context.Context) ([]Deal, error) {
	var deals []Deal

	_, err := c.Call(ctx, "crm.deal.list", map[string]interface{}{
		"select": dealSelect,
		"filter": map[string]interface{}{},
		"order":  map[string]string{"DATE_CREATE": "DESC"},
	}, &deals)
	if err != nil {
		return nil, err
	}

	return deals, nil
}

func (c *Client) GetDeal(ctx context.Context, id string) (Deal, error) {
	var deal Deal

	_, err := c.Call(ctx, "crm.deal.get", map[string]interface{}{"id": id}, &deal)
	if err != nil {
		return Deal{}, err
	}

	return deal, nil
}

// UpdateDeal sets the given fields on a deal. Bitrix24 answers with a bare boolean.
func (c *Client) UpdateDeal(ctx context.Context, id string, fields map[string]interface{}) error {
	var ok bool

	_, err := c.Call(ctx, "crm.deal.update", map[string]interface{}{
		"id":     id,
		"fields": fields,
	}, &ok)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("crm crm.deal.update: deal %s was not updated", id)
	}

	return nil
}

type dealField struct {
	Items []StageItem `json:"items"`
}

type statusItem struct {
	StatusID string `json:"STATUS_ID"`
	Name     string `json:"NAME"`
}

// DealStages lists the configured deal stages. The STAGE_ID field metadata is tried
// first; portals that do not inline items there are asked through crm.status.list.
func (c *Client) DealStages(ctx context.Context) ([]StageItem, error) {
	var fields map[string]json.RawMessage

	if _, err := c.Call(ctx, "crm.deal.fields", nil, &fields); err != nil {
		return nil, err
	}

	if raw, ok := fields["STAGE_ID"]; ok {
		var f dealField
		if err := json.Unmarshal(raw, &f); err == nil && len(f.Items) > 0 {
			return f.Items, nil
		}
	}

	var statuses []statusItem
	_, err := c.Call(ctx, "crm.status.list", map[string]interface{}{
		"filter": map[string]string{"ENTITY_ID": "DEAL_STAGE"},
		"order":  map[string]string{"SORT": "ASC"},
	}, &statuses)
	if err != nil {
		return nil, err
	}

	items := make([]StageItem, 0, len(statuses))
	for _, s := range statuses {
		items = append(items, StageItem{ID: s.StatusID, Value: s.Name})
	}

	return items, nil
}
