package crm

import (
	"context"
	"encoding/json"
	"fmt"
)

// AddContact creates a contact and returns its id.
func (c *Client) AddContact(ctx context.Context, fields ContactFields) (string, error) {
	var id json.Number

	_, err := c.Call(ctx, "crm.contact.add", map[string]interface{}{
		"fields": fields,
	}, &id)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (c *Client) GetContact(ctx context.Context, id string) (Contact, error) {
	var contact Contact

	_, err := c.Call(ctx, "crm.contact.get", map[string]interface{}{"id": id}, &contact)
	if err != nil {
		return Contact{}, err
	}

	return contact, nil
}

// ListContacts walks crm.contact.list pages until there is no "next" or the page cap is hit.
func (c *Client) ListContacts(ctx context.Context) ([]Contact, error) {
	var all []Contact
	start := 0

	for page := 0; page < c.contactPages; page++ {
		var batch []Contact

		next, err := c.Call(ctx, "crm.contact.list", map[string]interface{}{
			"select": contactSelect,
			"filter": map[string]interface{}{},
			"start":  start,
		}, &batch)
		if err != nil {
			return nil, err
		}

		all = append(all, batch...)

		if next == nil {
			return all, nil
		}
		if *next <= start {
			return nil, fmt.Errorf("crm crm.contact.list: next offset %d did not advance past %d", *next, start)
		}
		start = *next
	}

	return all, nil
}
