package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/geocoder89/autocabinet/internal/cache"
	"github.com/geocoder89/autocabinet/internal/crm"
	"golang.org/x/sync/errgroup"
)

const (
	UnknownEmployee    = "unknown"
	PlaceholderEmail   = "email@example.com"
	DefaultLimit       = 5
	DefaultWorkStage   = "EXECUTING"
	stagesCacheKey     = "crm:deal_stages"
	stageFieldToUpdate = "STAGE_ID"
)

var ErrInvalidDealID = errors.New("invalid deal id")

// CRM is the slice of the Bitrix24 client the payments views need.
type CRM interface {
	ListDeals(ctx context.Context) ([]crm.Deal, error)
	ListContacts(ctx context.Context) ([]crm.Contact, error)
	DealStages(ctx context.Context) ([]crm.StageItem, error)
	UpdateDeal(ctx context.Context, id string, fields map[string]interface{}) error
	GetDeal(ctx context.Context, id string) (crm.Deal, error)
}

type Metrics interface {
	UnrecognizedStage()
}

type Config struct {
	Limit         int
	FallbackStage string
	Metrics       Metrics
}

// PaymentView is one row of the dashboard payments table.
type PaymentView struct {
	ID              string  `json:"id"`
	Employee        string  `json:"employee"`
	Email           string  `json:"email"`
	Status          string  `json:"status"`
	Paid            bool    `json:"paid"`
	Completed       int     `json:"completed"`
	DealTitle       string  `json:"dealTitle"`
	Amount          float64 `json:"amount"`
	Date            string  `json:"date"`
	StageID         string  `json:"stageId"`
	StageSemanticID string  `json:"stageSemanticId"`
}

// DealPayment is one row of the invoices list.
type DealPayment struct {
	ID              string `json:"id"`
	AccountNumber   string `json:"accountNumber"`
	Date            string `json:"date"`
	Amount          string `json:"amount"`
	Status          string `json:"status"`
	Paid            bool   `json:"paid"`
	Completed       int    `json:"completed"`
	StageID         string `json:"stageId"`
	StageSemanticID string `json:"stageSemanticId"`
}

type Service struct {
	crm     CRM
	stages  cache.Store
	log     *slog.Logger
	limit   int
	stage   string
	metrics Metrics
}

// NewService wires the CRM client and an optional stage cache. A nil store disables caching.
func NewService(client CRM, stages cache.Store, log *slog.Logger, cfg Config) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if strings.TrimSpace(cfg.FallbackStage) == "" {
		cfg.FallbackStage = DefaultWorkStage
	}

	return &Service{
		crm:     client,
		stages:  stages,
		log:     log,
		limit:   cfg.Limit,
		stage:   cfg.FallbackStage,
		metrics: cfg.Metrics,
	}
}

// Dashboard joins the newest deals with their contacts. Deals and contacts are fetched
// concurrently; either failing fails the whole view.
func (s *Service) Dashboard(ctx context.Context) ([]PaymentView, error) {
	var (
		deals    []crm.Deal
		contacts []crm.Contact
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d, err := s.crm.ListDeals(gctx)
		if err != nil {
			return fmt.Errorf("list deals: %w", err)
		}
		deals = d
		return nil
	})

	g.Go(func() error {
		c, err := s.crm.ListContacts(gctx)
		if err != nil {
			return fmt.Errorf("list contacts: %w", err)
		}
		contacts = c
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]crm.Contact, len(contacts))
	for _, c := range contacts {
		byID[c.ID] = c
	}

	// the CRM already returns deals newest first
	if len(deals) > s.limit {
		deals = deals[:s.limit]
	}

	out := make([]PaymentView, 0, len(deals))
	for _, d := range deals {
		cls := s.classify(ctx, d)

		employee, email := UnknownEmployee, PlaceholderEmail
		if c, ok := byID[d.ContactID]; ok && d.ContactID != "" {
			employee = contactName(c)
			email = contactEmail(c)
		}

		out = append(out, PaymentView{
			ID:              d.ID,
			Employee:        employee,
			Email:           email,
			Status:          StatusLabel(cls.Paid),
			Paid:            cls.Paid,
			Completed:       cls.Completed,
			DealTitle:       d.Title,
			Amount:          ParseAmount(d.Opportunity),
			Date:            FormatDate(d.DateCreate),
			StageID:         d.StageID,
			StageSemanticID: d.StageSemanticID,
		})
	}

	return out, nil
}

// Deals lists every deal as an invoice row.
func (s *Service) Deals(ctx context.Context) ([]DealPayment, error) {
	deals, err := s.crm.ListDeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}

	out := make([]DealPayment, 0, len(deals))
	for _, d := range deals {
		cls := s.classify(ctx, d)

		out = append(out, DealPayment{
			ID:              d.ID,
			AccountNumber:   d.ID,
			Date:            FormatDate(d.DateCreate),
			Amount:          FormatAmount(d.Opportunity),
			Status:          StatusLabel(cls.Paid),
			Paid:            cls.Paid,
			Completed:       cls.Completed,
			StageID:         d.StageID,
			StageSemanticID: d.StageSemanticID,
		})
	}

	return out, nil
}

// Pay moves the deal into the portal's "in work" stage and returns the refreshed deal.
func (s *Service) Pay(ctx context.Context, dealID string) (crm.Deal, error) {
	if !validDealID(dealID) {
		return crm.Deal{}, ErrInvalidDealID
	}

	stages, err := s.dealStages(ctx)
	if err != nil {
		return crm.Deal{}, fmt.Errorf("deal stages: %w", err)
	}

	target := s.WorkStage(stages)

	if err := s.crm.UpdateDeal(ctx, dealID, map[string]interface{}{stageFieldToUpdate: target}); err != nil {
		return crm.Deal{}, fmt.Errorf("update deal: %w", err)
	}

	s.log.InfoContext(ctx, "deal_moved_to_work",
		"deal_id", dealID,
		"stage_id", target,
	)

	deal, err := s.crm.GetDeal(ctx, dealID)
	if err != nil {
		return crm.Deal{}, fmt.Errorf("get deal: %w", err)
	}

	return deal, nil
}

// WorkStage picks the first configured stage whose id or label reads as "in work",
// or the configured fallback id when none does.
func (s *Service) WorkStage(stages []crm.StageItem) string {
	for _, st := range stages {
		if IsWorkStage(st.ID) || IsWorkStage(st.Value) {
			if st.ID != "" {
				return st.ID
			}
		}
	}
	return s.stage
}

func (s *Service) dealStages(ctx context.Context) ([]crm.StageItem, error) {
	if s.stages != nil {
		var cached []crm.StageItem
		ok, err := s.stages.GetJSON(ctx, stagesCacheKey, &cached)
		if err != nil {
			s.log.WarnContext(ctx, "stage_cache_get_failed", "err", err)
		}
		if ok && len(cached) > 0 {
			return cached, nil
		}
	}

	stages, err := s.crm.DealStages(ctx)
	if err != nil {
		return nil, err
	}

	if s.stages != nil && len(stages) > 0 {
		if err := s.stages.SetJSON(ctx, stagesCacheKey, stages); err != nil {
			s.log.WarnContext(ctx, "stage_cache_set_failed", "err", err)
		}
	}

	return stages, nil
}

func (s *Service) classify(ctx context.Context, d crm.Deal) Classification {
	cls := Classify(d.StageID, d.StageSemanticID)
	if !cls.Recognized {
		s.log.WarnContext(ctx, "unrecognized_deal_stage",
			"deal_id", d.ID,
			"stage_id", d.StageID,
			"semantic_id", d.StageSemanticID,
		)
		if s.metrics != nil {
			s.metrics.UnrecognizedStage()
		}
	}
	return cls
}

func contactName(c crm.Contact) string {
	name := strings.TrimSpace(c.Name + " " + c.LastName)
	if name == "" {
		return UnknownEmployee
	}
	return name
}

func contactEmail(c crm.Contact) string {
	for _, e := range c.Email {
		if v := strings.TrimSpace(e.Value); v != "" {
			return v
		}
	}
	return PlaceholderEmail
}

func validDealID(id string) bool {
	if id == "" || len(id) > 20 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
