package payments_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/autocabinet/internal/cache"
	"github.com/geocoder89/autocabinet/internal/crm"
	"github.com/geocoder89/autocabinet/internal/payments"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCRM struct {
	mu sync.Mutex

	listDealsFn    func(ctx context.Context) ([]crm.Deal, error)
	listContactsFn func(ctx context.Context) ([]crm.Contact, error)
	dealStagesFn   func(ctx context.Context) ([]crm.StageItem, error)
	getDealFn      func(ctx context.Context, id string) (crm.Deal, error)

	stageCalls int
	updates    []map[string]interface{}
}

func (f *fakeCRM) ListDeals(ctx context.Context) ([]crm.Deal, error) {
	return f.listDealsFn(ctx)
}

func (f *fakeCRM) ListContacts(ctx context.Context) ([]crm.Contact, error) {
	return f.listContactsFn(ctx)
}

func (f *fakeCRM) DealStages(ctx context.Context) ([]crm.StageItem, error) {
	f.mu.Lock()
	f.stageCalls++
	f.mu.Unlock()
	return f.dealStagesFn(ctx)
}

func (f *fakeCRM) UpdateDeal(_ context.Context, id string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := map[string]interface{}{"id": id}
	for k, v := range fields {
		rec[k] = v
	}
	f.updates = append(f.updates, rec)
	return nil
}

func (f *fakeCRM) GetDeal(ctx context.Context, id string) (crm.Deal, error) {
	if f.getDealFn != nil {
		return f.getDealFn(ctx, id)
	}
	return crm.Deal{ID: id}, nil
}

type countingMetrics struct{ n int }

func (m *countingMetrics) UnrecognizedStage() { m.n++ }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sevenDeals() []crm.Deal {
	return []crm.Deal{
		{ID: "7", Title: "Кузовной ремонт", DateCreate: "2025-03-15T10:00:00+03:00", Opportunity: "15000.00", StageID: "C1:4", StageSemanticID: "P", ContactID: "1"},
		{ID: "6", Title: "Диагностика", DateCreate: "2025-03-14T10:00:00+03:00", Opportunity: "5000", StageID: "FINAL_INVOICE", StageSemanticID: "S", ContactID: "2"},
		{ID: "5", Title: "Покраска", DateCreate: "2025-03-13T10:00:00+03:00", Opportunity: "7000", StageID: "NEW", StageSemanticID: "P", ContactID: "99"},
		{ID: "4", Title: "Шиномонтаж", DateCreate: "2025-03-12T10:00:00+03:00", Opportunity: "2000", StageID: "MYSTERY", StageSemanticID: "P"},
		{ID: "3", Title: "Замена масла", DateCreate: "2025-03-11T10:00:00+03:00", Opportunity: "3000", StageID: "WON", StageSemanticID: "S", ContactID: "3"},
		{ID: "2", Title: "Старое", DateCreate: "2025-03-10T10:00:00+03:00", Opportunity: "1", StageID: "NEW"},
		{ID: "1", Title: "Самое старое", DateCreate: "2025-03-09T10:00:00+03:00", Opportunity: "1", StageID: "NEW"},
	}
}

func someContacts() []crm.Contact {
	return []crm.Contact{
		{ID: "1", Name: "Иван", LastName: "Петров", Email: []crm.MultiField{{Value: "ivan@example.com"}}},
		{ID: "2", Name: "Мария"},
		{ID: "3", Name: "", LastName: "", Email: []crm.MultiField{{Value: ""}, {Value: "second@example.com"}}},
	}
}

func TestDashboard_JoinsAndTruncates(t *testing.T) {
	fc := &fakeCRM{
		listDealsFn:    func(context.Context) ([]crm.Deal, error) { return sevenDeals(), nil },
		listContactsFn: func(context.Context) ([]crm.Contact, error) { return someContacts(), nil },
	}
	metrics := &countingMetrics{}

	svc := payments.NewService(fc, nil, quietLogger(), payments.Config{Metrics: metrics})

	views, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 5)

	assert.Equal(t, []string{"7", "6", "5", "4", "3"}, []string{views[0].ID, views[1].ID, views[2].ID, views[3].ID, views[4].ID})

	assert.Equal(t, "Иван Петров", views[0].Employee)
	assert.Equal(t, "ivan@example.com", views[0].Email)
	assert.True(t, views[0].Paid)
	assert.Equal(t, 60, views[0].Completed)
	assert.Equal(t, "paid", views[0].Status)
	assert.Equal(t, 15000.0, views[0].Amount)
	assert.Equal(t, "15.03.2025", views[0].Date)

	assert.Equal(t, "Мария", views[1].Employee)
	assert.Equal(t, payments.PlaceholderEmail, views[1].Email)
	assert.True(t, views[1].Paid, "won semantic id marks the deal paid")
	assert.Equal(t, 80, views[1].Completed)

	// contact id that is not in the CRM
	assert.Equal(t, payments.UnknownEmployee, views[2].Employee)
	assert.Equal(t, payments.PlaceholderEmail, views[2].Email)
	assert.False(t, views[2].Paid)
	assert.Equal(t, "unpaid", views[2].Status)

	assert.Equal(t, payments.UnknownEmployee, views[3].Employee)
	assert.Zero(t, views[3].Completed)
	assert.False(t, views[3].Paid)

	assert.Equal(t, payments.UnknownEmployee, views[4].Employee)
	assert.Equal(t, "second@example.com", views[4].Email)
	assert.Equal(t, 100, views[4].Completed)

	assert.Equal(t, 1, metrics.n)
}

func TestDashboard_CRMFailure(t *testing.T) {
	boom := errors.New("crm down")

	fc := &fakeCRM{
		listDealsFn:    func(context.Context) ([]crm.Deal, error) { return sevenDeals(), nil },
		listContactsFn: func(context.Context) ([]crm.Contact, error) { return nil, boom },
	}

	svc := payments.NewService(fc, nil, quietLogger(), payments.Config{})

	views, err := svc.Dashboard(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Nil(t, views)
}

func TestDeals_FormatsRows(t *testing.T) {
	fc := &fakeCRM{
		listDealsFn: func(context.Context) ([]crm.Deal, error) { return sevenDeals(), nil },
	}

	svc := payments.NewService(fc, nil, quietLogger(), payments.Config{})

	rows, err := svc.Deals(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 7)

	assert.Equal(t, "7", rows[0].AccountNumber)
	assert.Equal(t, "15.03.2025", rows[0].Date)
	assert.Contains(t, rows[0].Amount, "тг")
	assert.True(t, rows[0].Paid)
	assert.False(t, rows[6].Paid)
}

func TestPay_PicksWorkStageAndCachesStages(t *testing.T) {
	fc := &fakeCRM{
		dealStagesFn: func(context.Context) ([]crm.StageItem, error) {
			return []crm.StageItem{
				{ID: "C1:NEW", Value: "Новая"},
				{ID: "C1:PREPARATION", Value: "Подготовка"},
				{ID: "C1:UC_42", Value: "В работе"},
			}, nil
		},
		getDealFn: func(_ context.Context, id string) (crm.Deal, error) {
			return crm.Deal{ID: id, StageID: "C1:UC_42"}, nil
		},
	}

	svc := payments.NewService(fc, cache.New(time.Minute), quietLogger(), payments.Config{})

	deal, err := svc.Pay(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "C1:UC_42", deal.StageID)

	_, err = svc.Pay(context.Background(), "43")
	require.NoError(t, err)

	require.Len(t, fc.updates, 2)
	assert.Equal(t, map[string]interface{}{"id": "42", "STAGE_ID": "C1:UC_42"}, fc.updates[0])
	assert.Equal(t, 1, fc.stageCalls, "second call should be served from cache")
}

func TestPay_FallbackStage(t *testing.T) {
	fc := &fakeCRM{
		dealStagesFn: func(context.Context) ([]crm.StageItem, error) {
			return []crm.StageItem{{ID: "NEW", Value: "Новая"}}, nil
		},
	}

	svc := payments.NewService(fc, nil, quietLogger(), payments.Config{FallbackStage: "PREPARATION"})

	_, err := svc.Pay(context.Background(), "10")
	require.NoError(t, err)
	assert.Equal(t, "PREPARATION", fc.updates[0]["STAGE_ID"])
}

func TestPay_InvalidID(t *testing.T) {
	svc := payments.NewService(&fakeCRM{}, nil, quietLogger(), payments.Config{})

	for _, id := range []string{"", "abc", "1; DROP"} {
		_, err := svc.Pay(context.Background(), id)
		assert.ErrorIs(t, err, payments.ErrInvalidDealID, id)
	}
}

func TestPay_StagesFailure(t *testing.T) {
	boom := errors.New("no stages")
	fc := &fakeCRM{
		dealStagesFn: func(context.Context) ([]crm.StageItem, error) { return nil, boom },
	}

	svc := payments.NewService(fc, nil, quietLogger(), payments.Config{})

	_, err := svc.Pay(context.Background(), "10")
	require.ErrorIs(t, err, boom)
	assert.Empty(t, fc.updates)
}
