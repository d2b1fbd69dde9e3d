package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/autocabinet/internal/crm"
	"github.com/geocoder89/autocabinet/internal/http/handlers"
	"github.com/geocoder89/autocabinet/internal/payments"
)

type fakePaymentsService struct {
	dashboardFn func(ctx context.Context) ([]payments.PaymentView, error)
	dealsFn     func(ctx context.Context) ([]payments.DealPayment, error)
	payFn       func(ctx context.Context, dealID string) (crm.Deal, error)
}

func (f *fakePaymentsService) Dashboard(ctx context.Context) ([]payments.PaymentView, error) {
	if f.dashboardFn != nil {
		return f.dashboardFn(ctx)
	}
	return []payments.PaymentView{}, nil
}

func (f *fakePaymentsService) Deals(ctx context.Context) ([]payments.DealPayment, error) {
	if f.dealsFn != nil {
		return f.dealsFn(ctx)
	}
	return []payments.DealPayment{}, nil
}

func (f *fakePaymentsService) Pay(ctx context.Context, dealID string) (crm.Deal, error) {
	if f.payFn != nil {
		return f.payFn(ctx, dealID)
	}
	return crm.Deal{ID: dealID}, nil
}

func TestPaymentsHandler(t *testing.T) {
	svc := &fakePaymentsService{
		dashboardFn: func(context.Context) ([]payments.PaymentView, error) {
			return []payments.PaymentView{{ID: "7", Status: "paid", Paid: true, Completed: 60}}, nil
		},
	}

	h := handlers.NewPaymentsHandler(svc, quietLogger())
	r := setupRouter(http.MethodGet, "/api/bitrix/payments", h.Payments)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/bitrix/payments", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d,body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var views []payments.PaymentView
	if err := json.Unmarshal(w.Body.Bytes(), &views); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if len(views) != 1 || views[0].Completed != 60 {
		t.Fatalf("unexpected payload %+v", views)
	}
}

func TestPaymentsHandler_CRMFailure(t *testing.T) {
	svc := &fakePaymentsService{
		dashboardFn: func(context.Context) ([]payments.PaymentView, error) {
			return nil, &crm.Error{Method: "crm.deal.list", Code: "QUERY_LIMIT_EXCEEDED"}
		},
		dealsFn: func(context.Context) ([]payments.DealPayment, error) {
			return nil, errors.New("timeout")
		},
	}

	h := handlers.NewPaymentsHandler(svc, quietLogger())

	for _, path := range []string{"/api/bitrix/payments", "/api/bitrix/deals"} {
		handler := h.Payments
		if path == "/api/bitrix/deals" {
			handler = h.Deals
		}
		r := setupRouter(http.MethodGet, path, handler)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("%s: got status %d, want 500", path, w.Code)
		}
		apiErr := decodeError(t, w)
		if apiErr.Code != "crm_error" {
			t.Fatalf("%s: got code %q", path, apiErr.Code)
		}
		if apiErr.Details != nil {
			t.Fatalf("%s: internal details must not leak: %+v", path, apiErr.Details)
		}
	}
}

func TestPayHandler(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		payFn      func(ctx context.Context, dealID string) (crm.Deal, error)
		wantStatus int
	}{
		{
			name: "success",
			path: "/api/bitrix/deals/42/pay",
			payFn: func(_ context.Context, id string) (crm.Deal, error) {
				return crm.Deal{ID: id, StageID: "EXECUTING"}, nil
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "invalid_id",
			path: "/api/bitrix/deals/abc/pay",
			payFn: func(context.Context, string) (crm.Deal, error) {
				return crm.Deal{}, payments.ErrInvalidDealID
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "crm_failure",
			path: "/api/bitrix/deals/42/pay",
			payFn: func(context.Context, string) (crm.Deal, error) {
				return crm.Deal{}, errors.New("update deal: boom")
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewPaymentsHandler(&fakePaymentsService{payFn: tt.payFn}, quietLogger())
			r := setupRouter(http.MethodPost, "/api/bitrix/deals/:id/pay", h.Pay)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, tt.path, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d,body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantStatus == http.StatusOK {
				var resp struct {
					Message string   `json:"message"`
					Deal    crm.Deal `json:"deal"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal: %v", err)
				}
				if resp.Deal.StageID != "EXECUTING" || resp.Message == "" {
					t.Fatalf("unexpected response %+v", resp)
				}
			}
		})
	}
}
