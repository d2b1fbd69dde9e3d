package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/autocabinet/internal/crm"
	"github.com/geocoder89/autocabinet/internal/http/middlewares"
	"github.com/geocoder89/autocabinet/internal/payments"
	"github.com/gin-gonic/gin"
)

type PaymentsService interface {
	Dashboard(ctx context.Context) ([]payments.PaymentView, error)
	Deals(ctx context.Context) ([]payments.DealPayment, error)
	Pay(ctx context.Context, dealID string) (crm.Deal, error)
}

type PaymentsHandler struct {
	svc PaymentsService
	log *slog.Logger
}

func NewPaymentsHandler(svc PaymentsService, log *slog.Logger) *PaymentsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PaymentsHandler{svc: svc, log: log}
}

// Payments serves the dashboard table: the newest deals joined with their contacts.
func (h *PaymentsHandler) Payments(ctx *gin.Context) {
	views, err := h.svc.Dashboard(ctx.Request.Context())
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "payments_fetch_failed", "err", err)
		RespondCRMError(ctx, "Could not load payments from the CRM")
		return
	}

	ctx.JSON(http.StatusOK, views)
}

func (h *PaymentsHandler) Deals(ctx *gin.Context) {
	rows, err := h.svc.Deals(ctx.Request.Context())
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "deals_fetch_failed", "err", err)
		RespondCRMError(ctx, "Could not load deals from the CRM")
		return
	}

	ctx.JSON(http.StatusOK, rows)
}

func (h *PaymentsHandler) Pay(ctx *gin.Context) {
	dealID := ctx.Param("id")
	ctx.Set(middlewares.CtxDealID, dealID)

	deal, err := h.svc.Pay(ctx.Request.Context(), dealID)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidDealID) {
			RespondError(ctx, http.StatusBadRequest, "invalid_id", "Deal id must be a positive integer", nil)
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "deal_pay_failed", "deal_id", dealID, "err", err)
		RespondCRMError(ctx, "Could not process the payment in the CRM")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Платеж успешно обработан",
		"deal":    deal,
	})
}
