package handlers

import (
	"net/http"

	"github.com/geocoder89/autocabinet/internal/orders"
	"github.com/gin-gonic/gin"
)

type OrdersHandler struct {
	catalog *orders.Catalog
}

func NewOrdersHandler(catalog *orders.Catalog) *OrdersHandler {
	return &OrdersHandler{catalog: catalog}
}

// List returns the orders gallery. The catalog is static so clients can revalidate with ETag.
func (h *OrdersHandler) List(ctx *gin.Context) {
	if h.catalog == nil {
		RespondInternal(ctx, "Orders are unavailable")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, h.catalog)
}
