package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/assetdeck/api/internal/domain"
	"github.com/assetdeck/api/internal/platform/auth"
	"github.com/assetdeck/api/internal/platform/httpx"
	"github.com/assetdeck/api/internal/services"
)

// OrderHandlers exposes order history endpoints for authenticated users.
type OrderHandlers struct {
	orders services.OrderService
}

// NewOrderHandlers constructs order handlers.
func NewOrderHandlers(orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes registers order endpoints under the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{orderId}", h.getOrder)
}

type orderLinePayload struct {
	AssetID string `json:"assetId"`
	Title   string `json:"title"`
	Price   int64  `json:"price"`
}

type orderPayload struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"`
	Total     int64              `json:"total"`
	Currency  string             `json:"currency"`
	Lines     []orderLinePayload `json:"lines"`
	SessionID string             `json:"sessionId,omitempty"`
	CreatedAt string             `json:"createdAt"`
	UpdatedAt string             `json:"updatedAt"`
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthorized", "authentication required", http.StatusUnauthorized))
		return
	}

	orders, err := h.orders.ListOrders(ctx, identity.UID, queryInt(r, "limit", 50))
	if err != nil {
		writeOrderError(w, r, err)
		return
	}

	payload := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		payload = append(payload, toOrderPayload(order))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"orders": payload})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthorized", "authentication required", http.StatusUnauthorized))
		return
	}

	order, err := h.orders.GetOrder(ctx, identity.UID, chi.URLParam(r, "orderId"))
	if err != nil {
		writeOrderError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toOrderPayload(order))
}

func toOrderPayload(order domain.Order) orderPayload {
	lines := make([]orderLinePayload, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLinePayload{
			AssetID: line.AssetID,
			Title:   line.Title,
			Price:   line.Price,
		})
	}
	return orderPayload{
		ID:        order.ID,
		Status:    string(order.Status),
		Total:     order.Total,
		Currency:  order.Currency,
		Lines:     lines,
		SessionID: order.SessionID,
		CreatedAt: formatTime(order.CreatedAt),
		UpdatedAt: formatTime(order.UpdatedAt),
	}
}

func writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order request is invalid", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "orders are temporarily unavailable", http.StatusServiceUnavailable))
	}
}
