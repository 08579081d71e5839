package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/assetdeck/api/internal/platform/auth"
	"github.com/assetdeck/api/internal/platform/httpx"
	"github.com/assetdeck/api/internal/services"
)

const maxCheckoutRequestBody = 8 * 1024

// CheckoutHandlers exposes the checkout endpoint for authenticated users.
type CheckoutHandlers struct {
	checkout services.CheckoutService
}

// NewCheckoutHandlers constructs checkout handlers.
func NewCheckoutHandlers(checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout}
}

// Routes registers checkout endpoints under the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/checkout", h.createCheckout)
}

type checkoutRequest struct {
	AssetIDs   []string `json:"assetIds"`
	SuccessURL string   `json:"successUrl"`
	CancelURL  string   `json:"cancelUrl"`
}

type checkoutResponse struct {
	OrderID     string `json:"orderId"`
	Status      string `json:"status"`
	Total       int64  `json:"total"`
	Currency    string `json:"currency"`
	SessionID   string `json:"sessionId,omitempty"`
	RedirectURL string `json:"redirectUrl,omitempty"`
	ExpiresAt   string `json:"expiresAt,omitempty"`
}

func (h *CheckoutHandlers) createCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthorized", "authentication required", http.StatusUnauthorized))
		return
	}

	var req checkoutRequest
	if err := decodeJSONBody(r, maxCheckoutRequestBody, &req); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return
	}

	result, err := h.checkout.CreateCheckout(ctx, services.CreateCheckoutCommand{
		UserID:     identity.UID,
		AssetIDs:   req.AssetIDs,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		writeCheckoutError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.SessionID == "" {
		status = http.StatusOK
	}
	httpx.WriteJSON(w, status, checkoutResponse{
		OrderID:     result.OrderID,
		Status:      string(result.Status),
		Total:       result.Total,
		Currency:    result.Currency,
		SessionID:   result.SessionID,
		RedirectURL: result.RedirectURL,
		ExpiresAt:   formatTime(result.ExpiresAt),
	})
}

func writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "checkout request is invalid", http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutAssetNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("asset_not_found", "one or more assets do not exist", http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutAlreadyOwned):
		httpx.WriteError(ctx, w, httpx.NewError("already_owned", alreadyOwnedMessage(err), http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutPaymentFailed):
		httpx.WriteError(ctx, w, httpx.NewError("payment_failed", "payment session could not be created", http.StatusBadGateway))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout is temporarily unavailable", http.StatusServiceUnavailable))
	}
}

func alreadyOwnedMessage(err error) string {
	var owned *services.AlreadyOwnedError
	if errors.As(err, &owned) && len(owned.Titles) > 0 {
		return "already owned: " + strings.Join(owned.Titles, ", ")
	}
	return "the cart contains assets that are already owned"
}
