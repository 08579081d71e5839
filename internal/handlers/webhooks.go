package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/assetdeck/api/internal/payments"
	"github.com/assetdeck/api/internal/platform/httpx"
	"github.com/assetdeck/api/internal/services"
)

const maxWebhookBody = 256 * 1024

// WebhookHandlers receives payment gateway deliveries. The raw body is read
// before any decoding because signature verification covers the exact bytes.
type WebhookHandlers struct {
	verifier payments.WebhookVerifier
	webhooks services.WebhookService
}

// NewWebhookHandlers constructs webhook handlers.
func NewWebhookHandlers(verifier payments.WebhookVerifier, webhooks services.WebhookService) *WebhookHandlers {
	return &WebhookHandlers{verifier: verifier, webhooks: webhooks}
}

// Routes registers the webhook endpoint under the provided router.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/payments/webhook", h.receive)
}

func (h *WebhookHandlers) receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.verifier == nil || h.webhooks == nil {
		httpx.WriteError(ctx, w, httpx.NewError("webhook_unavailable", "webhook processing unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxWebhookBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to read webhook body", status))
		return
	}

	event, err := h.verifier.VerifyWebhook(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "webhook signature verification failed", http.StatusBadRequest))
		return
	}

	if err := h.webhooks.HandleEvent(ctx, event); err != nil {
		switch {
		case errors.Is(err, services.ErrWebhookInvalidEvent):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_event", "event payload could not be decoded", http.StatusBadRequest))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("webhook_unavailable", "event could not be processed", http.StatusInternalServerError))
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"received": event.ID})
}
