package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/assetdeck/api/internal/domain"
	"github.com/assetdeck/api/internal/platform/httpx"
	"github.com/assetdeck/api/internal/services"
)

const maxAdminRequestBody = 16 * 1024

// AdminHandlers exposes entitlement grants and the support backlog.
type AdminHandlers struct {
	users   services.UserService
	tickets services.TicketService
}

// NewAdminHandlers constructs admin handlers.
func NewAdminHandlers(users services.UserService, tickets services.TicketService) *AdminHandlers {
	return &AdminHandlers{users: users, tickets: tickets}
}

// Routes registers admin endpoints under the provided router.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/admin/users/{userId}/entitlements", h.grantEntitlements)
	r.Get("/admin/tickets", h.listTickets)
	r.Patch("/admin/tickets/{ticketId}", h.updateTicket)
}

type grantEntitlementsRequest struct {
	AssetIDs []string `json:"assetIds"`
}

type updateTicketRequest struct {
	Status string `json:"status"`
}

func (h *AdminHandlers) grantEntitlements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req grantEntitlementsRequest
	if err := decodeJSONBody(r, maxAdminRequestBody, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	userID := chi.URLParam(r, "userId")
	if err := h.users.GrantEntitlements(ctx, userID, req.AssetIDs); err != nil {
		writeUserError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"userId":  userID,
		"granted": req.AssetIDs,
	})
}

func (h *AdminHandlers) listTickets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := domain.TicketStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	tickets, err := h.tickets.ListTicketsByStatus(ctx, status, queryInt(r, "limit", 100))
	if err != nil {
		writeTicketError(w, r, err)
		return
	}

	payload := make([]ticketPayload, 0, len(tickets))
	for _, ticket := range tickets {
		payload = append(payload, toTicketPayload(ticket))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"tickets": payload})
}

func (h *AdminHandlers) updateTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateTicketRequest
	if err := decodeJSONBody(r, maxAdminRequestBody, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	ticket, err := h.tickets.UpdateTicketStatus(ctx, chi.URLParam(r, "ticketId"), domain.TicketStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		writeTicketError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTicketPayload(ticket))
}
