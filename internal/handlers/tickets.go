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

const maxTicketRequestBody = 16 * 1024

// TicketHandlers exposes support tickets to their owners.
type TicketHandlers struct {
	tickets services.TicketService
}

// NewTicketHandlers constructs ticket handlers.
func NewTicketHandlers(tickets services.TicketService) *TicketHandlers {
	return &TicketHandlers{tickets: tickets}
}

// Routes registers ticket endpoints under the provided router.
func (h *TicketHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/tickets", h.createTicket)
	r.Get("/tickets", h.listMyTickets)
	r.Get("/tickets/{ticketId}", h.getTicket)
}

type createTicketRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type ticketPayload struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func (h *TicketHandlers) createTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthorized", "authentication required", http.StatusUnauthorized))
		return
	}

	var req createTicketRequest
	if err := decodeJSONBody(r, maxTicketRequestBody, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	ticket, err := h.tickets.CreateTicket(ctx, services.CreateTicketCommand{
		UserID:  identity.UID,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		writeTicketError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toTicketPayload(ticket))
}

func (h *TicketHandlers) listMyTickets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthorized", "authentication required", http.StatusUnauthorized))
		return
	}

	tickets, err := h.tickets.ListMyTickets(ctx, identity.UID, queryInt(r, "limit", 50))
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

func (h *TicketHandlers) getTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthorized", "authentication required", http.StatusUnauthorized))
		return
	}

	// Support staff see every ticket, owners only their own.
	ownerID := identity.UID
	if identity.IsModerator() {
		ownerID = ""
	}

	ticket, err := h.tickets.GetTicket(ctx, ownerID, chi.URLParam(r, "ticketId"))
	if err != nil {
		writeTicketError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTicketPayload(ticket))
}

func toTicketPayload(ticket domain.SupportTicket) ticketPayload {
	return ticketPayload{
		ID:        ticket.ID,
		UserID:    ticket.UserID,
		Subject:   ticket.Subject,
		Message:   ticket.Message,
		Status:    string(ticket.Status),
		CreatedAt: formatTime(ticket.CreatedAt),
		UpdatedAt: formatTime(ticket.UpdatedAt),
	}
}

func writeTicketError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrTicketInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "ticket request is invalid", http.StatusBadRequest))
	case errors.Is(err, services.ErrTicketNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("ticket_not_found", "ticket not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("tickets_unavailable", "tickets are temporarily unavailable", http.StatusServiceUnavailable))
	}
}
