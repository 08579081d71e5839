package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/assetdeck/api/internal/domain"
	"github.com/assetdeck/api/internal/repositories"
)

var (
	// ErrTicketInvalidInput indicates the caller supplied invalid parameters.
	ErrTicketInvalidInput = errors.New("tickets: invalid input")
	// ErrTicketNotFound indicates no visible ticket matches the identifier.
	ErrTicketNotFound = errors.New("tickets: not found")
	// ErrTicketUnavailable indicates ticket dependencies are currently unavailable.
	ErrTicketUnavailable = errors.New("tickets: unavailable")
)

// TicketServiceDeps wires the dependencies required by the ticket service.
type TicketServiceDeps struct {
	Tickets repositories.TicketRepository
	Clock   func() time.Time
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

type ticketService struct {
	tickets repositories.TicketRepository
	now     func() time.Time
	logger  func(ctx context.Context, event string, fields map[string]any)
}

// NewTicketService constructs a TicketService validating required dependencies.
func NewTicketService(deps TicketServiceDeps) (TicketService, error) {
	if deps.Tickets == nil {
		return nil, errors.New("ticket service: ticket repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &ticketService{
		tickets: deps.Tickets,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// CreateTicket files a new support ticket in the open state.
func (s *ticketService) CreateTicket(ctx context.Context, cmd CreateTicketCommand) (domain.SupportTicket, error) {
	if s == nil || s.tickets == nil {
		return domain.SupportTicket{}, ErrTicketUnavailable
	}

	userID := strings.TrimSpace(cmd.UserID)
	subject := strings.TrimSpace(cmd.Subject)
	message := strings.TrimSpace(cmd.Message)
	if userID == "" || subject == "" || message == "" {
		return domain.SupportTicket{}, ErrTicketInvalidInput
	}

	now := s.now()
	ticket := domain.SupportTicket{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Subject:   subject,
		Message:   message,
		Status:    domain.TicketStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.tickets.Insert(ctx, ticket); err != nil {
		s.logger(ctx, "tickets.create_failed", map[string]any{
			"userId": userID,
			"error":  err.Error(),
		})
		return domain.SupportTicket{}, ErrTicketUnavailable
	}
	return ticket, nil
}

// GetTicket returns the ticket if it exists and belongs to the caller. An
// empty userID skips the ownership check for support staff.
func (s *ticketService) GetTicket(ctx context.Context, userID, ticketID string) (domain.SupportTicket, error) {
	if s == nil || s.tickets == nil {
		return domain.SupportTicket{}, ErrTicketUnavailable
	}
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		return domain.SupportTicket{}, ErrTicketInvalidInput
	}

	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.SupportTicket{}, ErrTicketNotFound
		}
		s.logger(ctx, "tickets.get_failed", map[string]any{
			"ticketId": ticketID,
			"error":    err.Error(),
		})
		return domain.SupportTicket{}, ErrTicketUnavailable
	}
	if userID = strings.TrimSpace(userID); userID != "" && ticket.UserID != userID {
		return domain.SupportTicket{}, ErrTicketNotFound
	}
	return ticket, nil
}

// ListMyTickets returns the caller's tickets, newest first.
func (s *ticketService) ListMyTickets(ctx context.Context, userID string, limit int) ([]domain.SupportTicket, error) {
	if s == nil || s.tickets == nil {
		return nil, ErrTicketUnavailable
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrTicketInvalidInput
	}

	tickets, err := s.tickets.ListByUser(ctx, userID, limit)
	if err != nil {
		s.logger(ctx, "tickets.list_failed", map[string]any{"userId": userID, "error": err.Error()})
		return nil, ErrTicketUnavailable
	}
	return tickets, nil
}

// ListTicketsByStatus returns the support backlog in the given state.
func (s *ticketService) ListTicketsByStatus(ctx context.Context, status domain.TicketStatus, limit int) ([]domain.SupportTicket, error) {
	if s == nil || s.tickets == nil {
		return nil, ErrTicketUnavailable
	}
	if status != "" && !validTicketStatus(status) {
		return nil, ErrTicketInvalidInput
	}

	tickets, err := s.tickets.ListByStatus(ctx, status, limit)
	if err != nil {
		s.logger(ctx, "tickets.list_status_failed", map[string]any{"status": string(status), "error": err.Error()})
		return nil, ErrTicketUnavailable
	}
	return tickets, nil
}

// UpdateTicketStatus moves the ticket to a new state and returns the result.
func (s *ticketService) UpdateTicketStatus(ctx context.Context, ticketID string, status domain.TicketStatus) (domain.SupportTicket, error) {
	if s == nil || s.tickets == nil {
		return domain.SupportTicket{}, ErrTicketUnavailable
	}
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" || !validTicketStatus(status) {
		return domain.SupportTicket{}, ErrTicketInvalidInput
	}

	now := s.now()
	if err := s.tickets.UpdateStatus(ctx, ticketID, status, now); err != nil {
		if repositories.IsNotFound(err) {
			return domain.SupportTicket{}, ErrTicketNotFound
		}
		s.logger(ctx, "tickets.update_failed", map[string]any{
			"ticketId": ticketID,
			"error":    err.Error(),
		})
		return domain.SupportTicket{}, ErrTicketUnavailable
	}

	return s.GetTicket(ctx, "", ticketID)
}

func validTicketStatus(status domain.TicketStatus) bool {
	switch status {
	case domain.TicketStatusOpen, domain.TicketStatusPending, domain.TicketStatusResolved, domain.TicketStatusClosed:
		return true
	}
	return false
}
