package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/assetdeck/api/internal/domain"
)

func newTicketServiceForTest(t *testing.T, tickets *stubTicketRepository) TicketService {
	t.Helper()
	if tickets == nil {
		tickets = &stubTicketRepository{}
	}
	service, err := NewTicketService(TicketServiceDeps{
		Tickets: tickets,
		Clock:   func() time.Time { return time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewTicketService returned error: %v", err)
	}
	return service
}

func TestTicketServiceCreateTicketOpensTicket(t *testing.T) {
	var inserted domain.SupportTicket
	service := newTicketServiceForTest(t, &stubTicketRepository{
		insertFunc: func(_ context.Context, ticket domain.SupportTicket) error {
			inserted = ticket
			return nil
		},
	})

	ticket, err := service.CreateTicket(context.Background(), CreateTicketCommand{
		UserID:  "user-1",
		Subject: "Download link expired",
		Message: "The signed URL from yesterday no longer works.",
	})
	if err != nil {
		t.Fatalf("CreateTicket returned error: %v", err)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Fatalf("expected new tickets to open, got %s", ticket.Status)
	}
	if inserted.ID == "" || inserted.UserID != "user-1" {
		t.Fatalf("unexpected persisted ticket %#v", inserted)
	}
}

func TestTicketServiceCreateTicketValidation(t *testing.T) {
	service := newTicketServiceForTest(t, nil)

	cases := []CreateTicketCommand{
		{UserID: "", Subject: "s", Message: "m"},
		{UserID: "user-1", Subject: " ", Message: "m"},
		{UserID: "user-1", Subject: "s", Message: ""},
	}
	for _, cmd := range cases {
		if _, err := service.CreateTicket(context.Background(), cmd); !errors.Is(err, ErrTicketInvalidInput) {
			t.Fatalf("expected ErrTicketInvalidInput for %#v, got %v", cmd, err)
		}
	}
}

func TestTicketServiceGetTicketEnforcesOwnership(t *testing.T) {
	service := newTicketServiceForTest(t, &stubTicketRepository{
		findByIDFunc: func(context.Context, string) (domain.SupportTicket, error) {
			return domain.SupportTicket{ID: "tick-1", UserID: "owner"}, nil
		},
	})

	if _, err := service.GetTicket(context.Background(), "owner", "tick-1"); err != nil {
		t.Fatalf("owner lookup returned error: %v", err)
	}
	if _, err := service.GetTicket(context.Background(), "intruder", "tick-1"); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected foreign tickets hidden, got %v", err)
	}
	// Support staff pass an empty user id and see every ticket.
	if _, err := service.GetTicket(context.Background(), "", "tick-1"); err != nil {
		t.Fatalf("staff lookup returned error: %v", err)
	}
}

func TestTicketServiceListMyTickets(t *testing.T) {
	service := newTicketServiceForTest(t, &stubTicketRepository{
		listByUserFunc: func(_ context.Context, userID string, _ int) ([]domain.SupportTicket, error) {
			if userID != "user-1" {
				t.Fatalf("unexpected user %s", userID)
			}
			return []domain.SupportTicket{{ID: "tick-1"}}, nil
		},
	})

	tickets, err := service.ListMyTickets(context.Background(), "user-1", 50)
	if err != nil {
		t.Fatalf("ListMyTickets returned error: %v", err)
	}
	if len(tickets) != 1 {
		t.Fatalf("expected 1 ticket, got %d", len(tickets))
	}

	if _, err := service.ListMyTickets(context.Background(), " ", 50); !errors.Is(err, ErrTicketInvalidInput) {
		t.Fatalf("expected ErrTicketInvalidInput, got %v", err)
	}
}

func TestTicketServiceListTicketsByStatus(t *testing.T) {
	var listed domain.TicketStatus
	service := newTicketServiceForTest(t, &stubTicketRepository{
		listByStatusFunc: func(_ context.Context, status domain.TicketStatus, _ int) ([]domain.SupportTicket, error) {
			listed = status
			return nil, nil
		},
	})

	if _, err := service.ListTicketsByStatus(context.Background(), domain.TicketStatusOpen, 100); err != nil {
		t.Fatalf("ListTicketsByStatus returned error: %v", err)
	}
	if listed != domain.TicketStatusOpen {
		t.Fatalf("unexpected status filter %s", listed)
	}

	if _, err := service.ListTicketsByStatus(context.Background(), "escalated", 100); !errors.Is(err, ErrTicketInvalidInput) {
		t.Fatalf("expected ErrTicketInvalidInput for bogus status, got %v", err)
	}
}

func TestTicketServiceUpdateTicketStatus(t *testing.T) {
	var updatedStatus domain.TicketStatus
	service := newTicketServiceForTest(t, &stubTicketRepository{
		updateStatusFunc: func(_ context.Context, ticketID string, status domain.TicketStatus, _ time.Time) error {
			if ticketID != "tick-1" {
				t.Fatalf("unexpected ticket id %s", ticketID)
			}
			updatedStatus = status
			return nil
		},
		findByIDFunc: func(context.Context, string) (domain.SupportTicket, error) {
			return domain.SupportTicket{ID: "tick-1", UserID: "owner", Status: domain.TicketStatusResolved}, nil
		},
	})

	ticket, err := service.UpdateTicketStatus(context.Background(), "tick-1", domain.TicketStatusResolved)
	if err != nil {
		t.Fatalf("UpdateTicketStatus returned error: %v", err)
	}
	if updatedStatus != domain.TicketStatusResolved || ticket.Status != domain.TicketStatusResolved {
		t.Fatalf("expected resolved ticket, got %s / %s", updatedStatus, ticket.Status)
	}

	if _, err := service.UpdateTicketStatus(context.Background(), "tick-1", "escalated"); !errors.Is(err, ErrTicketInvalidInput) {
		t.Fatalf("expected ErrTicketInvalidInput for bogus status, got %v", err)
	}

	missing := newTicketServiceForTest(t, &stubTicketRepository{
		updateStatusFunc: func(context.Context, string, domain.TicketStatus, time.Time) error {
			return errStubNotFound
		},
	})
	if _, err := missing.UpdateTicketStatus(context.Background(), "ghost", domain.TicketStatusClosed); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
}
