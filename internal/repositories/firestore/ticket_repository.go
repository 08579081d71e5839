package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/assetdeck/api/internal/domain"
	pfirestore "github.com/assetdeck/api/internal/platform/firestore"
)

const ticketCollection = "tickets"

// TicketRepository persists support tickets in Firestore.
type TicketRepository struct {
	base *pfirestore.BaseRepository[domain.SupportTicket]
}

// NewTicketRepository constructs a Firestore-backed ticket repository.
func NewTicketRepository(provider *pfirestore.Provider) (*TicketRepository, error) {
	if provider == nil {
		return nil, errors.New("ticket repository requires firestore provider")
	}
	return &TicketRepository{
		base: pfirestore.NewBaseRepository[domain.SupportTicket](provider, ticketCollection),
	}, nil
}

// Insert stores a new ticket.
func (r *TicketRepository) Insert(ctx context.Context, ticket domain.SupportTicket) error {
	if r == nil || r.base == nil {
		return errors.New("ticket repository not initialised")
	}
	if strings.TrimSpace(ticket.ID) == "" {
		return errors.New("ticket id is required")
	}
	_, err := r.base.Create(ctx, ticket.ID, ticket)
	return err
}

// FindByID loads a ticket by id.
func (r *TicketRepository) FindByID(ctx context.Context, ticketID string) (domain.SupportTicket, error) {
	if r == nil || r.base == nil {
		return domain.SupportTicket{}, errors.New("ticket repository not initialised")
	}
	doc, err := r.base.Get(ctx, ticketID)
	if err != nil {
		return domain.SupportTicket{}, err
	}
	ticket := doc.Data
	ticket.ID = doc.ID
	return ticket, nil
}

// ListByUser returns the user's tickets, newest first.
func (r *TicketRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.SupportTicket, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("ticket repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	if limit <= 0 {
		limit = 50
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("userId", "==", userID).
			OrderBy("createdAt", firestore.Desc).
			Limit(limit)
	})
	if err != nil {
		return nil, err
	}
	return ticketsFromDocs(docs), nil
}

// ListByStatus returns tickets in the given state, oldest first so support
// staff work the backlog in order.
func (r *TicketRepository) ListByStatus(ctx context.Context, status domain.TicketStatus, limit int) ([]domain.SupportTicket, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("ticket repository not initialised")
	}
	if limit <= 0 {
		limit = 100
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if status != "" {
			q = q.Where("status", "==", string(status))
		}
		return q.OrderBy("createdAt", firestore.Asc).Limit(limit)
	})
	if err != nil {
		return nil, err
	}
	return ticketsFromDocs(docs), nil
}

// UpdateStatus moves the ticket to a new state.
func (r *TicketRepository) UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus, updatedAt time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("ticket repository not initialised")
	}
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := r.base.Update(ctx, ticketID, []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "updatedAt", Value: updatedAt},
	})
	return err
}

func ticketsFromDocs(docs []pfirestore.Document[domain.SupportTicket]) []domain.SupportTicket {
	tickets := make([]domain.SupportTicket, 0, len(docs))
	for _, doc := range docs {
		ticket := doc.Data
		ticket.ID = doc.ID
		tickets = append(tickets, ticket)
	}
	return tickets
}
