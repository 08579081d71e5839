package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/assetdeck/api/internal/domain"
	pfirestore "github.com/assetdeck/api/internal/platform/firestore"
	"github.com/assetdeck/api/internal/repositories"
)

const orderCollection = "orders"

// OrderRepository persists checkout orders in Firestore. Status transitions
// out of pending run inside a transaction so a replayed webhook and the
// sweeper can never both claim the same order.
type OrderRepository struct {
	base     *pfirestore.BaseRepository[domain.Order]
	provider *pfirestore.Provider
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		base:     pfirestore.NewBaseRepository[domain.Order](provider, orderCollection),
		provider: provider,
	}, nil
}

// Insert stores a new order. The document must not already exist.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order id is required")
	}
	if strings.TrimSpace(order.UserID) == "" {
		return errors.New("order user id is required")
	}

	_, err := r.base.Create(ctx, order.ID, order)
	return err
}

// FindByID loads an order by its identifier.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	order := doc.Data
	order.ID = doc.ID
	return order, nil
}

// FindBySessionID resolves the order correlated with a payment session.
func (r *OrderRepository) FindBySessionID(ctx context.Context, sessionID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.Order{}, errors.New("session id is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("sessionId", "==", sessionID).Limit(1)
	})
	if err != nil {
		return domain.Order{}, err
	}
	if len(docs) == 0 {
		return domain.Order{}, pfirestore.WrapError("orders.find_by_session", status.Error(codes.NotFound, "order not found for session"))
	}
	order := docs[0].Data
	order.ID = docs[0].ID
	return order, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
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
	return ordersFromDocs(docs), nil
}

// ListStalePending returns pending orders created before the cutoff.
func (r *OrderRepository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}
	if limit <= 0 {
		limit = 100
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("status", "==", string(domain.OrderStatusPending)).
			Where("createdAt", "<", olderThan).
			OrderBy("createdAt", firestore.Asc).
			Limit(limit)
	})
	if err != nil {
		return nil, err
	}
	return ordersFromDocs(docs), nil
}

// AttachSession records the payment session created for the order.
func (r *OrderRepository) AttachSession(ctx context.Context, orderID, sessionID string) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errors.New("session id is required")
	}

	_, err := r.base.Update(ctx, orderID, []firestore.Update{
		{Path: "sessionId", Value: sessionID},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	return err
}

// CompleteFromPending marks the order completed, recording the payment intent.
func (r *OrderRepository) CompleteFromPending(ctx context.Context, orderID, intentID string, completedAt time.Time) (domain.Order, error) {
	return r.transitionFromPending(ctx, orderID, completedAt, func(order *domain.Order) []firestore.Update {
		order.Status = domain.OrderStatusCompleted
		order.IntentID = strings.TrimSpace(intentID)
		return []firestore.Update{
			{Path: "status", Value: string(domain.OrderStatusCompleted)},
			{Path: "intentId", Value: order.IntentID},
		}
	})
}

// FailFromPending marks the order failed.
func (r *OrderRepository) FailFromPending(ctx context.Context, orderID, reason string, failedAt time.Time) (domain.Order, error) {
	return r.transitionFromPending(ctx, orderID, failedAt, func(order *domain.Order) []firestore.Update {
		order.Status = domain.OrderStatusFailed
		updates := []firestore.Update{
			{Path: "status", Value: string(domain.OrderStatusFailed)},
		}
		if reason = strings.TrimSpace(reason); reason != "" {
			updates = append(updates, firestore.Update{Path: "failureReason", Value: reason})
		}
		return updates
	})
}

// CancelFromPending marks the order cancelled. Used for expired sessions and
// the stale-order sweep.
func (r *OrderRepository) CancelFromPending(ctx context.Context, orderID string, cancelledAt time.Time) (domain.Order, error) {
	return r.transitionFromPending(ctx, orderID, cancelledAt, func(order *domain.Order) []firestore.Update {
		order.Status = domain.OrderStatusCancelled
		return []firestore.Update{
			{Path: "status", Value: string(domain.OrderStatusCancelled)},
		}
	})
}

func (r *OrderRepository) transitionFromPending(ctx context.Context, orderID string, at time.Time, mutate func(order *domain.Order) []firestore.Update) (domain.Order, error) {
	if r == nil || r.base == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order id is required")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var result domain.Order
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docRef, err := r.base.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(docRef)
		if err != nil {
			return err
		}
		doc, err := pfirestore.DecodeSnapshot[domain.Order](snap)
		if err != nil {
			return err
		}

		result = doc.Data
		result.ID = doc.ID
		if result.Status != domain.OrderStatusPending {
			return repositories.ErrOrderNotPending
		}

		updates := mutate(&result)
		result.UpdatedAt = at
		updates = append(updates, firestore.Update{Path: "updatedAt", Value: at})
		return tx.Update(docRef, updates)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotPending) {
			// result carries the terminal order so callers can decide whether
			// the transition is an idempotent replay.
			return result, repositories.ErrOrderNotPending
		}
		return domain.Order{}, err
	}
	return result, nil
}

func ordersFromDocs(docs []pfirestore.Document[domain.Order]) []domain.Order {
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		order := doc.Data
		order.ID = doc.ID
		orders = append(orders, order)
	}
	return orders
}
