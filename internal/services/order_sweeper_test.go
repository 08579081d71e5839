package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/assetdeck/api/internal/domain"
	"github.com/assetdeck/api/internal/repositories"
)

func TestOrderSweeperCancelsStalePendingOrders(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	var listedCutoff time.Time
	var listedLimit int
	var cancelledIDs []string
	publisher := &stubPublisher{}

	sweeper, err := NewOrderSweeper(OrderSweeperDeps{
		Orders: &stubOrderRepository{
			listStalePendingFunc: func(_ context.Context, olderThan time.Time, limit int) ([]domain.Order, error) {
				listedCutoff = olderThan
				listedLimit = limit
				return []domain.Order{
					{ID: "ord-1", UserID: "user-1", Status: domain.OrderStatusPending},
					{ID: "ord-2", UserID: "user-2", Status: domain.OrderStatusPending},
				}, nil
			},
			cancelFunc: func(_ context.Context, orderID string, _ time.Time) (domain.Order, error) {
				cancelledIDs = append(cancelledIDs, orderID)
				return domain.Order{ID: orderID, UserID: "user-1", Status: domain.OrderStatusCancelled}, nil
			},
		},
		Publisher:  publisher,
		PendingAge: 24 * time.Hour,
		BatchLimit: 50,
		Clock:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewOrderSweeper returned error: %v", err)
	}

	cancelled, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if cancelled != 2 {
		t.Fatalf("expected 2 cancellations, got %d", cancelled)
	}
	if got, want := listedCutoff, now.Add(-24*time.Hour); !got.Equal(want) {
		t.Fatalf("expected cutoff %v, got %v", want, got)
	}
	if listedLimit != 50 {
		t.Fatalf("expected batch limit 50, got %d", listedLimit)
	}
	if len(cancelledIDs) != 2 || cancelledIDs[0] != "ord-1" || cancelledIDs[1] != "ord-2" {
		t.Fatalf("unexpected cancellations %#v", cancelledIDs)
	}
	if len(publisher.published) != 2 || publisher.published[0].Event != "order.cancelled" {
		t.Fatalf("expected order.cancelled events published, got %#v", publisher.published)
	}
}

func TestOrderSweeperSkipsOrdersCompletedDuringSweep(t *testing.T) {
	publisher := &stubPublisher{}
	sweeper, err := NewOrderSweeper(OrderSweeperDeps{
		Orders: &stubOrderRepository{
			listStalePendingFunc: func(context.Context, time.Time, int) ([]domain.Order, error) {
				return []domain.Order{
					{ID: "ord-raced", Status: domain.OrderStatusPending},
					{ID: "ord-stale", UserID: "user-1", Status: domain.OrderStatusPending},
				}, nil
			},
			cancelFunc: func(_ context.Context, orderID string, _ time.Time) (domain.Order, error) {
				if orderID == "ord-raced" {
					// Paid between listing and cancellation.
					return domain.Order{}, repositories.ErrOrderNotPending
				}
				return domain.Order{ID: orderID, UserID: "user-1", Status: domain.OrderStatusCancelled}, nil
			},
		},
		Publisher: publisher,
	})
	if err != nil {
		t.Fatalf("NewOrderSweeper returned error: %v", err)
	}

	cancelled, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if cancelled != 1 {
		t.Fatalf("expected the raced order skipped, got %d cancellations", cancelled)
	}
	if len(publisher.published) != 1 || publisher.published[0].OrderID != "ord-stale" {
		t.Fatalf("expected only the stale order announced, got %#v", publisher.published)
	}
}

func TestOrderSweeperListFailurePropagates(t *testing.T) {
	sweeper, err := NewOrderSweeper(OrderSweeperDeps{
		Orders: &stubOrderRepository{
			listStalePendingFunc: func(context.Context, time.Time, int) ([]domain.Order, error) {
				return nil, errors.New("firestore down")
			},
		},
	})
	if err != nil {
		t.Fatalf("NewOrderSweeper returned error: %v", err)
	}

	if _, err := sweeper.Sweep(context.Background()); err == nil {
		t.Fatal("expected listing failure to propagate")
	}
}

func TestOrderSweeperPublishFailureDoesNotStopSweep(t *testing.T) {
	publisher := &stubPublisher{
		publishFunc: func(context.Context, OrderEventMessage) (string, error) {
			return "", errors.New("pubsub down")
		},
	}
	sweeper, err := NewOrderSweeper(OrderSweeperDeps{
		Orders: &stubOrderRepository{
			listStalePendingFunc: func(context.Context, time.Time, int) ([]domain.Order, error) {
				return []domain.Order{{ID: "ord-1", Status: domain.OrderStatusPending}}, nil
			},
			cancelFunc: func(_ context.Context, orderID string, _ time.Time) (domain.Order, error) {
				return domain.Order{ID: orderID, Status: domain.OrderStatusCancelled}, nil
			},
		},
		Publisher: publisher,
	})
	if err != nil {
		t.Fatalf("NewOrderSweeper returned error: %v", err)
	}

	cancelled, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if cancelled != 1 {
		t.Fatalf("expected cancellation recorded despite publish failure, got %d", cancelled)
	}
}
