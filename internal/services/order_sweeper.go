package services

import (
	"context"
	"errors"
	"time"

	"github.com/assetdeck/api/internal/repositories"
)

const (
	defaultSweepInterval   = time.Hour
	defaultPendingMaxAge   = 24 * time.Hour
	defaultSweepBatchLimit = 100
)

// OrderSweeperDeps wires the dependencies required by the order sweeper.
type OrderSweeperDeps struct {
	Orders     repositories.OrderRepository
	Publisher  OrderEventPublisher
	Interval   time.Duration
	PendingAge time.Duration
	BatchLimit int
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

// OrderSweeper cancels pending orders whose payment session was abandoned.
// Orders completed between listing and cancellation lose the race safely: the
// compare-and-set transition refuses to touch non-pending orders.
type OrderSweeper struct {
	orders     repositories.OrderRepository
	publisher  OrderEventPublisher
	interval   time.Duration
	pendingAge time.Duration
	batchLimit int
	now        func() time.Time
	logger     func(ctx context.Context, event string, fields map[string]any)
}

// NewOrderSweeper constructs an OrderSweeper validating required dependencies.
func NewOrderSweeper(deps OrderSweeperDeps) (*OrderSweeper, error) {
	if deps.Orders == nil {
		return nil, errors.New("order sweeper: order repository is required")
	}

	interval := deps.Interval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	pendingAge := deps.PendingAge
	if pendingAge <= 0 {
		pendingAge = defaultPendingMaxAge
	}
	batchLimit := deps.BatchLimit
	if batchLimit <= 0 {
		batchLimit = defaultSweepBatchLimit
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &OrderSweeper{
		orders:     deps.Orders,
		publisher:  deps.Publisher,
		interval:   interval,
		pendingAge: pendingAge,
		batchLimit: batchLimit,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *OrderSweeper) Run(ctx context.Context) {
	if s == nil {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger(ctx, "sweeper.run_failed", map[string]any{"error": err.Error()})
			}
		}
	}
}

// Sweep cancels one batch of stale pending orders and reports how many were
// cancelled.
func (s *OrderSweeper) Sweep(ctx context.Context) (int, error) {
	if s == nil || s.orders == nil {
		return 0, errors.New("order sweeper not initialised")
	}

	now := s.now()
	cutoff := now.Add(-s.pendingAge)
	stale, err := s.orders.ListStalePending(ctx, cutoff, s.batchLimit)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, order := range stale {
		swept, err := s.orders.CancelFromPending(ctx, order.ID, s.now())
		if err != nil {
			if errors.Is(err, repositories.ErrOrderNotPending) {
				continue
			}
			s.logger(ctx, "sweeper.cancel_failed", map[string]any{
				"orderId": order.ID,
				"error":   err.Error(),
			})
			continue
		}
		cancelled++

		if s.publisher != nil {
			if _, err := s.publisher.PublishOrderEvent(ctx, OrderEventMessage{
				OrderID:    swept.ID,
				UserID:     swept.UserID,
				Event:      "order.cancelled",
				Status:     string(swept.Status),
				Total:      swept.Total,
				Currency:   swept.Currency,
				OccurredAt: s.now(),
			}); err != nil {
				s.logger(ctx, "sweeper.publish_failed", map[string]any{
					"orderId": swept.ID,
					"error":   err.Error(),
				})
			}
		}
	}

	if cancelled > 0 {
		s.logger(ctx, "sweeper.swept", map[string]any{
			"cancelled": cancelled,
			"cutoff":    cutoff.Format(time.RFC3339),
		})
	}
	return cancelled, nil
}
