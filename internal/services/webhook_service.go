package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/assetdeck/api/internal/domain"
	"github.com/assetdeck/api/internal/payments"
	"github.com/assetdeck/api/internal/repositories"
)

var (
	// ErrWebhookInvalidEvent indicates the event payload could not be decoded.
	ErrWebhookInvalidEvent = errors.New("webhook: invalid event")
	// ErrWebhookUnavailable indicates a dependency failed and the delivery
	// should be retried by the gateway.
	ErrWebhookUnavailable = errors.New("webhook: unavailable")
)

// WebhookServiceDeps wires the dependencies required by the webhook service.
type WebhookServiceDeps struct {
	Orders    repositories.OrderRepository
	Users     repositories.UserRepository
	Events    repositories.WebhookEventRepository
	Publisher OrderEventPublisher
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type webhookService struct {
	orders    repositories.OrderRepository
	users     repositories.UserRepository
	events    repositories.WebhookEventRepository
	publisher OrderEventPublisher
	now       func() time.Time
	logger    func(ctx context.Context, event string, fields map[string]any)
}

// NewWebhookService constructs a WebhookService validating required dependencies.
func NewWebhookService(deps WebhookServiceDeps) (WebhookService, error) {
	if deps.Orders == nil {
		return nil, errors.New("webhook service: order repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("webhook service: user repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &webhookService{
		orders:    deps.Orders,
		users:     deps.Users,
		events:    deps.Events,
		publisher: deps.Publisher,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// HandleEvent finalises the order referenced by a verified gateway event.
// Redelivered events are recognised by the event ledger and acknowledged
// without action; the order status transition is the second idempotency
// barrier for replays that race the ledger write.
func (s *webhookService) HandleEvent(ctx context.Context, event payments.Event) error {
	if s == nil || s.orders == nil {
		return ErrWebhookUnavailable
	}

	// A ledger read failure falls through to dispatch; the status CAS still
	// protects the order.
	if s.events != nil {
		seen, err := s.events.Processed(ctx, event.ID)
		if err != nil {
			s.logger(ctx, "webhook.ledger_check_failed", map[string]any{
				"eventId": event.ID,
				"error":   err.Error(),
			})
		} else if seen {
			s.logger(ctx, "webhook.replayed_event", map[string]any{
				"eventId":   event.ID,
				"eventType": event.Type,
			})
			return nil
		}
	}

	switch event.Type {
	case payments.EventCheckoutCompleted:
		if err := s.handleCompleted(ctx, event); err != nil {
			return err
		}
	case payments.EventCheckoutExpired:
		if err := s.handleExpired(ctx, event); err != nil {
			return err
		}
	case payments.EventPaymentIntentFailed:
		if err := s.handleIntentFailed(ctx, event); err != nil {
			return err
		}
	default:
		s.logger(ctx, "webhook.ignored", map[string]any{
			"eventId":   event.ID,
			"eventType": event.Type,
		})
		return nil
	}

	// Recorded after successful handling so a failed delivery stays eligible
	// for the gateway's retry.
	if s.events != nil {
		if _, err := s.events.MarkProcessed(ctx, event.ID, event.Type, s.now()); err != nil {
			s.logger(ctx, "webhook.mark_processed_failed", map[string]any{
				"eventId": event.ID,
				"error":   err.Error(),
			})
		}
	}
	return nil
}

func (s *webhookService) handleCompleted(ctx context.Context, event payments.Event) error {
	info, err := payments.SessionFromEvent(event)
	if err != nil {
		return ErrWebhookInvalidEvent
	}

	order, err := s.resolveOrder(ctx, info.OrderID, info.SessionID)
	if err != nil {
		return s.orderLookupError(ctx, event, err)
	}

	completed, err := s.orders.CompleteFromPending(ctx, order.ID, info.IntentID, s.now())
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotPending) {
			if completed.Status == domain.OrderStatusCompleted {
				s.logger(ctx, "webhook.replay", map[string]any{
					"eventId": event.ID,
					"orderId": order.ID,
				})
				return nil
			}
			s.logger(ctx, "webhook.order_terminal", map[string]any{
				"eventId": event.ID,
				"orderId": order.ID,
				"status":  string(completed.Status),
			})
			return nil
		}
		return s.dependencyError(ctx, event, "webhook.complete_failed", order.ID, err)
	}

	assetIDs := make([]string, 0, len(completed.Lines))
	for _, line := range completed.Lines {
		assetIDs = append(assetIDs, line.AssetID)
	}
	if err := s.users.GrantAssets(ctx, completed.UserID, assetIDs); err != nil {
		return s.dependencyError(ctx, event, "webhook.grant_failed", completed.ID, err)
	}

	s.publishEvent(ctx, completed, "order.completed")
	s.logger(ctx, "webhook.order_completed", map[string]any{
		"eventId": event.ID,
		"orderId": completed.ID,
		"userId":  completed.UserID,
		"assets":  len(assetIDs),
	})
	return nil
}

func (s *webhookService) handleExpired(ctx context.Context, event payments.Event) error {
	info, err := payments.SessionFromEvent(event)
	if err != nil {
		return ErrWebhookInvalidEvent
	}

	order, err := s.resolveOrder(ctx, info.OrderID, info.SessionID)
	if err != nil {
		return s.orderLookupError(ctx, event, err)
	}

	failed, err := s.orders.FailFromPending(ctx, order.ID, "checkout session expired", s.now())
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotPending) {
			return nil
		}
		return s.dependencyError(ctx, event, "webhook.expire_failed", order.ID, err)
	}

	s.publishEvent(ctx, failed, "order.failed")
	s.logger(ctx, "webhook.session_expired", map[string]any{
		"eventId": event.ID,
		"orderId": failed.ID,
	})
	return nil
}

func (s *webhookService) handleIntentFailed(ctx context.Context, event payments.Event) error {
	info, err := payments.IntentFromEvent(event)
	if err != nil {
		return ErrWebhookInvalidEvent
	}
	if strings.TrimSpace(info.OrderID) == "" {
		s.logger(ctx, "webhook.intent_without_order", map[string]any{
			"eventId":  event.ID,
			"intentId": info.IntentID,
		})
		return nil
	}

	failed, err := s.orders.FailFromPending(ctx, info.OrderID, info.FailureReason, s.now())
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotPending) {
			return nil
		}
		if repositories.IsNotFound(err) {
			return s.orderLookupError(ctx, event, err)
		}
		return s.dependencyError(ctx, event, "webhook.fail_failed", info.OrderID, err)
	}

	s.publishEvent(ctx, failed, "order.failed")
	s.logger(ctx, "webhook.order_failed", map[string]any{
		"eventId": event.ID,
		"orderId": failed.ID,
		"reason":  info.FailureReason,
	})
	return nil
}

func (s *webhookService) resolveOrder(ctx context.Context, orderID, sessionID string) (domain.Order, error) {
	if orderID = strings.TrimSpace(orderID); orderID != "" {
		return s.orders.FindByID(ctx, orderID)
	}
	return s.orders.FindBySessionID(ctx, sessionID)
}

// orderLookupError acknowledges events for orders this system never created;
// everything else is surfaced so the gateway retries.
func (s *webhookService) orderLookupError(ctx context.Context, event payments.Event, err error) error {
	if repositories.IsNotFound(err) {
		s.logger(ctx, "webhook.order_not_found", map[string]any{
			"eventId":   event.ID,
			"eventType": event.Type,
		})
		return nil
	}
	return s.dependencyError(ctx, event, "webhook.order_lookup_failed", "", err)
}

func (s *webhookService) dependencyError(ctx context.Context, event payments.Event, logEvent, orderID string, err error) error {
	s.logger(ctx, logEvent, map[string]any{
		"eventId": event.ID,
		"orderId": orderID,
		"error":   err.Error(),
	})
	return ErrWebhookUnavailable
}

func (s *webhookService) publishEvent(ctx context.Context, order domain.Order, event string) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.PublishOrderEvent(ctx, OrderEventMessage{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Event:      event,
		Status:     string(order.Status),
		Total:      order.Total,
		Currency:   order.Currency,
		OccurredAt: s.now(),
	}); err != nil {
		s.logger(ctx, "webhook.publish_failed", map[string]any{
			"orderId": order.ID,
			"event":   event,
			"error":   err.Error(),
		})
	}
}
