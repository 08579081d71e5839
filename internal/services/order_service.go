package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/assetdeck/api/internal/domain"
	"github.com/assetdeck/api/internal/repositories"
)

var (
	// ErrOrderInvalidInput indicates the caller supplied invalid parameters.
	ErrOrderInvalidInput = errors.New("orders: invalid input")
	// ErrOrderNotFound indicates no visible order matches the identifier.
	// Orders belonging to other users are reported identically so order ids
	// cannot be probed.
	ErrOrderNotFound = errors.New("orders: not found")
	// ErrOrderUnavailable indicates order dependencies are currently unavailable.
	ErrOrderUnavailable = errors.New("orders: unavailable")
)

// OrderServiceDeps wires the dependencies required by the order service.
type OrderServiceDeps struct {
	Orders repositories.OrderRepository
	Logger func(ctx context.Context, event string, fields map[string]any)
	Clock  func() time.Time
}

type orderService struct {
	orders repositories.OrderRepository
	logger func(ctx context.Context, event string, fields map[string]any)
}

// NewOrderService constructs an OrderService validating required dependencies.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &orderService{orders: deps.Orders, logger: logger}, nil
}

// GetOrder returns the order if it exists and belongs to the caller.
func (s *orderService) GetOrder(ctx context.Context, userID, orderID string) (domain.Order, error) {
	if s == nil || s.orders == nil {
		return domain.Order{}, ErrOrderUnavailable
	}
	userID = strings.TrimSpace(userID)
	orderID = strings.TrimSpace(orderID)
	if userID == "" || orderID == "" {
		return domain.Order{}, ErrOrderInvalidInput
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Order{}, ErrOrderNotFound
		}
		s.logger(ctx, "orders.get_failed", map[string]any{
			"orderId": orderID,
			"error":   err.Error(),
		})
		return domain.Order{}, ErrOrderUnavailable
	}
	if order.UserID != userID {
		return domain.Order{}, ErrOrderNotFound
	}
	return order, nil
}

// ListOrders returns the caller's order history, newest first.
func (s *orderService) ListOrders(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	if s == nil || s.orders == nil {
		return nil, ErrOrderUnavailable
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrOrderInvalidInput
	}

	orders, err := s.orders.ListByUser(ctx, userID, limit)
	if err != nil {
		s.logger(ctx, "orders.list_failed", map[string]any{
			"userId": userID,
			"error":  err.Error(),
		})
		return nil, ErrOrderUnavailable
	}
	return orders, nil
}
