package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/assetdeck/api/internal/domain"
	"github.com/assetdeck/api/internal/payments"
	"github.com/assetdeck/api/internal/repositories"
)

const defaultCheckoutCurrency = "USD"

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid input parameters.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutUnavailable indicates checkout dependencies are currently unavailable.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
	// ErrCheckoutAssetNotFound indicates the cart references an asset that no longer exists.
	ErrCheckoutAssetNotFound = errors.New("checkout: asset not found")
	// ErrCheckoutAlreadyOwned indicates the cart contains a premium asset the
	// caller already owns.
	ErrCheckoutAlreadyOwned = errors.New("checkout: asset already owned")
	// ErrCheckoutPaymentFailed indicates the payment session could not be created.
	ErrCheckoutPaymentFailed = errors.New("checkout: payment failed")
)

// AlreadyOwnedError rejects a cart holding premium assets the buyer already
// owns. The whole checkout fails; no order is created. Titles carries the
// offending assets so the client can tell the buyer what to remove.
type AlreadyOwnedError struct {
	Titles []string
}

func (e *AlreadyOwnedError) Error() string {
	return "checkout: already owned: " + strings.Join(e.Titles, ", ")
}

func (e *AlreadyOwnedError) Unwrap() error { return ErrCheckoutAlreadyOwned }

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Assets    repositories.AssetRepository
	Users     repositories.UserRepository
	Orders    repositories.OrderRepository
	Payments  payments.Provider
	Publisher OrderEventPublisher
	BaseURL   string
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type checkoutService struct {
	assets    repositories.AssetRepository
	users     repositories.UserRepository
	orders    repositories.OrderRepository
	payments  payments.Provider
	publisher OrderEventPublisher
	baseURL   string
	now       func() time.Time
	logger    func(ctx context.Context, event string, fields map[string]any)
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Assets == nil {
		return nil, errors.New("checkout service: asset repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("checkout service: user repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("checkout service: payment provider is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &checkoutService{
		assets:    deps.Assets,
		users:     deps.Users,
		orders:    deps.Orders,
		payments:  deps.Payments,
		publisher: deps.Publisher,
		baseURL:   strings.TrimRight(strings.TrimSpace(deps.BaseURL), "/"),
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// CreateCheckout prices the cart, records the order, and opens a payment
// session when the total is non-zero. Free carts complete on the spot.
func (s *checkoutService) CreateCheckout(ctx context.Context, cmd CreateCheckoutCommand) (CheckoutResult, error) {
	if s == nil || s.orders == nil {
		return CheckoutResult{}, ErrCheckoutUnavailable
	}

	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return CheckoutResult{}, ErrCheckoutInvalidInput
	}
	assetIDs := dedupeIDs(cmd.AssetIDs)
	if len(assetIDs) == 0 {
		return CheckoutResult{}, ErrCheckoutInvalidInput
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return CheckoutResult{}, ErrCheckoutInvalidInput
		}
		return CheckoutResult{}, s.unavailable(ctx, "checkout.load_user_failed", userID, err)
	}

	assets, err := s.assets.FindByIDs(ctx, assetIDs)
	if err != nil {
		if repositories.IsNotFound(err) {
			return CheckoutResult{}, ErrCheckoutAssetNotFound
		}
		return CheckoutResult{}, s.unavailable(ctx, "checkout.load_assets_failed", userID, err)
	}
	if len(assets) == 0 {
		return CheckoutResult{}, ErrCheckoutAssetNotFound
	}

	if owned := ownedPremiumTitles(user, assets); len(owned) > 0 {
		s.logger(ctx, "checkout.rejected_owned_assets", map[string]any{
			"userId": userID,
			"titles": owned,
		})
		return CheckoutResult{}, &AlreadyOwnedError{Titles: owned}
	}

	lines, total, currency := priceCart(assets)

	now := s.now()
	order := domain.Order{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Lines:     lines,
		Total:     total,
		Currency:  currency,
		Status:    domain.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if total == 0 {
		return s.completeFreeOrder(ctx, order, now)
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return CheckoutResult{}, s.unavailable(ctx, "checkout.persist_order_failed", userID, err)
	}

	session, err := s.payments.CreateCheckoutSession(ctx, payments.CheckoutSessionRequest{
		OrderID:        order.ID,
		UserID:         userID,
		Currency:       currency,
		SuccessURL:     s.redirectURL(cmd.SuccessURL, "/checkout/success"),
		CancelURL:      s.redirectURL(cmd.CancelURL, "/checkout/cancel"),
		IdempotencyKey: checkoutIdempotencyKey(order),
		Items:          sessionItems(lines, currency),
	})
	if err != nil {
		s.logger(ctx, "checkout.session_failed", map[string]any{
			"orderId": order.ID,
			"userId":  userID,
			"error":   err.Error(),
		})
		if _, cancelErr := s.orders.CancelFromPending(ctx, order.ID, s.now()); cancelErr != nil && !errors.Is(cancelErr, repositories.ErrOrderNotPending) {
			s.logger(ctx, "checkout.cancel_failed", map[string]any{
				"orderId": order.ID,
				"error":   cancelErr.Error(),
			})
		}
		return CheckoutResult{}, ErrCheckoutPaymentFailed
	}

	if err := s.orders.AttachSession(ctx, order.ID, session.ID); err != nil {
		return CheckoutResult{}, s.unavailable(ctx, "checkout.attach_session_failed", userID, err)
	}

	s.publishEvent(ctx, order, "order.created")
	s.logger(ctx, "checkout.session_created", map[string]any{
		"orderId":   order.ID,
		"userId":    userID,
		"sessionId": session.ID,
		"total":     total,
	})

	return CheckoutResult{
		OrderID:     order.ID,
		Status:      domain.OrderStatusPending,
		Total:       total,
		Currency:    currency,
		SessionID:   session.ID,
		RedirectURL: session.RedirectURL,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

func (s *checkoutService) completeFreeOrder(ctx context.Context, order domain.Order, now time.Time) (CheckoutResult, error) {
	order.Status = domain.OrderStatusCompleted
	if err := s.orders.Insert(ctx, order); err != nil {
		return CheckoutResult{}, s.unavailable(ctx, "checkout.persist_order_failed", order.UserID, err)
	}

	assetIDs := make([]string, 0, len(order.Lines))
	for _, line := range order.Lines {
		assetIDs = append(assetIDs, line.AssetID)
	}
	if err := s.users.GrantAssets(ctx, order.UserID, assetIDs); err != nil {
		return CheckoutResult{}, s.unavailable(ctx, "checkout.grant_failed", order.UserID, err)
	}

	s.publishEvent(ctx, order, "order.completed")
	s.logger(ctx, "checkout.free_order_completed", map[string]any{
		"orderId": order.ID,
		"userId":  order.UserID,
		"assets":  len(assetIDs),
	})

	return CheckoutResult{
		OrderID:  order.ID,
		Status:   domain.OrderStatusCompleted,
		Total:    0,
		Currency: order.Currency,
	}, nil
}

func (s *checkoutService) publishEvent(ctx context.Context, order domain.Order, event string) {
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
		s.logger(ctx, "checkout.publish_failed", map[string]any{
			"orderId": order.ID,
			"event":   event,
			"error":   err.Error(),
		})
	}
}

func (s *checkoutService) unavailable(ctx context.Context, event, userID string, err error) error {
	s.logger(ctx, event, map[string]any{
		"userId": userID,
		"error":  err.Error(),
	})
	return ErrCheckoutUnavailable
}

func (s *checkoutService) redirectURL(override, path string) string {
	if override = strings.TrimSpace(override); override != "" {
		return override
	}
	return s.baseURL + path
}

// ownedPremiumTitles lists the paid assets in the cart already present in
// the buyer's purchased set. Any hit fails the checkout; a cart is accepted
// whole or not at all. Free assets may be re-taken.
func ownedPremiumTitles(user domain.User, assets []domain.Asset) []string {
	var titles []string
	for _, asset := range assets {
		if asset.Price > 0 && user.Owns(asset.ID) {
			titles = append(titles, asset.Title)
		}
	}
	return titles
}

// priceCart snapshots titles and prices for every cart asset. The returned
// currency is taken from the priced assets and defaults when the cart is
// entirely free.
func priceCart(assets []domain.Asset) ([]domain.OrderLine, int64, string) {
	lines := make([]domain.OrderLine, 0, len(assets))
	var total int64
	currency := ""
	for _, asset := range assets {
		lines = append(lines, domain.OrderLine{
			AssetID: asset.ID,
			Title:   asset.Title,
			Price:   asset.Price,
		})
		total += asset.Price
		if currency == "" && asset.Currency != "" {
			currency = strings.ToUpper(strings.TrimSpace(asset.Currency))
		}
	}
	if currency == "" {
		currency = defaultCheckoutCurrency
	}
	return lines, total, currency
}

func sessionItems(lines []domain.OrderLine, currency string) []payments.LineItem {
	items := make([]payments.LineItem, 0, len(lines))
	for _, line := range lines {
		if line.Price <= 0 {
			continue
		}
		items = append(items, payments.LineItem{
			Name:     line.Title,
			Amount:   line.Price,
			Quantity: 1,
			AssetID:  line.AssetID,
		})
	}
	return items
}

func checkoutIdempotencyKey(order domain.Order) string {
	ids := make([]string, 0, len(order.Lines))
	for _, line := range order.Lines {
		ids = append(ids, line.AssetID)
	}
	sort.Strings(ids)
	sum := sha256.Sum256([]byte(order.ID + "|" + order.UserID + "|" + strings.Join(ids, ",")))
	return "checkout-" + hex.EncodeToString(sum[:16])
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
