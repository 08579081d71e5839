package services

import (
	"context"
	"time"

	"github.com/assetdeck/api/internal/domain"
	"github.com/assetdeck/api/internal/payments"
)

// CreateCheckoutCommand carries the caller's cart into checkout.
type CreateCheckoutCommand struct {
	UserID     string
	AssetIDs   []string
	SuccessURL string
	CancelURL  string
}

// CheckoutResult reports the created order and, for paid carts, the hosted
// payment session the caller must be redirected to. Free carts complete
// immediately and carry no session.
type CheckoutResult struct {
	OrderID     string
	Status      domain.OrderStatus
	Total       int64
	Currency    string
	SessionID   string
	RedirectURL string
	ExpiresAt   time.Time
}

// CheckoutService runs the cart-to-order checkout flow.
type CheckoutService interface {
	CreateCheckout(ctx context.Context, cmd CreateCheckoutCommand) (CheckoutResult, error)
}

// WebhookService finalises orders from verified payment gateway events.
type WebhookService interface {
	HandleEvent(ctx context.Context, event payments.Event) error
}

// OrderService exposes order history to its owner.
type OrderService interface {
	GetOrder(ctx context.Context, userID, orderID string) (domain.Order, error)
	ListOrders(ctx context.Context, userID string, limit int) ([]domain.Order, error)
}

// CreateAssetCommand carries a new catalog asset.
type CreateAssetCommand struct {
	Title       string
	Description string
	Category    string
	Price       int64
	Currency    string
	FileObject  string
	ImageURL    string
	AuthorID    string
	AuthorName  string
	Tags        []string
	IsTrending  bool
	IsFeatured  bool
}

// UpdateAssetCommand mutates an existing catalog asset.
type UpdateAssetCommand struct {
	AssetID       string
	Title         *string
	Description   *string
	Category      *string
	Price         *int64
	FileObject    *string
	ImageURL      *string
	Tags          []string
	IsTrending    *bool
	IsFeatured    *bool
	IsBestSelling *bool
}

// ListAssetsQuery narrows catalog listings.
type ListAssetsQuery struct {
	Category    string
	AuthorID    string
	Premium     *bool
	Trending    bool
	Featured    bool
	BestSelling bool
	Limit       int
}

// DownloadGrant is a short-lived link to an asset file.
type DownloadGrant struct {
	AssetID   string
	URL       string
	ExpiresAt time.Time
}

// AssetService manages the catalog and gates premium downloads on ownership.
type AssetService interface {
	CreateAsset(ctx context.Context, cmd CreateAssetCommand) (domain.Asset, error)
	UpdateAsset(ctx context.Context, cmd UpdateAssetCommand) (domain.Asset, error)
	DeleteAsset(ctx context.Context, assetID string) error
	GetAsset(ctx context.Context, assetID string) (domain.Asset, error)
	ListAssets(ctx context.Context, query ListAssetsQuery) ([]domain.Asset, error)
	Download(ctx context.Context, userID, assetID string) (DownloadGrant, error)
}

// RegisterCommand creates a new account.
type RegisterCommand struct {
	Email    string
	Name     string
	Password string
}

// LoginCommand authenticates an account.
type LoginCommand struct {
	Email    string
	Password string
}

// AuthSession is an issued access token and the account it belongs to.
type AuthSession struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

// UserService manages accounts, sessions, favorites, and entitlement grants.
type UserService interface {
	Register(ctx context.Context, cmd RegisterCommand) (AuthSession, error)
	Login(ctx context.Context, cmd LoginCommand) (AuthSession, error)
	Profile(ctx context.Context, userID string) (domain.User, error)
	AddFavorite(ctx context.Context, userID, assetID string) error
	RemoveFavorite(ctx context.Context, userID, assetID string) error
	GrantEntitlements(ctx context.Context, userID string, assetIDs []string) error
}

// CreateContentCommand carries a new content entry.
type CreateContentCommand struct {
	Kind       domain.ContentKind
	Title      string
	Body       string
	Category   string
	ImageURL   string
	AuthorID   string
	AuthorName string
	Publish    bool
}

// UpdateContentCommand mutates an existing content entry.
type UpdateContentCommand struct {
	EntryID  string
	Title    *string
	Body     *string
	Category *string
	ImageURL *string
	Status   *domain.ContentStatus
}

// ListContentQuery narrows content listings.
type ListContentQuery struct {
	Kind     domain.ContentKind
	Status   domain.ContentStatus
	AuthorID string
	Limit    int
}

// ContentService manages editorial content with sanitized bodies.
type ContentService interface {
	CreateContent(ctx context.Context, cmd CreateContentCommand) (domain.ContentEntry, error)
	UpdateContent(ctx context.Context, cmd UpdateContentCommand) (domain.ContentEntry, error)
	DeleteContent(ctx context.Context, entryID string) error
	GetContent(ctx context.Context, entryID string) (domain.ContentEntry, error)
	ListContent(ctx context.Context, query ListContentQuery) ([]domain.ContentEntry, error)
}

// CreateTicketCommand files a new support ticket.
type CreateTicketCommand struct {
	UserID  string
	Subject string
	Message string
}

// TicketService manages support tickets.
type TicketService interface {
	CreateTicket(ctx context.Context, cmd CreateTicketCommand) (domain.SupportTicket, error)
	GetTicket(ctx context.Context, userID, ticketID string) (domain.SupportTicket, error)
	ListMyTickets(ctx context.Context, userID string, limit int) ([]domain.SupportTicket, error)
	ListTicketsByStatus(ctx context.Context, status domain.TicketStatus, limit int) ([]domain.SupportTicket, error)
	UpdateTicketStatus(ctx context.Context, ticketID string, status domain.TicketStatus) (domain.SupportTicket, error)
}

// OrderEventMessage is the payload published to the order events topic on
// every order state change.
type OrderEventMessage struct {
	OrderID    string    `json:"orderId"`
	UserID     string    `json:"userId"`
	Event      string    `json:"event"`
	Status     string    `json:"status"`
	Total      int64     `json:"total"`
	Currency   string    `json:"currency"`
	OccurredAt time.Time `json:"occurredAt"`
}

// OrderEventPublisher publishes order lifecycle events. Publishing is best
// effort; failures never roll back the order mutation that triggered them.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error)
}
