package repositories

import (
	"context"
	"time"

	"github.com/assetdeck/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// AssetRepository persists marketplace assets.
type AssetRepository interface {
	Insert(ctx context.Context, asset domain.Asset) error
	Update(ctx context.Context, asset domain.Asset) error
	Delete(ctx context.Context, assetID string) error
	FindByID(ctx context.Context, assetID string) (domain.Asset, error)
	FindByIDs(ctx context.Context, assetIDs []string) ([]domain.Asset, error)
	List(ctx context.Context, filter AssetListFilter) ([]domain.Asset, error)
	IncrementDownloads(ctx context.Context, assetID string) error
}

// AssetListFilter narrows asset listings.
type AssetListFilter struct {
	Category    string
	AuthorID    string
	Premium     *bool
	Trending    bool
	Featured    bool
	BestSelling bool
	Limit       int
}

// UserRepository persists user accounts and their entitlement sets.
type UserRepository interface {
	Insert(ctx context.Context, user domain.User) error
	FindByID(ctx context.Context, userID string) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	UpdateProfile(ctx context.Context, user domain.User) error
	GrantAssets(ctx context.Context, userID string, assetIDs []string) error
	AddFavorite(ctx context.Context, userID, assetID string) error
	RemoveFavorite(ctx context.Context, userID, assetID string) error
	RecordDownload(ctx context.Context, userID, assetID string) error
}

// OrderRepository persists checkout orders and enforces their status transitions.
// The FromPending mutations are compare-and-set: they only move an order out of
// the pending state and report a conflict otherwise.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error)
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Order, error)
	AttachSession(ctx context.Context, orderID, sessionID string) error
	CompleteFromPending(ctx context.Context, orderID, intentID string, completedAt time.Time) (domain.Order, error)
	FailFromPending(ctx context.Context, orderID, reason string, failedAt time.Time) (domain.Order, error)
	CancelFromPending(ctx context.Context, orderID string, cancelledAt time.Time) (domain.Order, error)
}

// ContentRepository persists editorial content entries.
type ContentRepository interface {
	Insert(ctx context.Context, entry domain.ContentEntry) error
	Update(ctx context.Context, entry domain.ContentEntry) error
	Delete(ctx context.Context, entryID string) error
	FindByID(ctx context.Context, entryID string) (domain.ContentEntry, error)
	List(ctx context.Context, filter ContentListFilter) ([]domain.ContentEntry, error)
}

// ContentListFilter narrows content listings.
type ContentListFilter struct {
	Kind     domain.ContentKind
	Status   domain.ContentStatus
	AuthorID string
	Limit    int
}

// TicketRepository persists support tickets.
type TicketRepository interface {
	Insert(ctx context.Context, ticket domain.SupportTicket) error
	FindByID(ctx context.Context, ticketID string) (domain.SupportTicket, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.SupportTicket, error)
	ListByStatus(ctx context.Context, status domain.TicketStatus, limit int) ([]domain.SupportTicket, error)
	UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus, updatedAt time.Time) error
}

// WebhookEventRepository records processed payment events so redelivered
// webhooks can be recognised and skipped.
type WebhookEventRepository interface {
	// Processed reports whether the event id has already been recorded.
	Processed(ctx context.Context, eventID string) (bool, error)
	// MarkProcessed records the event and reports whether this delivery was
	// the first one observed.
	MarkProcessed(ctx context.Context, eventID, eventType string, receivedAt time.Time) (bool, error)
}
