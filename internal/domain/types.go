package domain

import (
	"strings"
	"time"
)

// AssetCategory is the closed set of catalog categories.
type AssetCategory string

const (
	AssetCategoryGraphics     AssetCategory = "graphics"
	AssetCategoryTemplates    AssetCategory = "templates"
	AssetCategoryFonts        AssetCategory = "fonts"
	AssetCategoryIcons        AssetCategory = "icons"
	AssetCategoryIllustration AssetCategory = "illustrations"
	AssetCategoryMockups      AssetCategory = "mockups"
	AssetCategoryAudio        AssetCategory = "audio"
	AssetCategoryVideo        AssetCategory = "video"
)

// KnownAssetCategories lists every accepted category value.
var KnownAssetCategories = []AssetCategory{
	AssetCategoryGraphics,
	AssetCategoryTemplates,
	AssetCategoryFonts,
	AssetCategoryIcons,
	AssetCategoryIllustration,
	AssetCategoryMockups,
	AssetCategoryAudio,
	AssetCategoryVideo,
}

// ValidAssetCategory reports whether the value belongs to the closed category set.
func ValidAssetCategory(value string) bool {
	trimmed := AssetCategory(strings.ToLower(strings.TrimSpace(value)))
	for _, c := range KnownAssetCategories {
		if c == trimmed {
			return true
		}
	}
	return false
}

// Asset is a purchasable catalog item. Price is expressed in minor currency
// units; zero means free. IsPremium is derived from Price on every write and
// never drifts from it.
type Asset struct {
	ID            string        `firestore:"-"`
	Title         string        `firestore:"title"`
	Description   string        `firestore:"description"`
	Category      AssetCategory `firestore:"category"`
	Price         int64         `firestore:"price"`
	Currency      string        `firestore:"currency"`
	IsPremium     bool          `firestore:"isPremium"`
	IsTrending    bool          `firestore:"isTrending"`
	IsBestSelling bool          `firestore:"isBestSelling"`
	IsFeatured    bool          `firestore:"isFeatured"`
	Downloads     int64         `firestore:"downloads"`
	FileObject    string        `firestore:"fileObject"`
	ImageURL      string        `firestore:"imageUrl"`
	AuthorID      string        `firestore:"authorId"`
	AuthorName    string        `firestore:"authorName"`
	Tags          []string      `firestore:"tags"`
	CreatedAt     time.Time     `firestore:"createdAt"`
	UpdatedAt     time.Time     `firestore:"updatedAt"`
}

// Role is the access level attached to a user account.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// ValidRole reports whether the value is a known role.
func ValidRole(value string) bool {
	switch Role(value) {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User is an account. The three entitlement sets are stored as arrays on the
// document and mutated exclusively through atomic array-union operations.
// PurchasedAssets is the source of truth for premium access and grows only
// through completed orders or an explicit admin grant.
type User struct {
	ID              string    `firestore:"-"`
	Email           string    `firestore:"email"`
	Name            string    `firestore:"name"`
	Role            Role      `firestore:"role"`
	PasswordHash    string    `firestore:"passwordHash"`
	Favorites       []string  `firestore:"favorites"`
	Downloads       []string  `firestore:"downloads"`
	PurchasedAssets []string  `firestore:"purchasedAssets"`
	CreatedAt       time.Time `firestore:"createdAt"`
	UpdatedAt       time.Time `firestore:"updatedAt"`
}

// Owns reports whether the user's purchased set contains the asset id.
func (u User) Owns(assetID string) bool {
	for _, id := range u.PurchasedAssets {
		if id == assetID {
			return true
		}
	}
	return false
}

// OrderStatus is the order lifecycle state. Pending is the only non-terminal
// status; the other three are terminal and never overwritten.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusFailed || s == OrderStatusCancelled
}

// OrderLine is a point-in-time snapshot of a purchased asset. Price and title
// are captured at checkout and are immune to later catalog edits.
type OrderLine struct {
	AssetID string `firestore:"assetId"`
	Title   string `firestore:"title"`
	Price   int64  `firestore:"price"`
}

// Order is one checkout attempt. SessionID correlates the order 1:1 with the
// external payment session when one exists; IntentID records the payment
// intent once the gateway reports completion.
type Order struct {
	ID        string      `firestore:"-"`
	UserID    string      `firestore:"userId"`
	Lines     []OrderLine `firestore:"lines"`
	Total     int64       `firestore:"total"`
	Currency  string      `firestore:"currency"`
	Status    OrderStatus `firestore:"status"`
	SessionID string      `firestore:"sessionId"`
	IntentID  string      `firestore:"intentId"`
	CreatedAt time.Time   `firestore:"createdAt"`
	UpdatedAt time.Time   `firestore:"updatedAt"`
}

// TicketStatus tracks support ticket progress.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "open"
	TicketStatusPending  TicketStatus = "pending"
	TicketStatusResolved TicketStatus = "resolved"
	TicketStatusClosed   TicketStatus = "closed"
)

// SupportTicket is a user-filed support request.
type SupportTicket struct {
	ID        string       `firestore:"-"`
	UserID    string       `firestore:"userId"`
	Subject   string       `firestore:"subject"`
	Message   string       `firestore:"message"`
	Status    TicketStatus `firestore:"status"`
	CreatedAt time.Time    `firestore:"createdAt"`
	UpdatedAt time.Time    `firestore:"updatedAt"`
}

// ContentKind discriminates the content collections.
type ContentKind string

const (
	ContentKindBlog      ContentKind = "blog"
	ContentKindPortfolio ContentKind = "portfolio"
	ContentKindService   ContentKind = "service"
)

// ContentStatus is the publication state of a content entry.
type ContentStatus string

const (
	ContentStatusDraft     ContentStatus = "draft"
	ContentStatusPublished ContentStatus = "published"
	ContentStatusArchived  ContentStatus = "archived"
)

// ContentEntry is a blog post, portfolio piece, or service offering. Body is
// stored sanitized; the raw submission never reaches the document.
type ContentEntry struct {
	ID         string        `firestore:"-"`
	Kind       ContentKind   `firestore:"kind"`
	Title      string        `firestore:"title"`
	Body       string        `firestore:"body"`
	Category   string        `firestore:"category"`
	Status     ContentStatus `firestore:"status"`
	ImageURL   string        `firestore:"imageUrl"`
	AuthorID   string        `firestore:"authorId"`
	AuthorName string        `firestore:"authorName"`
	CreatedAt  time.Time     `firestore:"createdAt"`
	UpdatedAt  time.Time     `firestore:"updatedAt"`
}
