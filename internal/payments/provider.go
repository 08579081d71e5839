package payments

import (
	"context"
	"encoding/json"
	"time"
)

// Payment status values reported by LookupPayment.
const (
	StatusPending   = "pending"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

// Gateway event types the webhook pipeline acts on.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventCheckoutExpired     = "checkout.session.expired"
	EventPaymentIntentFailed = "payment_intent.payment_failed"
)

// LineItem is a single priced entry on a checkout session.
type LineItem struct {
	Name        string
	Description string
	Amount      int64
	Quantity    int64
	AssetID     string
}

// CheckoutSessionRequest describes the hosted payment session to create.
type CheckoutSessionRequest struct {
	OrderID        string
	UserID         string
	Currency       string
	SuccessURL     string
	CancelURL      string
	IdempotencyKey string
	Items          []LineItem
	Metadata       map[string]string
}

// CheckoutSession is the created gateway session.
type CheckoutSession struct {
	ID           string
	Provider     string
	ClientSecret string
	RedirectURL  string
	IntentID     string
	ExpiresAt    time.Time
	Raw          map[string]any
}

// PaymentDetails summarises the gateway view of a payment intent.
type PaymentDetails struct {
	Provider   string
	IntentID   string
	Status     string
	Amount     int64
	Currency   string
	Captured   bool
	CapturedAt *time.Time
	Raw        map[string]any
}

// LookupRequest identifies the payment intent to fetch.
type LookupRequest struct {
	IntentID string
}

// Provider abstracts the payment gateway used for paid checkouts.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
	LookupPayment(ctx context.Context, req LookupRequest) (PaymentDetails, error)
}

// Event is a verified gateway webhook delivery.
type Event struct {
	ID      string
	Type    string
	Payload json.RawMessage
}

// SessionInfo is the subset of a checkout session event the order pipeline
// needs: the session id plus the order correlation metadata.
type SessionInfo struct {
	SessionID string
	IntentID  string
	OrderID   string
	UserID    string
}

// IntentInfo is the subset of a payment intent event the order pipeline needs.
type IntentInfo struct {
	IntentID      string
	OrderID       string
	UserID        string
	FailureReason string
}

// WebhookVerifier authenticates raw webhook deliveries. Verification fails
// closed: without a configured signing secret no event is ever accepted.
type WebhookVerifier interface {
	VerifyWebhook(payload []byte, signature string) (Event, error)
}
