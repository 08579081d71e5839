package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	pfirestore "github.com/assetdeck/api/internal/platform/firestore"
)

const webhookEventCollection = "webhookEvents"

type webhookEventDocument struct {
	EventType  string    `firestore:"eventType"`
	ReceivedAt time.Time `firestore:"receivedAt"`
}

// WebhookEventRepository records processed payment gateway events so replays
// of the same delivery can be detected. One document per event id; Create
// fails on the second attempt, which is the dedupe signal.
type WebhookEventRepository struct {
	base *pfirestore.BaseRepository[webhookEventDocument]
}

// NewWebhookEventRepository constructs a Firestore-backed webhook event log.
func NewWebhookEventRepository(provider *pfirestore.Provider) (*WebhookEventRepository, error) {
	if provider == nil {
		return nil, errors.New("webhook event repository requires firestore provider")
	}
	return &WebhookEventRepository{
		base: pfirestore.NewBaseRepository[webhookEventDocument](provider, webhookEventCollection),
	}, nil
}

// Processed reports whether the event id has been recorded by a previous
// delivery.
func (r *WebhookEventRepository) Processed(ctx context.Context, eventID string) (bool, error) {
	if r == nil || r.base == nil {
		return false, errors.New("webhook event repository not initialised")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false, errors.New("event id is required")
	}

	_, err := r.base.Get(ctx, eventID)
	if err != nil {
		var repoErr *pfirestore.Error
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MarkProcessed records the event id and reports whether this was the first
// delivery observed.
func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, eventID, eventType string, receivedAt time.Time) (bool, error) {
	if r == nil || r.base == nil {
		return false, errors.New("webhook event repository not initialised")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	_, err := r.base.Create(ctx, eventID, webhookEventDocument{
		EventType:  strings.TrimSpace(eventType),
		ReceivedAt: receivedAt,
	})
	if err != nil {
		if isConflict(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isConflict(err error) bool {
	var repoErr *pfirestore.Error
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}
