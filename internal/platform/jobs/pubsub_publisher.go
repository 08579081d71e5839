package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/assetdeck/api/internal/services"
)

// PubSubOrderEventPublisher emits order lifecycle events on a Pub/Sub topic
// for downstream consumers (receipt mail, analytics).
type PubSubOrderEventPublisher struct {
	topic *pubsub.Topic
}

// NewPubSubOrderEventPublisher wraps an existing topic handle.
func NewPubSubOrderEventPublisher(topic *pubsub.Topic) (*PubSubOrderEventPublisher, error) {
	if topic == nil {
		return nil, errors.New("jobs: topic is required")
	}
	return &PubSubOrderEventPublisher{topic: topic}, nil
}

// PublishOrderEvent sends the message and waits for the server-assigned id.
// Attributes mirror the routing fields so subscribers can filter without
// decoding the payload.
func (p *PubSubOrderEventPublisher) PublishOrderEvent(ctx context.Context, message services.OrderEventMessage) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("jobs: publisher not initialised")
	}

	data, err := json.Marshal(message)
	if err != nil {
		return "", fmt.Errorf("jobs: marshal order event: %w", err)
	}

	attrs := map[string]string{}
	for key, value := range map[string]string{
		"orderId": message.OrderID,
		"userId":  message.UserID,
		"event":   message.Event,
		"status":  message.Status,
	} {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			attrs[key] = trimmed
		}
	}

	id, err := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("jobs: publish order event: %w", err)
	}
	return id, nil
}
