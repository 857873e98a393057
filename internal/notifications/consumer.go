package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/mvaldezh/whisperlink-backend/pkg/enums"
	"github.com/mvaldezh/whisperlink-backend/pkg/logger"
)

const (
	notificationConsumerName = "notification-events"
	consumerDedupTTL         = 24 * time.Hour
)

// dedupStore marks events processed exactly once per consumer.
type dedupStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// Consumer turns external domain events into published notifications.
type Consumer struct {
	publisher    *Publisher
	subscription *pubsub.Subscriber
	dedup        dedupStore
	logg         *logger.Logger
}

// NewConsumer builds the notification event consumer.
func NewConsumer(publisher *Publisher, subscription *pubsub.Subscriber, dedup dedupStore, logg *logger.Logger) (*Consumer, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if dedup == nil {
		return nil, fmt.Errorf("dedup store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		publisher:    publisher,
		subscription: subscription,
		dedup:        dedup,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

// notificationEventPayload is the envelope external producers publish on the
// notification-events topic.
type notificationEventPayload struct {
	EventID      string    `json:"eventId"`
	RecipientID  uuid.UUID `json:"recipientId"`
	Kind         string    `json:"kind"`
	Text         string    `json:"text"`
	RedirectPath *string   `json:"redirectPath,omitempty"`
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": msg.Attributes["event_type"],
	}
	logCtx := c.logg.WithFields(ctx, fields)

	var payload notificationEventPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to decode event payload", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(payload.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	kind, err := enums.ParseNotificationKind(payload.Kind)
	if err != nil {
		c.logg.Info(logCtx, "skipping event with unhandled kind")
		return processResult{ack: true}
	}

	dedupKey := fmt.Sprintf("wl:consumer:%s:%s", notificationConsumerName, eventID)
	fresh, err := c.dedup.SetNX(ctx, dedupKey, 1, consumerDedupTTL)
	if err != nil {
		c.logg.Error(logCtx, "dedup check failed", err)
		return processResult{nack: true}
	}
	if !fresh {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"event_id":     eventID.String(),
		"recipient_id": payload.RecipientID.String(),
		"kind":         string(kind),
	})

	text := payload.Text
	if text == "" {
		text = defaultText(kind)
	}

	if _, err := c.publisher.Publish(ctx, payload.RecipientID, kind, text, payload.RedirectPath); err != nil {
		c.logg.Error(logCtx, "publishing notification failed", err)
		_ = c.dedup.Del(ctx, dedupKey)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "notification event handled")
	return processResult{ack: true}
}

func defaultText(kind enums.NotificationKind) string {
	switch kind {
	case enums.NotificationKindAnonymousFeedback:
		return "Someone submitted feedback"
	default:
		return "Someone sent an anonymous message"
	}
}
