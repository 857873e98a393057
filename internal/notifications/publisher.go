package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/mvaldezh/whisperlink-backend/internal/realtime"
	"github.com/mvaldezh/whisperlink-backend/pkg/config"
	"github.com/mvaldezh/whisperlink-backend/pkg/db/models"
	"github.com/mvaldezh/whisperlink-backend/pkg/enums"
	pkgerrors "github.com/mvaldezh/whisperlink-backend/pkg/errors"
	"github.com/mvaldezh/whisperlink-backend/pkg/logger"
	"github.com/mvaldezh/whisperlink-backend/pkg/metrics"
)

// Pusher is the push transport the publisher triggers after a durable append.
type Pusher interface {
	Trigger(ctx context.Context, channel, event string, payload any) error
}

// Publisher appends a notification and then pushes it to the recipient's
// notification channel. The append is authoritative; the push is best effort.
type Publisher struct {
	repo    Repository
	pusher  Pusher
	logg    *logger.Logger
	metrics *metrics.RealtimeMetrics
	cfg     config.NotificationsConfig
}

// NewPublisher wires the publisher dependencies.
func NewPublisher(repo Repository, pusher Pusher, logg *logger.Logger, rt *metrics.RealtimeMetrics, cfg config.NotificationsConfig) (*Publisher, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if pusher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "push transport required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Publisher{
		repo:    repo,
		pusher:  pusher,
		logg:    logg,
		metrics: rt,
		cfg:     cfg,
	}, nil
}

// Publish durably appends the event, then triggers a push. A failed append is
// returned to the caller; a failed push is logged and counted but never undoes
// the append.
func (p *Publisher) Publish(ctx context.Context, recipientID uuid.UUID, kind enums.NotificationKind, text string, redirectPath *string) (*models.Notification, error) {
	if recipientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification kind")
	}
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification text required")
	}

	notification := &models.Notification{
		RecipientID:  recipientID,
		Kind:         kind,
		Text:         text,
		RedirectPath: redirectPath,
	}

	if err := p.appendWithRetry(ctx, notification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append notification")
	}
	p.metrics.IncPublished(string(kind))

	logCtx := p.logg.WithFields(ctx, map[string]any{
		"notification_id": notification.ID.String(),
		"recipient_id":    recipientID.String(),
		"kind":            string(kind),
	})

	channel := realtime.NotificationChannel(recipientID)
	if err := p.pusher.Trigger(ctx, channel, realtime.EventNewNotification, notification); err != nil {
		// The event is already durable; subscribers pick it up on their next fetch.
		p.metrics.IncPushFailure(realtime.EventNewNotification)
		p.logg.Warn(p.logg.WithChannel(logCtx, channel), "push delivery failed after append")
		return notification, nil
	}

	p.logg.Info(logCtx, "notification published")
	return notification, nil
}

func (p *Publisher) appendWithRetry(ctx context.Context, notification *models.Notification) error {
	attempts := p.cfg.AppendAttempts
	if attempts <= 0 {
		attempts = 1
	}
	base := p.cfg.AppendBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(base))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := p.repo.Append(ctx, notification); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
