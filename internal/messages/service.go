package messages

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/mvaldezh/whisperlink-backend/internal/realtime"
	"github.com/mvaldezh/whisperlink-backend/internal/users"
	"github.com/mvaldezh/whisperlink-backend/pkg/db/models"
	"github.com/mvaldezh/whisperlink-backend/pkg/enums"
	pkgerrors "github.com/mvaldezh/whisperlink-backend/pkg/errors"
	"github.com/mvaldezh/whisperlink-backend/pkg/logger"
)

const (
	maxContentLength = 2000

	notificationText = "Someone sent an anonymous message"
	notificationLink = "/dashboard"
)

type notificationPublisher interface {
	Publish(ctx context.Context, recipientID uuid.UUID, kind enums.NotificationKind, text string, redirectPath *string) (*models.Notification, error)
}

type pusher interface {
	Trigger(ctx context.Context, channel, event string, payload any) error
}

// Service accepts anonymous messages from the public share link.
type Service interface {
	Send(ctx context.Context, username, content string) (*models.Message, error)
}

type service struct {
	users     users.Repository
	repo      Repository
	publisher notificationPublisher
	pusher    pusher
	logg      *logger.Logger
}

// NewService wires the message producer.
func NewService(usersRepo users.Repository, repo Repository, publisher notificationPublisher, push pusher, logg *logger.Logger) (Service, error) {
	if usersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "messages repository required")
	}
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification publisher required")
	}
	if push == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "push transport required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		users:     usersRepo,
		repo:      repo,
		publisher: publisher,
		pusher:    push,
		logg:      logg,
	}, nil
}

// Send resolves the recipient, persists the message, pushes it to the live
// message stream, and publishes exactly one notification.
func (s *service) Send(ctx context.Context, username, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message content required")
	}
	if len(content) > maxContentLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message content too long")
	}

	recipient, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve recipient")
	}
	if !recipient.AcceptingMessages {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user is not accepting messages")
	}

	message := &models.Message{
		RecipientID: recipient.ID,
		Content:     content,
	}
	if err := s.repo.Create(ctx, message); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist message")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"message_id":   message.ID.String(),
		"recipient_id": recipient.ID.String(),
	})

	// Live delivery of the message itself is best effort.
	channel := realtime.MessageChannel(recipient.ID)
	if err := s.pusher.Trigger(ctx, channel, realtime.EventNewMessage, message); err != nil {
		s.logg.Warn(s.logg.WithChannel(logCtx, channel), "message push failed")
	}

	link := notificationLink
	if _, err := s.publisher.Publish(ctx, recipient.ID, enums.NotificationKindAnonymousMessage, notificationText, &link); err != nil {
		// The message is stored; a lost notification is not worth failing the send.
		s.logg.Error(logCtx, "publishing message notification failed", err)
	}

	s.logg.Info(logCtx, "anonymous message accepted")
	return message, nil
}
