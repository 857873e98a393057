package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mvaldezh/whisperlink-backend/internal/users"
	"github.com/mvaldezh/whisperlink-backend/pkg/db/models"
	"github.com/mvaldezh/whisperlink-backend/pkg/enums"
	pkgerrors "github.com/mvaldezh/whisperlink-backend/pkg/errors"
	"github.com/mvaldezh/whisperlink-backend/pkg/logger"
)

const notificationText = "Someone submitted feedback"

type notificationPublisher interface {
	Publish(ctx context.Context, recipientID uuid.UUID, kind enums.NotificationKind, text string, redirectPath *string) (*models.Notification, error)
}

// Service accepts anonymous feedback from public feedback pages.
type Service interface {
	Submit(ctx context.Context, slug, comment string, answers json.RawMessage) (*models.Feedback, error)
}

type service struct {
	users     users.Repository
	repo      Repository
	publisher notificationPublisher
	logg      *logger.Logger
}

// NewService wires the feedback producer.
func NewService(usersRepo users.Repository, repo Repository, publisher notificationPublisher, logg *logger.Logger) (Service, error) {
	if usersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "feedback repository required")
	}
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification publisher required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		users:     usersRepo,
		repo:      repo,
		publisher: publisher,
		logg:      logg,
	}, nil
}

// Submit resolves the page owner, persists the submission, and publishes
// exactly one notification pointing at it.
func (s *service) Submit(ctx context.Context, slug, comment string, answers json.RawMessage) (*models.Feedback, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "feedback slug required")
	}
	comment = strings.TrimSpace(comment)
	if comment == "" && len(answers) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "feedback comment or answers required")
	}

	owner, err := s.users.GetByFeedbackSlug(ctx, slug)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "feedback page not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve feedback page")
	}

	submission := &models.Feedback{
		RecipientID: owner.ID,
		Slug:        slug,
		Comment:     comment,
		Answers:     answers,
	}
	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist feedback")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"feedback_id":  submission.ID.String(),
		"recipient_id": owner.ID.String(),
	})

	link := fmt.Sprintf("/feedbacks/%s", submission.ID)
	if _, err := s.publisher.Publish(ctx, owner.ID, enums.NotificationKindAnonymousFeedback, notificationText, &link); err != nil {
		s.logg.Error(logCtx, "publishing feedback notification failed", err)
	}

	s.logg.Info(logCtx, "anonymous feedback accepted")
	return submission, nil
}
