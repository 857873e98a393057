package notifications

import (
	"context"

	"github.com/google/uuid"

	"github.com/mvaldezh/whisperlink-backend/pkg/db/models"
	pkgerrors "github.com/mvaldezh/whisperlink-backend/pkg/errors"
	"github.com/mvaldezh/whisperlink-backend/pkg/pagination"
)

// Service defines the recipient-facing notification operations.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkViewed(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error)
	SoftDelete(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error)
	ClearAll(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

type service struct {
	repo Repository
}

// ListParams configures pagination for the active notification list.
type ListParams struct {
	RecipientID uuid.UUID
	Limit       int
	Cursor      string
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notification dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.RecipientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}

	query := listActiveParams{
		RecipientID: params.RecipientID,
		Limit:       params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListActive(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{
		Items:  rows,
		Cursor: cursor,
	}, nil
}

func (s *service) MarkViewed(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if recipientID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	if len(ids) == 0 {
		return 0, nil
	}

	count, err := s.repo.MarkViewed(ctx, recipientID, ids)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications viewed")
	}
	return count, nil
}

func (s *service) SoftDelete(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if recipientID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	if len(ids) == 0 {
		return 0, nil
	}

	count, err := s.repo.SoftDelete(ctx, recipientID, ids)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete notifications")
	}
	return count, nil
}

func (s *service) ClearAll(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	if recipientID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}

	count, err := s.repo.ClearAll(ctx, recipientID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear notifications")
	}
	return count, nil
}
