package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvaldezh/whisperlink-backend/pkg/db/models"
	"github.com/mvaldezh/whisperlink-backend/pkg/pagination"
)

// Repository exposes persistence helpers for the notification log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, notification *models.Notification) error
	ListActive(ctx context.Context, params listActiveParams) ([]models.Notification, *pagination.Cursor, error)
	MarkViewed(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error)
	SoftDelete(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error)
	ClearAll(ctx context.Context, recipientID uuid.UUID) (int64, error)
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listActiveParams struct {
	RecipientID uuid.UUID
	Limit       int
	Cursor      *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// Append durably stores one event. The id and timestamp are assigned here so
// the append is deterministic regardless of database defaults.
func (r *repositoryImpl) Append(ctx context.Context, notification *models.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

// ListActive returns non-tombstoned events newest first, ordered by
// (created_at DESC, id DESC).
func (r *repositoryImpl) ListActive(ctx context.Context, params listActiveParams) ([]models.Notification, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND deleted = ?", params.RecipientID, false)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&notifications).Error; err != nil {
		return nil, nil, err
	}

	if len(notifications) > normalized {
		next := notifications[normalized]
		notifications = notifications[:normalized]
		return notifications, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return notifications, nil, nil
}

// MarkViewed flips viewed on the recipient's own, still-active rows. Ids the
// recipient does not own (and tombstones) fall out of the WHERE clause, so the
// call is idempotent and safe to repeat.
func (r *repositoryImpl) MarkViewed(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id IN ? AND recipient_id = ? AND viewed = ? AND deleted = ?", ids, recipientID, false, false).
		UpdateColumn("viewed", true)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SoftDelete tombstones the recipient's own rows. Rows stay in the table and
// are excluded from every read path.
func (r *repositoryImpl) SoftDelete(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id IN ? AND recipient_id = ? AND deleted = ?", ids, recipientID, false).
		UpdateColumn("deleted", true)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ClearAll tombstones every active row the recipient has.
func (r *repositoryImpl) ClearAll(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND deleted = ?", recipientID, false).
		UpdateColumn("deleted", true)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// PurgeDeletedBefore physically removes tombstones older than the cutoff.
// Only the retention cron calls this; API mutations never delete rows.
func (r *repositoryImpl) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("deleted = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
