package feedback

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvaldezh/whisperlink-backend/pkg/db/models"
)

// Repository persists anonymous feedback submissions.
type Repository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a feedback repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Create(ctx context.Context, feedback *models.Feedback) error {
	if feedback.ID == uuid.Nil {
		feedback.ID = uuid.New()
	}
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(feedback).Error
}
