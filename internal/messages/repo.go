package messages

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvaldezh/whisperlink-backend/pkg/db/models"
)

// Repository persists anonymous messages.
type Repository interface {
	Create(ctx context.Context, message *models.Message) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a messages repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Create(ctx context.Context, message *models.Message) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(message).Error
}
