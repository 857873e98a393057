package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvaldezh/whisperlink-backend/pkg/db/models"
)

// ErrNotFound reports a lookup miss; services map it to their own taxonomy.
var ErrNotFound = errors.New("user not found")

// Repository resolves recipients for the public producer endpoints.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByFeedbackSlug(ctx context.Context, slug string) (*models.User, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a users repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &user, nil
}

func (r *repositoryImpl) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &user, nil
}

func (r *repositoryImpl) GetByFeedbackSlug(ctx context.Context, slug string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("feedback_slug = ?", slug).First(&user).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &user, nil
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
