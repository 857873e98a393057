package models

import (
	"time"

	"github.com/google/uuid"
)

// User owns a share link for anonymous messages and a feedback page slug.
type User struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username          string    `gorm:"type:text;not null;uniqueIndex" json:"username"`
	AcceptingMessages bool      `gorm:"not null;default:true" json:"acceptingMessages"`
	FeedbackSlug      string    `gorm:"type:text;uniqueIndex" json:"feedbackSlug"`
	CreatedAt         time.Time `gorm:"type:timestamptz;not null" json:"createdAt"`
}
