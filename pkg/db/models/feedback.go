package models

import (
	"time"

	"github.com/google/uuid"
)

// Feedback is one anonymous structured-feedback submission against a
// recipient's feedback page. Answers holds the raw submitted answer set.
type Feedback struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RecipientID uuid.UUID `gorm:"type:uuid;not null;index" json:"recipientId"`
	Slug        string    `gorm:"type:text;not null;index" json:"slug"`
	Comment     string    `gorm:"type:text;not null" json:"comment"`
	Answers     []byte    `gorm:"type:jsonb" json:"answers,omitempty"`
	CreatedAt   time.Time `gorm:"type:timestamptz;not null" json:"createdAt"`
}
