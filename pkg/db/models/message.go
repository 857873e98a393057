package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is one anonymous message sent to a recipient's inbox.
type Message struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RecipientID uuid.UUID `gorm:"type:uuid;not null;index" json:"recipientId"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	CreatedAt   time.Time `gorm:"type:timestamptz;not null" json:"createdAt"`
}
