package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mvaldezh/whisperlink-backend/pkg/enums"
)

// Notification is one durable event in a recipient's notification log.
// For a fixed recipient the log is totally ordered by (CreatedAt, ID).
// Viewed only ever transitions false to true; Deleted is a soft-delete
// tombstone and rows are never removed by API mutations.
type Notification struct {
	ID           uuid.UUID              `gorm:"type:uuid;primaryKey" json:"id"`
	RecipientID  uuid.UUID              `gorm:"type:uuid;not null;index:idx_notifications_recipient_created" json:"recipientId"`
	Kind         enums.NotificationKind `gorm:"type:text;not null" json:"kind"`
	Text         string                 `gorm:"type:text;not null" json:"text"`
	RedirectPath *string                `gorm:"type:text" json:"redirectPath,omitempty"`
	Viewed       bool                   `gorm:"not null;default:false" json:"viewed"`
	Deleted      bool                   `gorm:"not null;default:false" json:"-"`
	CreatedAt    time.Time              `gorm:"type:timestamptz;not null;index:idx_notifications_recipient_created" json:"createdAt"`
}
