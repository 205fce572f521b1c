package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
)

const (
	NotificationPending   = "pending"
	NotificationSent      = "sent"
	NotificationFailed    = "failed"
	NotificationDelivered = "delivered"
)

// MaxNotificationRetries caps manual retries; after the third failure
// the log row is terminally failed.
const MaxNotificationRetries = 3

func ValidChannel(c string) bool {
	switch c {
	case ChannelWhatsApp, ChannelEmail, ChannelSMS:
		return true
	}
	return false
}

// NotificationLog records one outbound delivery attempt. TaskID is nil
// for ad-hoc test sends. The row is mutated in place as delivery
// progresses: pending -> sent/failed -> optionally delivered.
type NotificationLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID       *uuid.UUID     `gorm:"type:uuid;index" json:"task_id,omitempty"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Channel      string         `gorm:"size:20;not null" json:"channel"`
	Message      string         `gorm:"type:text;not null" json:"message"`
	Status       string         `gorm:"size:20;not null;default:'pending';index" json:"status"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
	DeliveredAt  *time.Time     `json:"delivered_at,omitempty"`
	ErrorMessage string         `gorm:"type:text" json:"error_message,omitempty"`
	RetryCount   int            `gorm:"not null;default:0" json:"retry_count"`
	Payload      datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	Task *Task `gorm:"foreignKey:TaskID;constraint:OnDelete:SET NULL" json:"-"`
	User User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
