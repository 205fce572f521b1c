package models

import (
	"time"

	"github.com/google/uuid"
)

// Reminder frequency bounds in minutes.
const (
	MinReminderFrequency = 15
	MaxReminderFrequency = 1440
)

// UserSettings holds per-user delivery preferences. One row per user,
// created lazily on first access with defaults.
type UserSettings struct {
	ID                    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	WhatsAppNotifications bool      `gorm:"not null;default:true" json:"whatsapp_notifications"`
	EmailNotifications    bool      `gorm:"not null;default:true" json:"email_notifications"`
	SMSNotifications      bool      `gorm:"not null;default:false" json:"sms_notifications"`
	ReminderFrequency     int       `gorm:"not null;default:60" json:"reminder_frequency"`
	Timezone              string    `gorm:"size:64;not null;default:'UTC'" json:"timezone"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// ChannelEnabled reports whether the given channel is switched on.
func (s *UserSettings) ChannelEnabled(channel string) bool {
	switch channel {
	case ChannelWhatsApp:
		return s.WhatsAppNotifications
	case ChannelEmail:
		return s.EmailNotifications
	case ChannelSMS:
		return s.SMSNotifications
	}
	return false
}
