package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest-backend/internal/dto"
	"github.com/tasknest/tasknest-backend/internal/models"
	"github.com/tasknest/tasknest-backend/internal/notify"
	"github.com/tasknest/tasknest-backend/internal/queue"
	"github.com/tasknest/tasknest-backend/internal/scopes"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidChannel     = errors.New("channel must be whatsapp, email or sms")
	ErrChannelDisabled    = errors.New("this channel is disabled in your notification settings")
	ErrNoPhoneNumber      = errors.New("user has no phone number on record")
	ErrLogNotFound        = errors.New("notification log not found")
	ErrNotRetryable       = errors.New("only failed notifications can be retried")
	ErrRetryLimitExceeded = errors.New("retry limit reached; notification is terminally failed")
)

// DispatchEvent is the queue payload; the consumer re-reads everything
// else from the log row.
type DispatchEvent struct {
	LogID uuid.UUID `json:"log_id"`
}

// NotificationService records delivery attempts and hands them to the
// dispatch queue. Delivery is fire-and-forget: the triggering request
// never waits for, or fails on, the transport.
type NotificationService struct {
	db       *gorm.DB
	users    *UserService
	router   *notify.Router
	producer queue.Publisher
}

func NewNotificationService(db *gorm.DB, users *UserService, router *notify.Router, producer queue.Publisher) *NotificationService {
	return &NotificationService{db: db, users: users, router: router, producer: producer}
}

// Send logs a pending attempt and dispatches it. taskID is nil for
// ad-hoc test sends.
func (s *NotificationService) Send(userID uuid.UUID, taskID *uuid.UUID, channel, message string) (*models.NotificationLog, error) {
	if !models.ValidChannel(channel) {
		return nil, ErrInvalidChannel
	}
	if message == "" {
		return nil, errors.New("message is required")
	}

	settings, err := s.users.Settings(userID)
	if err != nil {
		return nil, err
	}
	if !settings.ChannelEnabled(channel) {
		return nil, ErrChannelDisabled
	}

	recipient, err := s.recipientFor(userID, channel)
	if err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(map[string]string{"recipient": recipient})

	entry := models.NotificationLog{
		ID:         uuid.New(),
		TaskID:     taskID,
		UserID:     userID,
		Channel:    channel,
		Message:    message,
		Status:     models.NotificationPending,
		RetryCount: 0,
		Payload:    datatypes.JSON(payload),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification log: %w", err)
	}

	s.dispatch(entry.ID)
	return &entry, nil
}

// Retry re-dispatches a failed notification, bounded at three attempts.
func (s *NotificationService) Retry(userID, logID uuid.UUID) (*models.NotificationLog, error) {
	var entry models.NotificationLog
	if err := s.db.Where("id = ? AND user_id = ?", logID, userID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLogNotFound
		}
		return nil, err
	}

	if entry.Status != models.NotificationFailed {
		return nil, ErrNotRetryable
	}
	if entry.RetryCount >= models.MaxNotificationRetries {
		return nil, ErrRetryLimitExceeded
	}

	err := s.db.Model(&entry).Updates(map[string]interface{}{
		"status":      models.NotificationPending,
		"retry_count": entry.RetryCount + 1,
	}).Error
	if err != nil {
		return nil, err
	}
	entry.Status = models.NotificationPending
	entry.RetryCount++

	s.dispatch(entry.ID)
	return &entry, nil
}

// List returns the caller's notification logs, newest first, optionally
// filtered by status and channel.
func (s *NotificationService) List(userID uuid.UUID, status, channel string, page, limit int) ([]models.NotificationLog, int64, error) {
	page, limit = dto.NormalizePage(page, limit)

	apply := func(q *gorm.DB) *gorm.DB {
		q = q.Where("user_id = ?", userID)
		if status != "" {
			q = q.Where("status = ?", status)
		}
		if channel != "" {
			q = q.Where("channel = ?", channel)
		}
		return q
	}

	var total int64
	if err := apply(s.db.Model(&models.NotificationLog{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.NotificationLog
	err := apply(s.db.Model(&models.NotificationLog{})).
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&logs).Error
	return logs, total, err
}

func (s *NotificationService) Stats(userID uuid.UUID) (*dto.NotificationStats, error) {
	stats := &dto.NotificationStats{
		ByStatus:  make(map[string]int64),
		ByChannel: make(map[string]int64),
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var byStatus []bucket
	err := s.db.Model(&models.NotificationLog{}).
		Where("user_id = ?", userID).
		Select("status AS key, COUNT(*) AS count").
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		return nil, err
	}
	for _, b := range byStatus {
		stats.ByStatus[b.Key] = b.Count
		stats.Total += b.Count
	}

	var byChannel []bucket
	err = s.db.Model(&models.NotificationLog{}).
		Where("user_id = ?", userID).
		Select("channel AS key, COUNT(*) AS count").
		Group("channel").
		Scan(&byChannel).Error
	if err != nil {
		return nil, err
	}
	for _, b := range byChannel {
		stats.ByChannel[b.Key] = b.Count
	}

	return stats, nil
}

// HandleMessage is the queue.Handler hook: the consumer worker calls it
// with a DispatchEvent payload.
func (s *NotificationService) HandleMessage(message []byte) error {
	var event DispatchEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return fmt.Errorf("malformed dispatch event: %w", err)
	}
	return s.Deliver(event.LogID)
}

// Deliver performs the transport call for a pending log row and flips
// it to sent or failed.
func (s *NotificationService) Deliver(logID uuid.UUID) error {
	var entry models.NotificationLog
	if err := s.db.First(&entry, "id = ?", logID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLogNotFound
		}
		return err
	}
	if entry.Status != models.NotificationPending {
		return nil
	}

	recipient, err := s.recipientFor(entry.UserID, entry.Channel)
	if err == nil {
		err = s.router.Send(entry.Channel, recipient, entry.Message)
	}

	if err != nil {
		return s.db.Model(&entry).Updates(map[string]interface{}{
			"status":        models.NotificationFailed,
			"error_message": err.Error(),
		}).Error
	}

	now := time.Now().UTC()
	return s.db.Model(&entry).Updates(map[string]interface{}{
		"status":  models.NotificationSent,
		"sent_at": now,
	}).Error
}

// MarkDelivered is the delivery-receipt hook for transports that report
// downstream confirmation.
func (s *NotificationService) MarkDelivered(logID uuid.UUID) error {
	now := time.Now().UTC()
	result := s.db.Model(&models.NotificationLog{}).
		Where("id = ? AND status = ?", logID, models.NotificationSent).
		Updates(map[string]interface{}{
			"status":       models.NotificationDelivered,
			"delivered_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLogNotFound
	}
	return nil
}

func (s *NotificationService) dispatch(logID uuid.UUID) {
	if s.producer != nil {
		event, _ := json.Marshal(DispatchEvent{LogID: logID})
		if err := s.producer.PublishMessage([]byte(logID.String()), event); err != nil {
			slog.Error("failed to publish dispatch event", "log_id", logID, "error", err)
		}
		return
	}

	// No broker configured: deliver in-process, still off the request path.
	go func() {
		if err := s.Deliver(logID); err != nil {
			slog.Error("notification delivery failed", "log_id", logID, "error", err)
		}
	}()
}

func (s *NotificationService) recipientFor(userID uuid.UUID, channel string) (string, error) {
	var user models.User
	if err := s.db.Scopes(scopes.Active).First(&user, "id = ?", userID).Error; err != nil {
		return "", ErrUserNotFound
	}

	switch channel {
	case models.ChannelEmail:
		return user.Email, nil
	case models.ChannelWhatsApp, models.ChannelSMS:
		if user.Phone == nil || *user.Phone == "" {
			return "", ErrNoPhoneNumber
		}
		return *user.Phone, nil
	}
	return "", ErrInvalidChannel
}
