package services

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasknest/tasknest-backend/internal/dto"
	"github.com/tasknest/tasknest-backend/internal/models"
	"github.com/tasknest/tasknest-backend/internal/notify"
	"gorm.io/gorm"
)

type fakeTransport struct {
	recipients []string
	messages   []string
	err        error
}

func (f *fakeTransport) Send(recipient, message string) error {
	if f.err != nil {
		return f.err
	}
	f.recipients = append(f.recipients, recipient)
	f.messages = append(f.messages, message)
	return nil
}

// capturePublisher stands in for the queue producer so dispatch stays
// synchronous and observable.
type capturePublisher struct {
	events [][]byte
}

func (p *capturePublisher) PublishMessage(_, value []byte) error {
	p.events = append(p.events, value)
	return nil
}

func newNotificationFixture(t *testing.T, transport notify.Transport) (*gorm.DB, *NotificationService, *capturePublisher, *models.User) {
	t.Helper()

	db := newTestDB(t)
	router := notify.NewRouter()
	router.Register(models.ChannelEmail, transport)
	router.Register(models.ChannelWhatsApp, transport)

	producer := &capturePublisher{}
	svc := NewNotificationService(db, NewUserService(db), router, producer)
	user := createUser(t, db, "user@example.com", models.UserTypeIndividual)
	return db, svc, producer, user
}

func TestSendValidation(t *testing.T) {
	_, svc, _, user := newNotificationFixture(t, &fakeTransport{})

	_, err := svc.Send(user.ID, nil, "pigeon", "hello")
	assert.ErrorIs(t, err, ErrInvalidChannel)

	_, err = svc.Send(user.ID, nil, models.ChannelEmail, "")
	assert.Error(t, err)

	// SMS is off by default.
	_, err = svc.Send(user.ID, nil, models.ChannelSMS, "hello")
	assert.ErrorIs(t, err, ErrChannelDisabled)
}

func TestSendRequiresPhoneForWhatsApp(t *testing.T) {
	db, svc, _, user := newNotificationFixture(t, &fakeTransport{})

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("phone", nil).Error)

	_, err := svc.Send(user.ID, nil, models.ChannelWhatsApp, "hello")
	assert.ErrorIs(t, err, ErrNoPhoneNumber)
}

func TestSendPublishesDispatchEvent(t *testing.T) {
	_, svc, producer, user := newNotificationFixture(t, &fakeTransport{})

	entry, err := svc.Send(user.ID, nil, models.ChannelEmail, "hello")
	require.NoError(t, err)
	assert.Equal(t, models.NotificationPending, entry.Status)

	require.Len(t, producer.events, 1)
	var event DispatchEvent
	require.NoError(t, json.Unmarshal(producer.events[0], &event))
	assert.Equal(t, entry.ID, event.LogID)
}

func TestDeliverMarksSent(t *testing.T) {
	db, svc, producer, user := newNotificationFixture(t, &fakeTransport{})

	entry, err := svc.Send(user.ID, nil, models.ChannelEmail, "hello")
	require.NoError(t, err)

	// The consumer path: the published event is handed back in.
	require.NoError(t, svc.HandleMessage(producer.events[0]))

	var stored models.NotificationLog
	require.NoError(t, db.First(&stored, "id = ?", entry.ID).Error)
	assert.Equal(t, models.NotificationSent, stored.Status)
	assert.NotNil(t, stored.SentAt)

	// Redelivery of the same event is a no-op.
	require.NoError(t, svc.HandleMessage(producer.events[0]))

	require.NoError(t, db.First(&stored, "id = ?", entry.ID).Error)
	assert.Equal(t, models.NotificationSent, stored.Status)
}

func TestDeliverRecordsTransportAndRecipient(t *testing.T) {
	transport := &fakeTransport{}
	_, svc, _, user := newNotificationFixture(t, transport)

	entry, err := svc.Send(user.ID, nil, models.ChannelEmail, "hello there")
	require.NoError(t, err)
	require.NoError(t, svc.Deliver(entry.ID))

	require.Len(t, transport.recipients, 1)
	assert.Equal(t, user.Email, transport.recipients[0])
	assert.Equal(t, "hello there", transport.messages[0])
}

func TestDeliverFailureAndRetryCap(t *testing.T) {
	transport := &fakeTransport{err: errors.New("smtp connection refused")}
	db, svc, _, user := newNotificationFixture(t, transport)

	entry, err := svc.Send(user.ID, nil, models.ChannelEmail, "hello")
	require.NoError(t, err)

	require.NoError(t, svc.Deliver(entry.ID))

	var stored models.NotificationLog
	require.NoError(t, db.First(&stored, "id = ?", entry.ID).Error)
	assert.Equal(t, models.NotificationFailed, stored.Status)
	assert.Equal(t, "smtp connection refused", stored.ErrorMessage)

	// Three retries are allowed, each failing again.
	for i := 1; i <= models.MaxNotificationRetries; i++ {
		retried, err := svc.Retry(user.ID, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, models.NotificationPending, retried.Status)
		assert.Equal(t, i, retried.RetryCount)
		require.NoError(t, svc.Deliver(entry.ID))
	}

	_, err = svc.Retry(user.ID, entry.ID)
	assert.ErrorIs(t, err, ErrRetryLimitExceeded)
}

func TestRetryOnlyFailed(t *testing.T) {
	_, svc, _, user := newNotificationFixture(t, &fakeTransport{})

	entry, err := svc.Send(user.ID, nil, models.ChannelEmail, "hello")
	require.NoError(t, err)

	// Still pending.
	_, err = svc.Retry(user.ID, entry.ID)
	assert.ErrorIs(t, err, ErrNotRetryable)

	require.NoError(t, svc.Deliver(entry.ID))
	_, err = svc.Retry(user.ID, entry.ID)
	assert.ErrorIs(t, err, ErrNotRetryable)

	// Another user's log is invisible.
	db := svc.db
	other := createUser(t, db, "other@example.com", models.UserTypeIndividual)
	_, err = svc.Retry(other.ID, entry.ID)
	assert.ErrorIs(t, err, ErrLogNotFound)
}

func TestMarkDelivered(t *testing.T) {
	db, svc, _, user := newNotificationFixture(t, &fakeTransport{})

	entry, err := svc.Send(user.ID, nil, models.ChannelEmail, "hello")
	require.NoError(t, err)

	// Receipts only apply to sent notifications.
	err = svc.MarkDelivered(entry.ID)
	assert.ErrorIs(t, err, ErrLogNotFound)

	require.NoError(t, svc.Deliver(entry.ID))
	require.NoError(t, svc.MarkDelivered(entry.ID))

	var stored models.NotificationLog
	require.NoError(t, db.First(&stored, "id = ?", entry.ID).Error)
	assert.Equal(t, models.NotificationDelivered, stored.Status)
	assert.NotNil(t, stored.DeliveredAt)
}

func TestNotificationListAndStats(t *testing.T) {
	_, svc, _, user := newNotificationFixture(t, &fakeTransport{})

	sent, err := svc.Send(user.ID, nil, models.ChannelEmail, "one")
	require.NoError(t, err)
	require.NoError(t, svc.Deliver(sent.ID))

	_, err = svc.Send(user.ID, nil, models.ChannelWhatsApp, "two")
	require.NoError(t, err)

	logs, total, err := svc.List(user.ID, "", "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, logs, 2)

	logs, total, err = svc.List(user.ID, models.NotificationSent, "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, logs, 1)
	assert.Equal(t, sent.ID, logs[0].ID)

	_, total, err = svc.List(user.ID, "", models.ChannelWhatsApp, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	stats, err := svc.Stats(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 1, stats.ByStatus[models.NotificationSent])
	assert.EqualValues(t, 1, stats.ByStatus[models.NotificationPending])
	assert.EqualValues(t, 1, stats.ByChannel[models.ChannelEmail])
	assert.EqualValues(t, 1, stats.ByChannel[models.ChannelWhatsApp])
}

func TestHandleMessageMalformed(t *testing.T) {
	_, svc, _, _ := newNotificationFixture(t, &fakeTransport{})
	assert.Error(t, svc.HandleMessage([]byte("not json")))
}

func TestSendTiesLogToTask(t *testing.T) {
	_, svc, _, user := newNotificationFixture(t, &fakeTransport{})
	db := svc.db
	task := createTask(t, db, user, &dto.CreateTaskRequest{Title: "reminder target"})

	entry, err := svc.Send(user.ID, &task.ID, models.ChannelEmail, "reminder")
	require.NoError(t, err)
	require.NotNil(t, entry.TaskID)
	assert.Equal(t, task.ID, *entry.TaskID)
}
