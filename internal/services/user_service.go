package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest-backend/internal/dto"
	"github.com/tasknest/tasknest-backend/internal/models"
	"github.com/tasknest/tasknest-backend/internal/scopes"
	"gorm.io/gorm"
)

var ErrBadReminderFrequency = errors.New("reminder_frequency must be between 15 and 1440 minutes")

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) Get(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.Scopes(scopes.Active).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(userID uuid.UUID, req *dto.UpdateProfileRequest) (*models.User, error) {
	user, err := s.Get(userID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		if strings.TrimSpace(*req.FirstName) == "" {
			return nil, errors.New("first_name cannot be empty")
		}
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		if strings.TrimSpace(*req.LastName) == "" {
			return nil, errors.New("last_name cannot be empty")
		}
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}

	if err := s.db.Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Deactivate soft-deletes the account and revokes its sessions. The
// row stays for audit history.
func (s *UserService) Deactivate(userID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).
			Where("id = ? AND is_active = ?", userID, true).
			Update("is_active", false)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return tx.Model(&models.RefreshToken{}).
			Where("user_id = ?", userID).
			Update("revoked", true).Error
	})
}

// Dashboard aggregates the caller's task counts and group membership.
func (s *UserService) Dashboard(userID uuid.UUID) (*dto.DashboardResponse, error) {
	resp := &dto.DashboardResponse{
		TasksByStatus:   make(map[string]int64),
		TasksByPriority: make(map[string]int64),
	}

	own := func() *gorm.DB {
		return s.db.Model(&models.Task{}).Scopes(scopes.Active).
			Where("created_by = ? OR assigned_to = ?", userID, userID)
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var byStatus []bucket
	if err := own().Select("status AS key, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, b := range byStatus {
		resp.TasksByStatus[b.Key] = b.Count
		if b.Key == models.TaskStatusOverdue {
			resp.OverdueCount = b.Count
		}
	}

	var byPriority []bucket
	if err := own().Select("priority AS key, COUNT(*) AS count").Group("priority").Scan(&byPriority).Error; err != nil {
		return nil, err
	}
	for _, b := range byPriority {
		resp.TasksByPriority[b.Key] = b.Count
	}

	if err := s.db.Model(&models.Group{}).Scopes(scopes.Active).
		Where("admin_id = ?", userID).
		Count(&resp.GroupsOwned).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.GroupMember{}).
		Joins("JOIN groups ON groups.id = group_members.group_id AND groups.is_active = ?", true).
		Where("group_members.user_id = ? AND group_members.role = ?", userID, models.GroupRoleMember).
		Count(&resp.GroupsJoined).Error; err != nil {
		return nil, err
	}

	return resp, nil
}

// Search matches active users on email or name, paginated.
func (s *UserService) Search(query string, page, limit int) ([]models.User, int64, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, 0, errors.New("search query must be at least 2 characters")
	}
	page, limit = dto.NormalizePage(page, limit)

	pattern := "%" + strings.ToLower(query) + "%"
	match := "LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?"

	var total int64
	err := s.db.Model(&models.User{}).Scopes(scopes.Active).
		Where(match, pattern, pattern, pattern).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var users []models.User
	err = s.db.Scopes(scopes.Active).
		Where(match, pattern, pattern, pattern).
		Order("email ASC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&users).Error
	return users, total, err
}

// Settings returns the user's notification preferences, creating the
// row with defaults on first access.
func (s *UserService) Settings(userID uuid.UUID) (*models.UserSettings, error) {
	var settings models.UserSettings
	err := s.db.Where("user_id = ?", userID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.UserSettings{
			ID:                    uuid.New(),
			UserID:                userID,
			WhatsAppNotifications: true,
			EmailNotifications:    true,
			SMSNotifications:      false,
			ReminderFrequency:     60,
			Timezone:              "UTC",
		}
		if createErr := s.db.Create(&settings).Error; createErr != nil {
			return nil, createErr
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *UserService) UpdateSettings(userID uuid.UUID, req *dto.UpdateSettingsRequest) (*models.UserSettings, error) {
	settings, err := s.Settings(userID)
	if err != nil {
		return nil, err
	}

	if req.WhatsAppNotifications != nil {
		settings.WhatsAppNotifications = *req.WhatsAppNotifications
	}
	if req.EmailNotifications != nil {
		settings.EmailNotifications = *req.EmailNotifications
	}
	if req.SMSNotifications != nil {
		settings.SMSNotifications = *req.SMSNotifications
	}
	if req.ReminderFrequency != nil {
		if *req.ReminderFrequency < models.MinReminderFrequency || *req.ReminderFrequency > models.MaxReminderFrequency {
			return nil, ErrBadReminderFrequency
		}
		settings.ReminderFrequency = *req.ReminderFrequency
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return nil, errors.New("invalid timezone")
		}
		settings.Timezone = *req.Timezone
	}

	if err := s.db.Save(settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}
