package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest-backend/internal/authz"
	"github.com/tasknest/tasknest-backend/internal/dto"
	"github.com/tasknest/tasknest-backend/internal/models"
	"github.com/tasknest/tasknest-backend/internal/scopes"
	"gorm.io/gorm"
)

var (
	ErrGroupNameTaken    = errors.New("you already have an active group with this name")
	ErrGroupAdminOnly    = errors.New("only group admins can create groups")
	ErrAlreadyMember     = errors.New("user is already a member of this group")
	ErrNotAMember        = errors.New("user is not a member of this group")
	ErrCannotRemoveAdmin = errors.New("the group admin cannot be removed from the group")
	ErrMemberNotFound    = errors.New("no active user with this email")
)

type GroupService struct {
	db *gorm.DB
}

func NewGroupService(db *gorm.DB) *GroupService {
	return &GroupService{db: db}
}

// Create inserts the group row plus the owner's admin membership edge
// in one transaction. Group names are unique per admin among active
// groups only; a deleted group's name can be reused.
func (s *GroupService) Create(admin *models.User, req *dto.CreateGroupRequest) (*models.Group, error) {
	if admin.UserType != models.UserTypeGroupAdmin && admin.UserType != models.UserTypeSuperadmin {
		return nil, ErrGroupAdminOnly
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.New("group name is required")
	}

	var existing models.Group
	err := s.db.Scopes(scopes.Active).
		Where("admin_id = ? AND name = ?", admin.ID, name).
		First(&existing).Error
	if err == nil {
		return nil, ErrGroupNameTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	group := models.Group{
		ID:          uuid.New(),
		Name:        name,
		Description: req.Description,
		AdminID:     admin.ID,
		IsActive:    true,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		edge := models.GroupMember{
			ID:       uuid.New(),
			GroupID:  group.ID,
			UserID:   admin.ID,
			Role:     models.GroupRoleAdmin,
			JoinedAt: time.Now().UTC(),
		}
		return tx.Create(&edge).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	return &group, nil
}

func (s *GroupService) Get(userID, groupID uuid.UUID) (*authz.GroupGrant, error) {
	return authz.GroupAccess(s.db, userID, groupID)
}

// List returns groups the user administers or belongs to.
func (s *GroupService) List(userID uuid.UUID, page, limit int) ([]models.Group, int64, error) {
	page, limit = dto.NormalizePage(page, limit)

	memberOf := s.db.Model(&models.GroupMember{}).Select("group_id").Where("user_id = ?", userID)

	var total int64
	err := s.db.Model(&models.Group{}).Scopes(scopes.Active).
		Where("admin_id = ? OR id IN (?)", userID, memberOf).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var groups []models.Group
	err = s.db.Scopes(scopes.Active).
		Where("admin_id = ? OR id IN (?)", userID, memberOf).
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&groups).Error
	return groups, total, err
}

// Update patches name/description. Admin only.
func (s *GroupService) Update(userID, groupID uuid.UUID, req *dto.UpdateGroupRequest) (*models.Group, error) {
	grant, err := authz.GroupAccess(s.db, userID, groupID)
	if err != nil {
		return nil, err
	}
	if grant.Group.AdminID != userID {
		return nil, authz.ErrForbidden
	}
	group := grant.Group

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, errors.New("group name is required")
		}
		if name != group.Name {
			var dup models.Group
			err := s.db.Scopes(scopes.Active).
				Where("admin_id = ? AND name = ? AND id <> ?", userID, name, groupID).
				First(&dup).Error
			if err == nil {
				return nil, ErrGroupNameTaken
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
		group.Name = name
	}
	if req.Description != nil {
		group.Description = *req.Description
	}

	if err := s.db.Save(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// AddMember resolves the user by email; only active users can join.
func (s *GroupService) AddMember(adminID, groupID uuid.UUID, req *dto.AddMemberRequest) (*models.GroupMember, error) {
	grant, err := authz.GroupAccess(s.db, adminID, groupID)
	if err != nil {
		return nil, err
	}
	if grant.Group.AdminID != adminID {
		return nil, authz.ErrForbidden
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	var user models.User
	if err := s.db.Scopes(scopes.Active).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	var existing models.GroupMember
	err = s.db.Where("group_id = ? AND user_id = ?", groupID, user.ID).First(&existing).Error
	if err == nil {
		return nil, ErrAlreadyMember
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = models.GroupRoleMember
	}
	if role != models.GroupRoleMember && role != models.GroupRoleAdmin {
		return nil, errors.New("role must be admin or member")
	}

	edge := models.GroupMember{
		ID:       uuid.New(),
		GroupID:  groupID,
		UserID:   user.ID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.db.Create(&edge).Error; err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	return &edge, nil
}

// RemoveMember deletes the membership edge. The owning admin's own
// edge is never removable, regardless of how many other members exist.
func (s *GroupService) RemoveMember(adminID, groupID, userID uuid.UUID) error {
	grant, err := authz.GroupAccess(s.db, adminID, groupID)
	if err != nil {
		return err
	}
	if grant.Group.AdminID != adminID {
		return authz.ErrForbidden
	}

	if userID == grant.Group.AdminID {
		return ErrCannotRemoveAdmin
	}

	result := s.db.Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.GroupMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotAMember
	}
	return nil
}

func (s *GroupService) ListMembers(userID, groupID uuid.UUID) ([]dto.MemberResponse, error) {
	if _, err := authz.GroupAccess(s.db, userID, groupID); err != nil {
		return nil, err
	}

	var edges []models.GroupMember
	err := s.db.Preload("User").
		Where("group_id = ?", groupID).
		Order("joined_at ASC").
		Find(&edges).Error
	if err != nil {
		return nil, err
	}

	members := make([]dto.MemberResponse, 0, len(edges))
	for _, e := range edges {
		members = append(members, dto.MemberResponse{
			UserID:   e.UserID,
			Email:    e.User.Email,
			Name:     e.User.FullName(),
			Role:     e.Role,
			JoinedAt: e.JoinedAt,
		})
	}
	return members, nil
}

// Delete soft-deletes the group and cascades a soft-delete to all its
// tasks in the same transaction. Tasks keep their group_id so history
// stays reconstructable, but every listing excludes them.
func (s *GroupService) Delete(adminID, groupID uuid.UUID) error {
	grant, err := authz.GroupAccess(s.db, adminID, groupID)
	if err != nil {
		return err
	}
	if grant.Group.AdminID != adminID {
		return authz.ErrForbidden
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Group{}).
			Where("id = ?", groupID).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.Task{}).
			Where("group_id = ?", groupID).
			Update("is_active", false).Error
	})
}
