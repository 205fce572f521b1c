// Package authz is the access-control layer: given a principal and a
// target resource it decides read/write eligibility from current
// group/task state. Nothing is cached between requests.
package authz

import (
	"errors"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest-backend/internal/models"
	"github.com/tasknest/tasknest-backend/internal/scopes"
	"gorm.io/gorm"
)

var (
	ErrGroupNotFound = errors.New("group not found")
	ErrTaskNotFound  = errors.New("task not found")
	ErrForbidden     = errors.New("you do not have access to this resource")
)

// GroupGrant is the resolved context attached to a permitted group access.
type GroupGrant struct {
	Group   models.Group
	Role    string
	IsAdmin bool
}

// GroupAccess permits the group's admin and anyone holding a membership
// edge. Inactive or absent groups report not-found, never forbidden.
func GroupAccess(db *gorm.DB, userID, groupID uuid.UUID) (*GroupGrant, error) {
	var group models.Group
	if err := db.Scopes(scopes.Active).First(&group, "id = ?", groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	if group.AdminID == userID {
		return &GroupGrant{Group: group, Role: models.GroupRoleAdmin, IsAdmin: true}, nil
	}

	var edge models.GroupMember
	err := db.Where("group_id = ? AND user_id = ?", groupID, userID).First(&edge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	return &GroupGrant{Group: group, Role: edge.Role, IsAdmin: edge.Role == models.GroupRoleAdmin}, nil
}

// TaskAccess permits the task's creator, its assignee, or the admin of
// its group. The group-admin path requires the group row to still be
// active: once a group is soft-deleted, only direct creator/assignee
// access remains.
func TaskAccess(db *gorm.DB, userID, taskID uuid.UUID) (*models.Task, error) {
	var task models.Task
	if err := db.Scopes(scopes.Active).First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	if task.CreatedBy == userID || task.AssignedTo == userID {
		return &task, nil
	}

	if task.GroupID != nil {
		var group models.Group
		err := db.Scopes(scopes.Active).First(&group, "id = ?", *task.GroupID).Error
		if err == nil && group.AdminID == userID {
			return &task, nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	return nil, ErrForbidden
}

// MutationGrant is the field-level write policy for a task.
type MutationGrant struct {
	CanChangeStatus bool
	CanReassign     bool
	IsGroupAdmin    bool
}

// TaskMutation computes the allowed field set for a principal who has
// already passed TaskAccess. Status changes are open to creator,
// assignee and group admin; reassignment to creator and group admin only.
func TaskMutation(db *gorm.DB, userID uuid.UUID, task *models.Task) (MutationGrant, error) {
	grant := MutationGrant{}

	if task.GroupID != nil {
		var group models.Group
		err := db.Scopes(scopes.Active).First(&group, "id = ?", *task.GroupID).Error
		if err == nil && group.AdminID == userID {
			grant.IsGroupAdmin = true
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return grant, err
		}
	}

	isCreator := task.CreatedBy == userID
	isAssignee := task.AssignedTo == userID

	grant.CanChangeStatus = isCreator || isAssignee || grant.IsGroupAdmin
	grant.CanReassign = isCreator || grant.IsGroupAdmin
	return grant, nil
}

// IsGroupMember reports whether userID holds a membership edge on the
// group or is its admin. The group's admin is implicitly a member.
func IsGroupMember(db *gorm.DB, groupID, userID uuid.UUID) (bool, error) {
	var group models.Group
	if err := db.Scopes(scopes.Active).First(&group, "id = ?", groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrGroupNotFound
		}
		return false, err
	}
	if group.AdminID == userID {
		return true, nil
	}

	var count int64
	err := db.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
