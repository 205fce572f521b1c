package models

import (
	"time"

	"github.com/google/uuid"
)

// Task statuses. Overdue is entered from pending/in_progress when
// end_time passes without completion.
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusOverdue    = "overdue"
)

const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

// ValidTaskStatus reports whether s is one of the four task states.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusOverdue:
		return true
	}
	return false
}

func ValidTaskPriority(p string) bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Task rows are soft-deleted; GroupID is nulled when the owning group
// row is removed so direct creator/assignee access survives.
type Task struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	StartTime   time.Time  `gorm:"not null" json:"start_time"`
	EndTime     time.Time  `gorm:"not null" json:"end_time"`
	Priority    string     `gorm:"size:10;not null;default:'medium'" json:"priority"`
	Status      string     `gorm:"size:20;not null;default:'pending';index" json:"status"`
	CreatedBy   uuid.UUID  `gorm:"type:uuid;not null;index" json:"created_by"`
	AssignedTo  uuid.UUID  `gorm:"type:uuid;not null;index" json:"assigned_to"`
	GroupID     *uuid.UUID `gorm:"type:uuid;index" json:"group_id,omitempty"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Creator  User   `gorm:"foreignKey:CreatedBy;constraint:OnDelete:CASCADE" json:"-"`
	Assignee User   `gorm:"foreignKey:AssignedTo;constraint:OnDelete:CASCADE" json:"-"`
	Group    *Group `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"-"`
}
