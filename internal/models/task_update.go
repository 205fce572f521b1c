package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskUpdate is an append-only audit row. The seed row of a task has
// OldStatus nil; the terminal row of a deleted task has NewStatus nil.
// Rows are never updated or deleted while the task exists.
type TaskUpdate struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID    uuid.UUID `gorm:"type:uuid;not null;index" json:"task_id"`
	UpdatedBy uuid.UUID `gorm:"type:uuid;not null" json:"updated_by"`
	OldStatus *string   `gorm:"size:20" json:"old_status"`
	NewStatus *string   `gorm:"size:20" json:"new_status"`
	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Task  Task `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
	Actor User `gorm:"foreignKey:UpdatedBy;constraint:OnDelete:CASCADE" json:"-"`
}
