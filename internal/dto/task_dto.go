package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest-backend/internal/models"
)

type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	Priority    string     `json:"priority,omitempty"`
	AssignedTo  *uuid.UUID `json:"assigned_to,omitempty"`
	GroupID     *uuid.UUID `json:"group_id,omitempty"`
}

// UpdateTaskRequest is the patch shape for partial updates: only
// non-nil fields are applied.
type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Priority    *string    `json:"priority"`
	AssignedTo  *uuid.UUID `json:"assigned_to"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// TaskListFilter carries the whitelisted query parameters for GET /tasks.
type TaskListFilter struct {
	Status     string
	Priority   string
	StartDate  *time.Time
	EndDate    *time.Time
	AssignedTo *uuid.UUID
	GroupID    *uuid.UUID
	SortBy     string
	SortOrder  string
	Page       int
	Limit      int
}

type TaskListResponse struct {
	Tasks      []models.Task `json:"tasks"`
	Pagination Pagination    `json:"pagination"`
}

type TaskUpdatesResponse struct {
	Updates []models.TaskUpdate `json:"updates"`
}

type SweepResponse struct {
	SweptCount int `json:"swept_count"`
}
