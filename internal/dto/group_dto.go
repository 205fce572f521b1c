package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest-backend/internal/models"
)

type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateGroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type AddMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

type GroupResponse struct {
	Group models.Group `json:"group"`
	Role  string       `json:"role"`
}

type GroupListResponse struct {
	Groups     []models.Group `json:"groups"`
	Pagination Pagination     `json:"pagination"`
}

type MemberResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}
