package models

import (
	"time"

	"github.com/google/uuid"
)

// Membership roles on a group edge.
const (
	GroupRoleAdmin  = "admin"
	GroupRoleMember = "member"
)

type Group struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	AdminID     uuid.UUID `gorm:"type:uuid;not null;index" json:"admin_id"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Admin User `gorm:"foreignKey:AdminID;constraint:OnDelete:CASCADE" json:"-"`
}

// GroupMember is the membership edge. Exactly one row per (group, user);
// the owning admin's edge is created together with the group and cannot
// be removed.
type GroupMember struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GroupID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_group_members_group_user" json:"group_id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_group_members_group_user" json:"user_id"`
	Role     string    `gorm:"size:20;not null;default:'member'" json:"role"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`

	Group Group `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"-"`
	User  User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
