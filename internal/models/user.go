package models

import (
	"time"

	"github.com/google/uuid"
)

// User types. Superadmin is an operator role; group_admin may own groups.
const (
	UserTypeIndividual = "individual"
	UserTypeGroupAdmin = "group_admin"
	UserTypeSuperadmin = "superadmin"
)

func ValidUserType(t string) bool {
	switch t {
	case UserTypeIndividual, UserTypeGroupAdmin, UserTypeSuperadmin:
		return true
	}
	return false
}

// User is never hard-deleted; deactivation flips IsActive and the row
// stays for audit history.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	FirstName    string    `gorm:"size:100;not null" json:"first_name"`
	LastName     string    `gorm:"size:100;not null" json:"last_name"`
	Phone        *string   `gorm:"size:20" json:"phone,omitempty"`
	UserType     string    `gorm:"size:20;not null;default:'individual'" json:"user_type"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName joins the display name pair.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
