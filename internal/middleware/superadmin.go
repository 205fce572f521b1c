package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tasknest/tasknest-backend/internal/authz"
	"github.com/tasknest/tasknest-backend/internal/dto"
	"github.com/tasknest/tasknest-backend/internal/models"
	"gorm.io/gorm"
)

// SuperadminRequired gates operator endpoints on the superadmin user
// type. Group admins do not pass; their privileges are scoped to their
// own groups and resolved per-resource in authz.
func SuperadminRequired(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := authz.Principal(c, db)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
		}

		if user.UserType != models.UserTypeSuperadmin {
			return c.Status(fiber.StatusForbidden).JSON(dto.Err("Superadmin access required"))
		}

		return c.Next()
	}
}
