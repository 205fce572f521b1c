package authz

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tasknest/tasknest-backend/internal/models"
	"github.com/tasknest/tasknest-backend/internal/scopes"
	"gorm.io/gorm"
)

var ErrPrincipalNotFound = errors.New("user not found or deactivated")

// CurrentUserID extracts the user UUID from JWT claims in context.
func CurrentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, errors.New("invalid token in context")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing sub claim")
	}

	return uuid.Parse(sub)
}

// Principal resolves the authenticated caller to an active user row.
// Authorization re-derives from current DB state on every request so
// deactivation and membership changes take immediate effect.
func Principal(c *fiber.Ctx, db *gorm.DB) (*models.User, error) {
	userID, err := CurrentUserID(c)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := db.Scopes(scopes.Active).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}
	return &user, nil
}
