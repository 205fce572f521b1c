package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tasknest/tasknest-backend/internal/authz"
	"github.com/tasknest/tasknest-backend/internal/dto"
	"github.com/tasknest/tasknest-backend/internal/services"
	"gorm.io/gorm"
)

type AuthHandler struct {
	authService *services.AuthService
	db          *gorm.DB
}

func NewAuthHandler(authService *services.AuthService, db *gorm.DB) *AuthHandler {
	return &AuthHandler{authService: authService, db: db}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid request body"))
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(dto.Err(err.Error()))
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err(err.Error()))
	}

	return c.Status(fiber.StatusCreated).JSON(dto.OKMessage("Registered successfully", resp))
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid request body"))
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.Err(err.Error()))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Err("Internal server error"))
	}

	return c.JSON(dto.OK(resp))
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid request body"))
	}

	resp, err := h.authService.Refresh(&req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.Err(err.Error()))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Err("Internal server error"))
	}

	return c.JSON(dto.OK(resp))
}

// Verify resolves the bearer token to the current principal. Fails when
// the token is valid but the user has been deactivated since issuance.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	user, err := authz.Principal(c, h.db)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}
	return c.JSON(dto.OK(services.UserToResponse(user)))
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid request body"))
	}

	if err := h.authService.Logout(&req); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Err("Failed to logout"))
	}

	return c.JSON(dto.OKMessage("Logged out successfully", nil))
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid request body"))
	}

	if err := h.authService.ChangePassword(userID, &req); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Current password is incorrect"))
		}
		if errors.Is(err, services.ErrWeakPassword) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.Err(err.Error()))
		}
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.Err(err.Error()))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Err("Failed to change password"))
	}

	return c.JSON(dto.OKMessage("Password changed successfully", nil))
}
