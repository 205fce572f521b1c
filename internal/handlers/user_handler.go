package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/tasknest/tasknest-backend/internal/authz"
	"github.com/tasknest/tasknest-backend/internal/dto"
	"github.com/tasknest/tasknest-backend/internal/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) Profile(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	user, err := h.userService.Get(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.Err(err.Error()))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Err("Failed to fetch profile"))
	}

	return c.JSON(dto.OK(services.UserToResponse(user)))
}

func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid request body"))
	}

	user, err := h.userService.UpdateProfile(userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.Err(err.Error()))
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err(err.Error()))
	}

	return c.JSON(dto.OKMessage("Profile updated", services.UserToResponse(user)))
}

func (h *UserHandler) Deactivate(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	if err := h.userService.Deactivate(userID); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.Err(err.Error()))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Err("Failed to deactivate account"))
	}

	return c.JSON(dto.OKMessage("Account deactivated", nil))
}

func (h *UserHandler) Dashboard(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	resp, err := h.userService.Dashboard(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Err("Failed to fetch dashboard"))
	}

	return c.JSON(dto.OK(resp))
}

func (h *UserHandler) Search(c *fiber.Ctx) error {
	if _, err := authz.CurrentUserID(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	query := c.Query("q")
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	users, total, err := h.userService.Search(query, page, limit)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err(err.Error()))
	}

	page, limit = dto.NormalizePage(page, limit)
	results := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		results = append(results, services.UserToResponse(&users[i]))
	}

	return c.JSON(dto.OK(dto.UserSearchResponse{
		Users:      results,
		Pagination: dto.Pagination{Page: page, Limit: limit, Total: total},
	}))
}

func (h *UserHandler) Settings(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	settings, err := h.userService.Settings(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Err("Failed to fetch settings"))
	}

	return c.JSON(dto.OK(settings))
}

func (h *UserHandler) UpdateSettings(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	var req dto.UpdateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid request body"))
	}

	settings, err := h.userService.UpdateSettings(userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrBadReminderFrequency) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrFields("Validation failed",
				map[string]string{"reminder_frequency": err.Error()}))
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err(err.Error()))
	}

	return c.JSON(dto.OKMessage("Settings updated", settings))
}
