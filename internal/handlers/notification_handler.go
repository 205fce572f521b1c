package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tasknest/tasknest-backend/internal/authz"
	"github.com/tasknest/tasknest-backend/internal/dto"
	"github.com/tasknest/tasknest-backend/internal/services"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	logs, total, err := h.notificationService.List(userID, c.Query("status"), c.Query("channel"), page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Err("Failed to fetch notifications"))
	}

	page, limit = dto.NormalizePage(page, limit)
	return c.JSON(dto.OK(dto.NotificationListResponse{
		Logs:       logs,
		Pagination: dto.Pagination{Page: page, Limit: limit, Total: total},
	}))
}

func (h *NotificationHandler) Stats(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	stats, err := h.notificationService.Stats(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Err("Failed to fetch stats"))
	}

	return c.JSON(dto.OK(stats))
}

// TestSend fires an ad-hoc notification to the caller on the chosen
// channel; the log row has no task reference.
func (h *NotificationHandler) TestSend(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	var req dto.TestSendRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid request body"))
	}
	if req.Message == "" {
		req.Message = "This is a test notification from TaskNest"
	}

	entry, err := h.notificationService.Send(userID, nil, req.Channel, req.Message)
	if err != nil {
		if errors.Is(err, services.ErrInvalidChannel) ||
			errors.Is(err, services.ErrChannelDisabled) ||
			errors.Is(err, services.ErrNoPhoneNumber) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.Err(err.Error()))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Err("Failed to send notification"))
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.OKMessage("Notification queued", entry))
}

func (h *NotificationHandler) Retry(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	logID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid notification ID"))
	}

	entry, err := h.notificationService.Retry(userID, logID)
	if err != nil {
		if errors.Is(err, services.ErrLogNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.Err(err.Error()))
		}
		if errors.Is(err, services.ErrNotRetryable) || errors.Is(err, services.ErrRetryLimitExceeded) {
			return c.Status(fiber.StatusConflict).JSON(dto.Err(err.Error()))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Err("Failed to retry notification"))
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.OKMessage("Retry queued", entry))
}
