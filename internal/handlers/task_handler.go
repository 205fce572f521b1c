package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tasknest/tasknest-backend/internal/authz"
	"github.com/tasknest/tasknest-backend/internal/dto"
	"github.com/tasknest/tasknest-backend/internal/services"
	"gorm.io/gorm"
)

type TaskHandler struct {
	taskService *services.TaskService
	db          *gorm.DB
}

func NewTaskHandler(taskService *services.TaskService, db *gorm.DB) *TaskHandler {
	return &TaskHandler{taskService: taskService, db: db}
}

func (h *TaskHandler) Create(c *fiber.Ctx) error {
	user, err := authz.Principal(c, h.db)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid request body"))
	}

	task, err := h.taskService.Create(user, &req)
	if err != nil {
		return taskError(c, err, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(dto.OKMessage("Task created", task))
}

func (h *TaskHandler) List(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	filter := dto.TaskListFilter{
		Status:    c.Query("status"),
		Priority:  c.Query("priority"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	filter.Page, _ = strconv.Atoi(c.Query("page", "1"))
	filter.Limit, _ = strconv.Atoi(c.Query("limit", "10"))

	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrFields("Validation failed",
				map[string]string{"start_date": "must be RFC3339"}))
		}
		filter.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrFields("Validation failed",
				map[string]string{"end_date": "must be RFC3339"}))
		}
		filter.EndDate = &t
	}
	if v := c.Query("assigned_to"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid assigned_to"))
		}
		filter.AssignedTo = &id
	}
	if v := c.Query("group_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid group_id"))
		}
		filter.GroupID = &id
	}

	tasks, total, err := h.taskService.List(userID, &filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Err("Failed to fetch tasks"))
	}

	page, limit := dto.NormalizePage(filter.Page, filter.Limit)
	return c.JSON(dto.OK(dto.TaskListResponse{
		Tasks:      tasks,
		Pagination: dto.Pagination{Page: page, Limit: limit, Total: total},
	}))
}

func (h *TaskHandler) Get(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid task ID"))
	}

	task, err := h.taskService.Get(userID, taskID)
	if err != nil {
		return taskError(c, err, "Failed to fetch task")
	}

	return c.JSON(dto.OK(task))
}

func (h *TaskHandler) Update(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid task ID"))
	}

	var req dto.UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid request body"))
	}

	task, err := h.taskService.Update(userID, taskID, &req)
	if err != nil {
		return taskError(c, err, err.Error())
	}

	return c.JSON(dto.OKMessage("Task updated", task))
}

func (h *TaskHandler) UpdateStatus(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid task ID"))
	}

	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid request body"))
	}

	task, err := h.taskService.UpdateStatus(userID, taskID, &req)
	if err != nil {
		return taskError(c, err, err.Error())
	}

	return c.JSON(dto.OKMessage("Status updated", task))
}

func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid task ID"))
	}

	if err := h.taskService.Delete(userID, taskID); err != nil {
		return taskError(c, err, "Failed to delete task")
	}

	return c.JSON(dto.OKMessage("Task deleted", nil))
}

func (h *TaskHandler) ListUpdates(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid task ID"))
	}

	updates, err := h.taskService.ListUpdates(userID, taskID)
	if err != nil {
		return taskError(c, err, "Failed to fetch task updates")
	}

	return c.JSON(dto.OK(dto.TaskUpdatesResponse{Updates: updates}))
}

// Sweep is the operator entry point for the overdue transition.
func (h *TaskHandler) Sweep(c *fiber.Ctx) error {
	swept, err := h.taskService.SweepOverdue(time.Now().UTC())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Err("Sweep failed"))
	}

	return c.JSON(dto.OK(dto.SweepResponse{SweptCount: swept}))
}

func taskError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, authz.ErrTaskNotFound) || errors.Is(err, authz.ErrGroupNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.Err(err.Error()))
	case errors.Is(err, authz.ErrForbidden) ||
		errors.Is(err, services.ErrCannotReassign) ||
		errors.Is(err, services.ErrCannotSetStatus) ||
		errors.Is(err, services.ErrCannotDelete):
		return c.Status(fiber.StatusForbidden).JSON(dto.Err(err.Error()))
	case errors.Is(err, services.ErrBadTimeRange) ||
		errors.Is(err, services.ErrInvalidPriority) ||
		errors.Is(err, services.ErrInvalidStatus) ||
		errors.Is(err, services.ErrAssigneeNotFound) ||
		errors.Is(err, services.ErrNotGroupMember):
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err(err.Error()))
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.Err(fallback))
}
