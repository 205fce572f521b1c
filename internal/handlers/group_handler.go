package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tasknest/tasknest-backend/internal/authz"
	"github.com/tasknest/tasknest-backend/internal/dto"
	"github.com/tasknest/tasknest-backend/internal/services"
	"gorm.io/gorm"
)

type GroupHandler struct {
	groupService *services.GroupService
	db           *gorm.DB
}

func NewGroupHandler(groupService *services.GroupService, db *gorm.DB) *GroupHandler {
	return &GroupHandler{groupService: groupService, db: db}
}

func (h *GroupHandler) Create(c *fiber.Ctx) error {
	user, err := authz.Principal(c, h.db)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	var req dto.CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid request body"))
	}

	group, err := h.groupService.Create(user, &req)
	if err != nil {
		if errors.Is(err, services.ErrGroupNameTaken) {
			return c.Status(fiber.StatusConflict).JSON(dto.Err(err.Error()))
		}
		if errors.Is(err, services.ErrGroupAdminOnly) {
			return c.Status(fiber.StatusForbidden).JSON(dto.Err(err.Error()))
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err(err.Error()))
	}

	return c.Status(fiber.StatusCreated).JSON(dto.OKMessage("Group created", group))
}

func (h *GroupHandler) List(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	groups, total, err := h.groupService.List(userID, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Err("Failed to fetch groups"))
	}

	page, limit = dto.NormalizePage(page, limit)
	return c.JSON(dto.OK(dto.GroupListResponse{
		Groups:     groups,
		Pagination: dto.Pagination{Page: page, Limit: limit, Total: total},
	}))
}

func (h *GroupHandler) Get(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid group ID"))
	}

	grant, err := h.groupService.Get(userID, groupID)
	if err != nil {
		return groupError(c, err, "Failed to fetch group")
	}

	return c.JSON(dto.OK(dto.GroupResponse{Group: grant.Group, Role: grant.Role}))
}

func (h *GroupHandler) Update(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid group ID"))
	}

	var req dto.UpdateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid request body"))
	}

	group, err := h.groupService.Update(userID, groupID, &req)
	if err != nil {
		if errors.Is(err, services.ErrGroupNameTaken) {
			return c.Status(fiber.StatusConflict).JSON(dto.Err(err.Error()))
		}
		return groupError(c, err, err.Error())
	}

	return c.JSON(dto.OKMessage("Group updated", group))
}

func (h *GroupHandler) Delete(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid group ID"))
	}

	if err := h.groupService.Delete(userID, groupID); err != nil {
		return groupError(c, err, "Failed to delete group")
	}

	return c.JSON(dto.OKMessage("Group deleted", nil))
}

func (h *GroupHandler) AddMember(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid group ID"))
	}

	var req dto.AddMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid request body"))
	}

	edge, err := h.groupService.AddMember(userID, groupID, &req)
	if err != nil {
		if errors.Is(err, services.ErrAlreadyMember) {
			return c.Status(fiber.StatusConflict).JSON(dto.Err(err.Error()))
		}
		if errors.Is(err, services.ErrMemberNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.Err(err.Error()))
		}
		return groupError(c, err, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(dto.OKMessage("Member added", edge))
}

func (h *GroupHandler) ListMembers(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid group ID"))
	}

	members, err := h.groupService.ListMembers(userID, groupID)
	if err != nil {
		return groupError(c, err, "Failed to fetch members")
	}

	return c.JSON(dto.OK(members))
}

func (h *GroupHandler) RemoveMember(c *fiber.Ctx) error {
	userID, err := authz.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Err("Unauthorized"))
	}

	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid group ID"))
	}

	memberID, err := uuid.Parse(c.Params("userID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Err("Invalid user ID"))
	}

	if err := h.groupService.RemoveMember(userID, groupID, memberID); err != nil {
		if errors.Is(err, services.ErrCannotRemoveAdmin) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.Err(err.Error()))
		}
		if errors.Is(err, services.ErrNotAMember) {
			return c.Status(fiber.StatusNotFound).JSON(dto.Err(err.Error()))
		}
		return groupError(c, err, "Failed to remove member")
	}

	return c.JSON(dto.OKMessage("Member removed", nil))
}

// groupError maps the shared authz failures; fallback covers the rest.
func groupError(c *fiber.Ctx, err error, fallback string) error {
	if errors.Is(err, authz.ErrGroupNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(dto.Err(err.Error()))
	}
	if errors.Is(err, authz.ErrForbidden) {
		return c.Status(fiber.StatusForbidden).JSON(dto.Err(err.Error()))
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.Err(fallback))
}
