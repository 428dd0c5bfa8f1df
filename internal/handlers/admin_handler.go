package handlers

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AdminHandler is operator role management, guarded by the admin token.
type AdminHandler struct {
	roleService *services.RoleService
}

func NewAdminHandler(roleService *services.RoleService) *AdminHandler {
	return &AdminHandler{roleService: roleService}
}

func parseRoleRequest(c *fiber.Ctx) (*dto.RoleRequest, error) {
	var req dto.RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, &services.ValidationError{Field: "body", Message: "is not valid JSON"}
	}
	if req.UserID == uuid.Nil {
		return nil, &services.ValidationError{Field: "user_id", Message: "is required"}
	}
	return &req, nil
}

func (h *AdminHandler) GrantRole(c *fiber.Ctx) error {
	req, err := parseRoleRequest(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.roleService.Grant(c.UserContext(), req.UserID, req.Role); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "User not found")
		}
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Role granted"})
}

func (h *AdminHandler) RevokeRole(c *fiber.Ctx) error {
	req, err := parseRoleRequest(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.roleService.Revoke(c.UserContext(), req.UserID, req.Role); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Role revoked"})
}

func (h *AdminHandler) ListRoles(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid user ID")
	}
	roles, err := h.roleService.List(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"user_id": userID, "roles": roles})
}
