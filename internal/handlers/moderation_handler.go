package handlers

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/identity"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ModerationHandler struct {
	moderationService *services.ModerationService
}

func NewModerationHandler(moderationService *services.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderationService: moderationService}
}

func (h *ModerationHandler) Queue(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	resp, err := h.moderationService.Queue(c.UserContext(), userID, listQuery(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *ModerationHandler) Approve(c *fiber.Ctx) error {
	return h.review(c, h.moderationService.Approve)
}

func (h *ModerationHandler) Reject(c *fiber.Ctx) error {
	return h.review(c, h.moderationService.Reject)
}

func (h *ModerationHandler) review(c *fiber.Ctx, transition func(ctx context.Context, callerID, id uuid.UUID) (*models.Report, error)) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	id, ok := reportID(c)
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid report ID")
	}

	report, err := transition(c.UserContext(), userID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}
