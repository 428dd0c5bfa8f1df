package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/policy"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/services"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

// respondError maps service and store errors onto HTTP. Policy denials carry
// no detail about which rule failed.
func respondError(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: verr.Error(), Field: verr.Field,
		})
	case errors.Is(err, store.ErrNotFound):
		return errorJSON(c, fiber.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrForbidden):
		return errorJSON(c, fiber.StatusForbidden, "Moderator access required")
	case errors.Is(err, policy.ErrIllegalTransition):
		return errorJSON(c, fiber.StatusConflict, "Report has already been reviewed")
	case errors.Is(err, store.ErrDenied):
		return errorJSON(c, fiber.StatusForbidden, "Operation not permitted")
	case errors.Is(err, store.ErrConflict):
		return errorJSON(c, fiber.StatusConflict, "Conflict")
	case errors.Is(err, services.ErrMediaDisabled):
		return errorJSON(c, fiber.StatusServiceUnavailable, err.Error())
	}

	slog.Error("request failed",
		"request_id", requestID(c),
		"method", c.Method(),
		"path", c.Path(),
		"error", err.Error(),
	)
	return errorJSON(c, fiber.StatusInternalServerError, "Internal server error")
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
		return id
	}
	return ""
}
