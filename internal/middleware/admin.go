package middleware

import (
	"crypto/subtle"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/config"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/identity"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/policy"
	"github.com/gofiber/fiber/v2"
)

// AdminToken guards operator endpoints with the X-Admin-Token header. With no
// token configured every request is refused.
func AdminToken(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := c.Get("X-Admin-Token")
		if cfg.AdminToken == "" || subtle.ConstantTimeCompare([]byte(got), []byte(cfg.AdminToken)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Admin token required",
			})
		}
		return c.Next()
	}
}

// RequireRole lets the request through only if has_role(caller, role). It
// runs after JWTProtected.
func RequireRole(checker policy.RoleChecker, role models.AppRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := identity.GetUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		ok, err := checker.HasRole(c.UserContext(), userID, role)
		if err != nil {
			slog.Error("role check failed", "user_id", userID.String(), "role", string(role), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Internal server error",
			})
		}
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Moderator access required",
			})
		}
		return c.Next()
	}
}
