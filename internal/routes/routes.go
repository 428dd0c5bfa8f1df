package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/config"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/policy"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Handlers groups everything Setup mounts.
type Handlers struct {
	Auth       *handlers.AuthHandler
	Health     *handlers.HealthHandler
	Reports    *handlers.ReportHandler
	Moderation *handlers.ModerationHandler
	Media      *handlers.MediaHandler
	Realtime   *handlers.RealtimeHandler
	Admin      *handlers.AdminHandler
}

func perIPLimiter(limit int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               limit,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
}

func Setup(app *fiber.App, cfg *config.Config, roles policy.RoleChecker, h Handlers) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	if cfg.RateLimit {
		api.Use(perIPLimiter(60))
	}

	api.Get("/health", h.Health.Check)

	// Auth: stricter 10 req/min per IP
	auth := api.Group("/auth")
	if cfg.RateLimit {
		auth.Use(perIPLimiter(10))
	}
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)

	// Protected routes get JWT per route so the public ones above stay open.
	jwt := middleware.JWTProtected(cfg)
	api.Post("/auth/logout", jwt, h.Auth.Logout)
	api.Get("/auth/me", jwt, h.Auth.Me)
	api.Delete("/auth/account", jwt, h.Auth.DeleteAccount)

	api.Get("/reports", jwt, h.Reports.List)
	api.Post("/reports", jwt, h.Reports.Create)
	api.Get("/reports/:id", jwt, h.Reports.Get)
	api.Patch("/reports/:id", jwt, h.Reports.Update)
	api.Get("/dashboard", jwt, h.Reports.Dashboard)
	api.Post("/media", jwt, h.Media.Upload)

	api.Get("/realtime", jwt, h.Realtime.Upgrade, h.Realtime.Stream())

	moderation := api.Group("/moderation", jwt, middleware.RequireRole(roles, models.RoleModerator))
	moderation.Get("/reports", h.Moderation.Queue)
	moderation.Post("/reports/:id/approve", h.Moderation.Approve)
	moderation.Post("/reports/:id/reject", h.Moderation.Reject)

	// Operator endpoints: admin token only, never a user JWT.
	admin := api.Group("/admin", middleware.AdminToken(cfg))
	admin.Put("/roles", h.Admin.GrantRole)
	admin.Delete("/roles", h.Admin.RevokeRole)
	admin.Get("/roles/:user_id", h.Admin.ListRoles)
}
