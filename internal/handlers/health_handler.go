package handlers

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// Pinger is anything with a liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db     Pinger
	broker Pinger
}

// NewHealthHandler takes a nil broker when change events stay in process.
func NewHealthHandler(db, broker Pinger) *HealthHandler {
	return &HealthHandler{db: db, broker: broker}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	resp := dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        "ok",
		Broker:    "memory",
	}
	if err := h.db.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.DB = "unhealthy: " + err.Error()
	}
	if h.broker != nil {
		resp.Broker = "ok"
		if err := h.broker.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Broker = "unhealthy: " + err.Error()
		}
	}

	status := fiber.StatusOK
	if resp.Status != "ok" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(resp)
}
