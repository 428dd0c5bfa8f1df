package handlers

import (
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/identity"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/policy"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/realtime"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// RealtimeHandler streams change events over a websocket. Only entity, action,
// id and time are sent; clients refetch through the normal endpoints.
type RealtimeHandler struct {
	hub   *realtime.Hub
	roles policy.RoleChecker
}

func NewRealtimeHandler(hub *realtime.Hub, roles policy.RoleChecker) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, roles: roles}
}

// viewer is who a stream is for, resolved once at upgrade time.
type viewer struct {
	policy.Subject
}

// sees mirrors the user_roles read policy: role changes go to the affected
// user and to moderators. Report events have no content and go to everyone.
func (v viewer) sees(ev realtime.Event) bool {
	if ev.Entity == realtime.EntityUserRoles {
		return v.Moderator || ev.ID == v.ID
	}
	return true
}

// Upgrade rejects plain HTTP requests. It runs after JWTProtected.
func (h *RealtimeHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	userID, err := identity.GetUserID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	subject, err := policy.Resolve(c.UserContext(), h.roles, userID)
	if err != nil {
		return respondError(c, err)
	}
	c.Locals("viewer", viewer{Subject: subject})
	return c.Next()
}

func parseEntities(raw string) []realtime.Entity {
	var out []realtime.Entity
	for _, part := range strings.Split(raw, ",") {
		switch e := realtime.Entity(strings.TrimSpace(part)); e {
		case realtime.EntityReports, realtime.EntityUserRoles:
			out = append(out, e)
		}
	}
	return out
}

func (h *RealtimeHandler) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		v, ok := conn.Locals("viewer").(viewer)
		if !ok {
			_ = conn.Close()
			return
		}
		userID := v.ID.String()
		sub := h.hub.Subscribe(parseEntities(conn.Query("entities"))...)
		defer sub.Close()

		slog.Info("realtime client connected", "user_id", userID)
		defer slog.Info("realtime client disconnected", "user_id", userID)

		// The read loop only notices the client going away.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				if !v.sees(ev) {
					continue
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
					return
				}
			case <-gone:
				return
			}
		}
	})
}
