package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/realtime"
)

// ErrForbidden is returned when the caller lacks the role an operation needs.
var ErrForbidden = errors.New("forbidden")

// ValidationError is malformed input, reported against the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func notify(ctx context.Context, events realtime.Publisher, ev realtime.Event) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, ev); err != nil {
		slog.Warn("change notification failed",
			"entity", string(ev.Entity), "action", string(ev.Action), "id", ev.ID.String(), "error", err)
	}
}
