// Package realtime fans change notifications out to websocket clients and
// downstream consumers. Events name what changed, never the row content, so
// a subscriber learns nothing the read policy would hide; clients refetch.
package realtime

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Entity string

const (
	EntityReports   Entity = "reports"
	EntityUserRoles Entity = "user_roles"
)

type Action string

const (
	ActionCreated     Action = "created"
	ActionUpdated     Action = "updated"
	ActionReviewed    Action = "reviewed"
	ActionRoleGranted Action = "role_granted"
	ActionRoleRevoked Action = "role_revoked"
)

type Event struct {
	Entity Entity    `json:"entity"`
	Action Action    `json:"action"`
	ID     uuid.UUID `json:"id"`
	At     time.Time `json:"at"`
}

func NewEvent(entity Entity, action Action, id uuid.UUID) Event {
	return Event{Entity: entity, Action: action, ID: id, At: time.Now().UTC()}
}

// RoutingKey is "<entity>.<action>".
func (e Event) RoutingKey() string {
	return string(e.Entity) + "." + string(e.Action)
}

// Publisher delivers an event at most once. Errors are informational; callers
// do not fail the originating request on them.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Fanout publishes to every member and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
