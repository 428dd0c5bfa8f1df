// Package policy holds the access and status-transition rules for reports.
//
// The same rules exist three times: as Go predicates (used by the in-memory
// store), as SQL predicates appended by the Postgres store, and as row-level
// security policies installed by the database package. They must agree.
package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/models"
	"github.com/google/uuid"
)

var ErrIllegalTransition = errors.New("illegal status transition")

// Subject is the caller as the predicates see it.
type Subject struct {
	ID        uuid.UUID
	Moderator bool
}

// RoleChecker answers has_role(identity, role). Implementations must be free
// of side effects.
type RoleChecker interface {
	HasRole(ctx context.Context, userID uuid.UUID, role models.AppRole) (bool, error)
}

// Resolve builds the Subject for userID by asking checker for MODERATOR.
func Resolve(ctx context.Context, checker RoleChecker, userID uuid.UUID) (Subject, error) {
	s := Subject{ID: userID}
	if userID == uuid.Nil {
		return s, nil
	}
	ok, err := checker.HasRole(ctx, userID, models.RoleModerator)
	if err != nil {
		return s, fmt.Errorf("resolve roles: %w", err)
	}
	s.Moderator = ok
	return s, nil
}

func (s Subject) owns(r *models.Report) bool {
	return s.ID != uuid.Nil && r.UserID == s.ID
}

// CanRead: verified reports are public, everything else is visible to its
// owner and to moderators only.
func CanRead(s Subject, r *models.Report) bool {
	return r.Status == models.StatusVerified || s.owns(r) || s.Moderator
}

// CanCreate requires the proposed owner to be the caller.
func CanCreate(s Subject, ownerID uuid.UUID) bool {
	return s.ID != uuid.Nil && s.ID == ownerID
}

// CanEditContent covers both update paths for non-status columns: the owner
// while the report is pending, or any moderator.
func CanEditContent(s Subject, r *models.Report) bool {
	if s.Moderator {
		return true
	}
	return s.owns(r) && r.Status == models.StatusPending
}

// Transition validates a status change. Only pending may move, and only to a
// terminal state.
func Transition(from, to models.ReportStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrIllegalTransition, to)
	}
	if from != models.StatusPending || !to.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

// CanReview is the moderator status path.
func CanReview(s Subject, r *models.Report, to models.ReportStatus) error {
	if !s.Moderator {
		return fmt.Errorf("%w: caller is not a moderator", ErrIllegalTransition)
	}
	return Transition(r.Status, to)
}
