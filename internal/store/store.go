// Package store defines the data access contract every backend implements.
// Implementations enforce the policy package rules themselves; callers never
// pre-filter on their behalf.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound also covers rows the caller is not allowed to read.
	ErrNotFound = errors.New("not found")
	// ErrDenied is a write rejected by a policy predicate or trigger.
	ErrDenied = errors.New("operation not permitted")
	// ErrConflict is a constraint violation (duplicate, dangling reference).
	ErrConflict = errors.New("conflict")
)

// ReportFilter narrows a report listing. Zero values mean "any".
type ReportFilter struct {
	Status   models.ReportStatus
	Category models.ReportCategory
	Mine     bool
	Limit    int
	Offset   int
}

// ReportPatch carries content changes. Nil fields are left untouched; a
// pointer to an empty string clears an optional column.
type ReportPatch struct {
	Title       *string
	Category    *models.ReportCategory
	Description *string
	Location    *string
	ImageURL    *string
}

func (p ReportPatch) Empty() bool {
	return p.Title == nil && p.Category == nil && p.Description == nil &&
		p.Location == nil && p.ImageURL == nil
}

// StatusCounts is the dashboard aggregate over readable reports.
type StatusCounts map[models.ReportStatus]int64

type Reports interface {
	CreateReport(ctx context.Context, callerID uuid.UUID, report *models.Report) error
	GetReport(ctx context.Context, callerID, id uuid.UUID) (*models.Report, error)
	ListReports(ctx context.Context, callerID uuid.UUID, filter ReportFilter) ([]models.Report, int64, error)
	UpdateReport(ctx context.Context, callerID, id uuid.UUID, patch ReportPatch) (*models.Report, error)
	// TransitionReport moves a pending report to a terminal status and stamps
	// the reviewer and review time in the same write.
	TransitionReport(ctx context.Context, callerID, id uuid.UUID, to models.ReportStatus) (*models.Report, error)
	CountByStatus(ctx context.Context, callerID uuid.UUID) (StatusCounts, error)
}

type Roles interface {
	HasRole(ctx context.Context, userID uuid.UUID, role models.AppRole) (bool, error)
	ListRoles(ctx context.Context, userID uuid.UUID) ([]models.AppRole, error)
	// GrantRole returns ErrConflict if the role is already held.
	GrantRole(ctx context.Context, userID uuid.UUID, role models.AppRole) error
	RevokeRole(ctx context.Context, userID uuid.UUID, role models.AppRole) error
}

type Users interface {
	// CreateUser also grants the USER role.
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// DeleteUser cascades to the user's reports, roles and tokens and clears
	// reviewed_by on reports they reviewed.
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type Tokens interface {
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// ConsumeRefreshToken revokes the active token with hash and returns it.
	ConsumeRefreshToken(ctx context.Context, hash string, now time.Time) (*models.RefreshToken, error)
	// RevokeRefreshToken revokes hash only if it belongs to userID; a token
	// of another user is left alone.
	RevokeRefreshToken(ctx context.Context, userID uuid.UUID, hash string) error
}

type Store interface {
	Reports
	Roles
	Users
	Tokens
	Ping(ctx context.Context) error
}
