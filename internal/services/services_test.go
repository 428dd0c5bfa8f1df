package services

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/config"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/realtime"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/store/memstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type env struct {
	ctx        context.Context
	store      *memstore.Store
	hub        *realtime.Hub
	events     *realtime.Subscription
	auth       *AuthService
	reports    *ReportService
	moderation *ModerationService
	roles      *RoleService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := memstore.New()
	hub := realtime.NewHub(64)
	cfg := &config.Config{JWTSecret: "test-secret", JWTAccessExpiry: time.Minute, JWTRefreshExpiry: time.Hour}

	e := &env{
		ctx:        context.Background(),
		store:      st,
		hub:        hub,
		events:     hub.Subscribe(),
		auth:       NewAuthService(st, cfg),
		reports:    NewReportService(st, hub),
		moderation: NewModerationService(st, st, hub),
		roles:      NewRoleService(st, hub),
	}
	e.auth.bcryptCost = bcrypt.MinCost
	t.Cleanup(hub.Close)
	return e
}

func (e *env) register(t *testing.T, email string) uuid.UUID {
	t.Helper()
	resp, err := e.auth.Register(e.ctx, &dto.RegisterRequest{Email: email, Password: "password123"})
	require.NoError(t, err)
	return resp.User.ID
}

func (e *env) moderatorID(t *testing.T, email string) uuid.UUID {
	t.Helper()
	id := e.register(t, email)
	require.NoError(t, e.roles.Grant(e.ctx, id, "MODERATOR"))
	return id
}

func (e *env) create(t *testing.T, owner uuid.UUID) *models.Report {
	t.Helper()
	r, err := e.reports.Create(e.ctx, owner, &dto.CreateReportRequest{
		Title:       "Pothole",
		Category:    "road_damage",
		Description: "pothole on Elm St",
	})
	require.NoError(t, err)
	return r
}

func (e *env) drain() []realtime.Event {
	var out []realtime.Event
	for {
		select {
		case ev := <-e.events.C:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func strp(s string) *string { return &s }

func assertField(t *testing.T, err error, field string) {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, field, verr.Field)
}
