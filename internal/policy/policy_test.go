package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticRoles map[uuid.UUID]bool

func (s staticRoles) HasRole(_ context.Context, userID uuid.UUID, role models.AppRole) (bool, error) {
	if role != models.RoleModerator {
		return true, nil
	}
	return s[userID], nil
}

type failingRoles struct{}

func (failingRoles) HasRole(context.Context, uuid.UUID, models.AppRole) (bool, error) {
	return false, errors.New("db down")
}

func TestCanRead(t *testing.T) {
	owner := uuid.New()
	other := Subject{ID: uuid.New()}
	mod := Subject{ID: uuid.New(), Moderator: true}

	for _, status := range models.ReportStatuses {
		r := &models.Report{UserID: owner, Status: status}
		assert.True(t, CanRead(Subject{ID: owner}, r), "owner reads %s", status)
		assert.True(t, CanRead(mod, r), "moderator reads %s", status)
		assert.Equal(t, status == models.StatusVerified, CanRead(other, r), "stranger reads %s", status)
	}
}

func TestCanReadAnonymousOnlyVerified(t *testing.T) {
	r := &models.Report{UserID: uuid.Nil, Status: models.StatusPending}
	assert.False(t, CanRead(Subject{}, r))
}

func TestCanCreate(t *testing.T) {
	id := uuid.New()
	assert.True(t, CanCreate(Subject{ID: id}, id))
	assert.False(t, CanCreate(Subject{ID: id}, uuid.New()))
	assert.False(t, CanCreate(Subject{}, uuid.Nil))
}

func TestCanEditContent(t *testing.T) {
	owner := uuid.New()
	tests := []struct {
		name   string
		sub    Subject
		status models.ReportStatus
		want   bool
	}{
		{"owner pending", Subject{ID: owner}, models.StatusPending, true},
		{"owner verified", Subject{ID: owner}, models.StatusVerified, false},
		{"owner rejected", Subject{ID: owner}, models.StatusRejected, false},
		{"stranger pending", Subject{ID: uuid.New()}, models.StatusPending, false},
		{"moderator verified", Subject{ID: uuid.New(), Moderator: true}, models.StatusVerified, true},
		{"moderator rejected", Subject{ID: uuid.New(), Moderator: true}, models.StatusRejected, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &models.Report{UserID: owner, Status: tt.status}
			assert.Equal(t, tt.want, CanEditContent(tt.sub, r))
		})
	}
}

func TestTransition(t *testing.T) {
	legal := map[[2]models.ReportStatus]bool{
		{models.StatusPending, models.StatusVerified}: true,
		{models.StatusPending, models.StatusRejected}: true,
	}
	for _, from := range models.ReportStatuses {
		for _, to := range models.ReportStatuses {
			err := Transition(from, to)
			if legal[[2]models.ReportStatus{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.ErrorIs(t, err, ErrIllegalTransition, "%s -> %s", from, to)
			}
		}
	}
	assert.ErrorIs(t, Transition(models.StatusPending, "archived"), ErrIllegalTransition)
}

func TestCanReview(t *testing.T) {
	r := &models.Report{UserID: uuid.New(), Status: models.StatusPending}
	assert.NoError(t, CanReview(Subject{ID: uuid.New(), Moderator: true}, r, models.StatusVerified))
	assert.ErrorIs(t, CanReview(Subject{ID: r.UserID}, r, models.StatusVerified), ErrIllegalTransition)

	r.Status = models.StatusRejected
	assert.ErrorIs(t, CanReview(Subject{ID: uuid.New(), Moderator: true}, r, models.StatusRejected), ErrIllegalTransition)
}

func TestResolve(t *testing.T) {
	mod := uuid.New()
	roles := staticRoles{mod: true}

	s, err := Resolve(context.Background(), roles, mod)
	require.NoError(t, err)
	assert.True(t, s.Moderator)

	s, err = Resolve(context.Background(), roles, uuid.New())
	require.NoError(t, err)
	assert.False(t, s.Moderator)

	s, err = Resolve(context.Background(), failingRoles{}, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, Subject{}, s)

	_, err = Resolve(context.Background(), failingRoles{}, mod)
	assert.Error(t, err)
}
