package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	s         *Store
	ctx       context.Context
	owner     uuid.UUID
	stranger  uuid.UUID
	moderator uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{s: New(), ctx: context.Background()}
	f.owner = f.user(t, "owner@example.com")
	f.stranger = f.user(t, "stranger@example.com")
	f.moderator = f.user(t, "mod@example.com")
	require.NoError(t, f.s.GrantRole(f.ctx, f.moderator, models.RoleModerator))
	return f
}

func (f *fixture) user(t *testing.T, email string) uuid.UUID {
	t.Helper()
	u := &models.User{Email: email, Password: "hash"}
	require.NoError(t, f.s.CreateUser(f.ctx, u))
	return u.ID
}

func (f *fixture) report(t *testing.T, owner uuid.UUID) *models.Report {
	t.Helper()
	r := &models.Report{
		UserID:      owner,
		Title:       "Pothole",
		Category:    models.CategoryRoadDamage,
		Description: "pothole on Elm St",
	}
	require.NoError(t, f.s.CreateReport(f.ctx, owner, r))
	return r
}

func TestCreateUserGrantsExactlyUserRole(t *testing.T) {
	f := newFixture(t)

	roles, err := f.s.ListRoles(f.ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, []models.AppRole{models.RoleUser}, roles)

	ok, err := f.s.HasRole(f.ctx, f.owner, models.RoleModerator)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	err := f.s.CreateUser(f.ctx, &models.User{Email: "OWNER@example.com"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestGrantRoleDuplicateIsConflict(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.s.GrantRole(f.ctx, f.owner, models.RoleUser), store.ErrConflict)
	assert.ErrorIs(t, f.s.GrantRole(f.ctx, f.moderator, models.RoleModerator), store.ErrConflict)
	assert.ErrorIs(t, f.s.GrantRole(f.ctx, uuid.New(), models.RoleUser), store.ErrConflict)
}

func TestRevokeRole(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.s.RevokeRole(f.ctx, f.moderator, models.RoleModerator))
	ok, _ := f.s.HasRole(f.ctx, f.moderator, models.RoleModerator)
	assert.False(t, ok)
	assert.ErrorIs(t, f.s.RevokeRole(f.ctx, f.moderator, models.RoleModerator), store.ErrNotFound)
}

func TestCreateReportForcesPending(t *testing.T) {
	f := newFixture(t)
	reviewer := f.moderator
	reviewedAt := time.Now()
	r := &models.Report{
		UserID:      f.owner,
		Title:       "t",
		Category:    models.CategoryOther,
		Description: "d",
		Status:      models.StatusVerified,
		ReviewedBy:  &reviewer,
		ReviewedAt:  &reviewedAt,
	}
	require.NoError(t, f.s.CreateReport(f.ctx, f.owner, r))

	got, err := f.s.GetReport(f.ctx, f.owner, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Nil(t, got.ReviewedBy)
	assert.Nil(t, got.ReviewedAt)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestCreateReportForAnotherOwnerDenied(t *testing.T) {
	f := newFixture(t)
	r := &models.Report{UserID: f.owner, Title: "t", Category: models.CategoryOther, Description: "d"}
	assert.ErrorIs(t, f.s.CreateReport(f.ctx, f.stranger, r), store.ErrDenied)
}

func TestReadPolicy(t *testing.T) {
	f := newFixture(t)
	r := f.report(t, f.owner)

	_, err := f.s.GetReport(f.ctx, f.stranger, r.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.s.GetReport(f.ctx, f.stranger, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)

	list, total, err := f.s.ListReports(f.ctx, f.stranger, store.ReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)

	for _, caller := range []uuid.UUID{f.owner, f.moderator} {
		got, err := f.s.GetReport(f.ctx, caller, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.ID, got.ID)
	}

	_, err = f.s.TransitionReport(f.ctx, f.moderator, r.ID, models.StatusRejected)
	require.NoError(t, err)
	_, err = f.s.GetReport(f.ctx, f.stranger, r.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "rejected stays hidden")
}

func TestOwnerUpdateOnlyWhilePending(t *testing.T) {
	f := newFixture(t)
	r := f.report(t, f.owner)

	title := "Deep pothole"
	empty := ""
	loc := "Elm St & 3rd"
	got, err := f.s.UpdateReport(f.ctx, f.owner, r.ID, store.ReportPatch{Title: &title, Location: &loc})
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	require.NotNil(t, got.Location)
	assert.Equal(t, loc, *got.Location)

	got, err = f.s.UpdateReport(f.ctx, f.owner, r.ID, store.ReportPatch{Location: &empty})
	require.NoError(t, err)
	assert.Nil(t, got.Location)

	_, err = f.s.UpdateReport(f.ctx, f.stranger, r.ID, store.ReportPatch{Title: &title})
	assert.ErrorIs(t, err, store.ErrDenied)

	_, err = f.s.TransitionReport(f.ctx, f.moderator, r.ID, models.StatusVerified)
	require.NoError(t, err)

	_, err = f.s.UpdateReport(f.ctx, f.owner, r.ID, store.ReportPatch{Title: &title})
	assert.ErrorIs(t, err, store.ErrDenied)
}

func TestModeratorUpdateAnyStatus(t *testing.T) {
	f := newFixture(t)
	r := f.report(t, f.owner)
	_, err := f.s.TransitionReport(f.ctx, f.moderator, r.ID, models.StatusRejected)
	require.NoError(t, err)

	cat := models.CategoryWaterCut
	got, err := f.s.UpdateReport(f.ctx, f.moderator, r.ID, store.ReportPatch{Category: &cat})
	require.NoError(t, err)
	assert.Equal(t, cat, got.Category)
	assert.Equal(t, models.StatusRejected, got.Status)
}

func TestUpdateStampsUpdatedAt(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return clock }))
	ctx := context.Background()
	u := &models.User{Email: "a@b.c"}
	require.NoError(t, s.CreateUser(ctx, u))
	r := &models.Report{UserID: u.ID, Title: "t", Category: models.CategoryOther, Description: "d"}
	require.NoError(t, s.CreateReport(ctx, u.ID, r))

	clock = clock.Add(time.Hour)
	title := "t2"
	got, err := s.UpdateReport(ctx, u.ID, r.ID, store.ReportPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, clock, got.UpdatedAt)
	assert.Equal(t, clock.Add(-time.Hour), got.CreatedAt)
}

func TestTransitionStampsReviewer(t *testing.T) {
	f := newFixture(t)
	r := f.report(t, f.owner)

	got, err := f.s.TransitionReport(f.ctx, f.moderator, r.ID, models.StatusVerified)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, got.Status)
	require.NotNil(t, got.ReviewedBy)
	assert.Equal(t, f.moderator, *got.ReviewedBy)
	require.NotNil(t, got.ReviewedAt)
}

func TestTransitionOutOfTerminalFails(t *testing.T) {
	f := newFixture(t)
	r := f.report(t, f.owner)

	_, err := f.s.TransitionReport(f.ctx, f.moderator, r.ID, models.StatusRejected)
	require.NoError(t, err)

	_, err = f.s.TransitionReport(f.ctx, f.moderator, r.ID, models.StatusRejected)
	assert.ErrorIs(t, err, store.ErrDenied)
	_, err = f.s.TransitionReport(f.ctx, f.moderator, r.ID, models.StatusVerified)
	assert.ErrorIs(t, err, store.ErrDenied)
}

func TestTransitionRequiresModerator(t *testing.T) {
	f := newFixture(t)
	r := f.report(t, f.owner)

	_, err := f.s.TransitionReport(f.ctx, f.owner, r.ID, models.StatusVerified)
	assert.ErrorIs(t, err, store.ErrDenied)
	_, err = f.s.TransitionReport(f.ctx, f.moderator, uuid.New(), models.StatusVerified)
	assert.ErrorIs(t, err, store.ErrDenied)
}

func TestConcurrentTransitionsSingleWinner(t *testing.T) {
	f := newFixture(t)
	second := f.user(t, "mod2@example.com")
	require.NoError(t, f.s.GrantRole(f.ctx, second, models.RoleModerator))
	r := f.report(t, f.owner)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, mod := range []uuid.UUID{f.moderator, second} {
		wg.Add(1)
		go func(i int, mod uuid.UUID) {
			defer wg.Done()
			_, errs[i] = f.s.TransitionReport(f.ctx, mod, r.ID, models.StatusVerified)
		}(i, mod)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, store.ErrDenied)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
}

func TestListFiltersAndPaging(t *testing.T) {
	f := newFixture(t)
	a := f.report(t, f.owner)
	b := f.report(t, f.owner)
	c := f.report(t, f.stranger)
	_, err := f.s.TransitionReport(f.ctx, f.moderator, c.ID, models.StatusVerified)
	require.NoError(t, err)

	list, total, err := f.s.ListReports(f.ctx, f.owner, store.ReportFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, list, 3)

	list, total, err = f.s.ListReports(f.ctx, f.owner, store.ReportFilter{Mine: true, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID, "newest first")

	list, _, err = f.s.ListReports(f.ctx, f.owner, store.ReportFilter{Mine: true, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	list, _, err = f.s.ListReports(f.ctx, f.moderator, store.ReportFilter{Status: models.StatusPending})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, _, err = f.s.ListReports(f.ctx, f.owner, store.ReportFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCountByStatus(t *testing.T) {
	f := newFixture(t)
	f.report(t, f.owner)
	v := f.report(t, f.owner)
	f.report(t, f.stranger)
	_, err := f.s.TransitionReport(f.ctx, f.moderator, v.ID, models.StatusVerified)
	require.NoError(t, err)

	counts, err := f.s.CountByStatus(f.ctx, f.moderator)
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts[models.StatusPending])
	assert.EqualValues(t, 1, counts[models.StatusVerified])
	assert.EqualValues(t, 0, counts[models.StatusRejected])

	counts, err = f.s.CountByStatus(f.ctx, f.stranger)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[models.StatusPending], "own pending only")
	assert.EqualValues(t, 1, counts[models.StatusVerified])
}

func TestDeleteUserCascades(t *testing.T) {
	f := newFixture(t)
	owned := f.report(t, f.owner)
	other := f.report(t, f.stranger)
	_, err := f.s.TransitionReport(f.ctx, f.moderator, other.ID, models.StatusVerified)
	require.NoError(t, err)
	require.NoError(t, f.s.SaveRefreshToken(f.ctx, &models.RefreshToken{UserID: f.owner, TokenHash: "h", ExpiresAt: time.Now().Add(time.Hour)}))

	require.NoError(t, f.s.DeleteUser(f.ctx, f.owner))
	_, err = f.s.GetReport(f.ctx, f.moderator, owned.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.s.ConsumeRefreshToken(f.ctx, "h", time.Now())
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, f.s.DeleteUser(f.ctx, f.moderator))
	got, err := f.s.GetReport(f.ctx, f.stranger, other.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ReviewedBy, "reviewer cleared, report kept")
	assert.Equal(t, models.StatusVerified, got.Status)

	assert.ErrorIs(t, f.s.DeleteUser(f.ctx, f.owner), store.ErrNotFound)
}

func TestRefreshTokensAreSingleUse(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	require.NoError(t, f.s.SaveRefreshToken(f.ctx, &models.RefreshToken{UserID: f.owner, TokenHash: "a", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, f.s.SaveRefreshToken(f.ctx, &models.RefreshToken{UserID: f.owner, TokenHash: "b", ExpiresAt: now.Add(-time.Hour)}))

	tok, err := f.s.ConsumeRefreshToken(f.ctx, "a", now)
	require.NoError(t, err)
	assert.Equal(t, f.owner, tok.UserID)
	_, err = f.s.ConsumeRefreshToken(f.ctx, "a", now)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.s.ConsumeRefreshToken(f.ctx, "b", now)
	assert.ErrorIs(t, err, store.ErrNotFound, "expired")
}
