package services

import (
	"strings"
	"testing"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/policy"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/realtime"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateValidation(t *testing.T) {
	e := newEnv(t)
	owner := e.register(t, "a@example.com")

	cases := []struct {
		name  string
		req   dto.CreateReportRequest
		field string
	}{
		{"blank title", dto.CreateReportRequest{Title: "   ", Category: "other", Description: "d"}, "title"},
		{"long title", dto.CreateReportRequest{Title: strings.Repeat("x", 201), Category: "other", Description: "d"}, "title"},
		{"bad category", dto.CreateReportRequest{Title: "t", Category: "fire", Description: "d"}, "category"},
		{"missing description", dto.CreateReportRequest{Title: "t", Category: "other"}, "description"},
		{"long description", dto.CreateReportRequest{Title: "t", Category: "other", Description: strings.Repeat("x", 2001)}, "description"},
		{"long location", dto.CreateReportRequest{Title: "t", Category: "other", Description: "d", Location: strp(strings.Repeat("x", 501))}, "location"},
		{"ftp image", dto.CreateReportRequest{Title: "t", Category: "other", Description: "d", ImageURL: strp("ftp://host/x.jpg")}, "image_url"},
		{"relative image", dto.CreateReportRequest{Title: "t", Category: "other", Description: "d", ImageURL: strp("/x.jpg")}, "image_url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := tc.req
			_, err := e.reports.Create(e.ctx, owner, &req)
			assertField(t, err, tc.field)
		})
	}
}

func TestCreateCountsRunesNotBytes(t *testing.T) {
	e := newEnv(t)
	owner := e.register(t, "a@example.com")

	_, err := e.reports.Create(e.ctx, owner, &dto.CreateReportRequest{
		Title:       strings.Repeat("ş", 200),
		Category:    "other",
		Description: "d",
	})
	assert.NoError(t, err)
}

func TestCreateNormalizesAndForcesPending(t *testing.T) {
	e := newEnv(t)
	owner := e.register(t, "a@example.com")
	e.drain()

	r, err := e.reports.Create(e.ctx, owner, &dto.CreateReportRequest{
		Title:       "  Outage  ",
		Category:    "power_outage",
		Description: "whole block dark",
		Location:    strp("  "),
		ImageURL:    strp("https://cdn.example.com/reports/a.jpg"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Outage", r.Title)
	assert.Equal(t, owner, r.UserID)
	assert.Equal(t, models.StatusPending, r.Status)
	assert.Nil(t, r.Location)
	require.NotNil(t, r.ImageURL)

	evs := e.drain()
	require.Len(t, evs, 1)
	assert.Equal(t, realtime.EntityReports, evs[0].Entity)
	assert.Equal(t, realtime.ActionCreated, evs[0].Action)
	assert.Equal(t, r.ID, evs[0].ID)
}

func TestUpdatePaths(t *testing.T) {
	e := newEnv(t)
	owner := e.register(t, "owner@example.com")
	stranger := e.register(t, "stranger@example.com")
	mod := e.moderatorID(t, "mod@example.com")
	r := e.create(t, owner)

	_, err := e.reports.Update(e.ctx, stranger, r.ID, &dto.UpdateReportRequest{Title: strp("hijack")})
	assert.ErrorIs(t, err, store.ErrNotFound, "pending report is invisible to strangers")

	updated, err := e.reports.Update(e.ctx, owner, r.ID, &dto.UpdateReportRequest{Title: strp("Deep pothole"), Location: strp("Elm St")})
	require.NoError(t, err)
	assert.Equal(t, "Deep pothole", updated.Title)
	require.NotNil(t, updated.Location)

	_, err = e.moderation.Approve(e.ctx, mod, r.ID)
	require.NoError(t, err)

	_, err = e.reports.Update(e.ctx, owner, r.ID, &dto.UpdateReportRequest{Title: strp("after review")})
	assert.ErrorIs(t, err, store.ErrDenied)

	_, err = e.reports.Update(e.ctx, stranger, r.ID, &dto.UpdateReportRequest{Title: strp("after review")})
	assert.ErrorIs(t, err, store.ErrDenied, "verified report is readable, so the denial is not hidden")

	fixed, err := e.reports.Update(e.ctx, mod, r.ID, &dto.UpdateReportRequest{Location: strp("")})
	require.NoError(t, err)
	assert.Nil(t, fixed.Location)
	assert.Equal(t, models.StatusVerified, fixed.Status)
}

func TestUpdateRejectsEmptyPatch(t *testing.T) {
	e := newEnv(t)
	owner := e.register(t, "a@example.com")
	r := e.create(t, owner)

	_, err := e.reports.Update(e.ctx, owner, r.ID, &dto.UpdateReportRequest{})
	assertField(t, err, "body")

	_, err = e.reports.Update(e.ctx, owner, r.ID, &dto.UpdateReportRequest{Category: strp("lava")})
	assertField(t, err, "category")
}

func TestListFiltersAndCaps(t *testing.T) {
	e := newEnv(t)
	owner := e.register(t, "a@example.com")
	e.create(t, owner)

	_, err := e.reports.List(e.ctx, owner, dto.ListReportsQuery{Status: "archived"})
	assertField(t, err, "status")

	resp, err := e.reports.List(e.ctx, owner, dto.ListReportsQuery{Limit: 1000, Mine: true})
	require.NoError(t, err)
	assert.Equal(t, 100, resp.Limit)
	assert.Equal(t, int64(1), resp.Total)

	stranger := e.register(t, "b@example.com")
	resp, err = e.reports.List(e.ctx, stranger, dto.ListReportsQuery{})
	require.NoError(t, err)
	assert.NotNil(t, resp.Reports)
	assert.Empty(t, resp.Reports)
}

func TestModerationRequiresRole(t *testing.T) {
	e := newEnv(t)
	owner := e.register(t, "a@example.com")
	r := e.create(t, owner)

	_, err := e.moderation.Approve(e.ctx, owner, r.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.moderation.Queue(e.ctx, owner, dto.ListReportsQuery{})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestReviewStampsAndIsTerminal(t *testing.T) {
	e := newEnv(t)
	owner := e.register(t, "a@example.com")
	mod := e.moderatorID(t, "mod@example.com")
	r := e.create(t, owner)
	e.drain()

	rejected, err := e.moderation.Reject(e.ctx, mod, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	require.NotNil(t, rejected.ReviewedBy)
	assert.Equal(t, mod, *rejected.ReviewedBy)
	assert.NotNil(t, rejected.ReviewedAt)

	evs := e.drain()
	require.Len(t, evs, 1)
	assert.Equal(t, realtime.ActionReviewed, evs[0].Action)

	_, err = e.moderation.Reject(e.ctx, mod, r.ID)
	assert.ErrorIs(t, err, policy.ErrIllegalTransition)
	_, err = e.moderation.Approve(e.ctx, mod, r.ID)
	assert.ErrorIs(t, err, policy.ErrIllegalTransition)
	assert.Empty(t, e.drain())

	_, err = e.moderation.Approve(e.ctx, mod, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestQueueDefaultsToPending(t *testing.T) {
	e := newEnv(t)
	owner := e.register(t, "a@example.com")
	mod := e.moderatorID(t, "mod@example.com")
	first := e.create(t, owner)
	e.create(t, owner)
	_, err := e.moderation.Approve(e.ctx, mod, first.ID)
	require.NoError(t, err)

	queue, err := e.moderation.Queue(e.ctx, mod, dto.ListReportsQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), queue.Total)
	for _, r := range queue.Reports {
		assert.Equal(t, models.StatusPending, r.Status)
	}

	verified, err := e.moderation.Queue(e.ctx, mod, dto.ListReportsQuery{Status: "verified"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), verified.Total)
}

func TestDashboardCountsReadableRows(t *testing.T) {
	e := newEnv(t)
	a := e.register(t, "a@example.com")
	b := e.register(t, "b@example.com")
	mod := e.moderatorID(t, "mod@example.com")
	r1 := e.create(t, a)
	r2 := e.create(t, a)
	e.create(t, b)
	_, err := e.moderation.Approve(e.ctx, mod, r1.ID)
	require.NoError(t, err)
	_, err = e.moderation.Reject(e.ctx, mod, r2.ID)
	require.NoError(t, err)

	all, err := e.reports.Dashboard(e.ctx, mod)
	require.NoError(t, err)
	assert.Equal(t, dto.DashboardResponse{Total: 3, Pending: 1, Verified: 1, Rejected: 1}, *all)

	mine, err := e.reports.Dashboard(e.ctx, b)
	require.NoError(t, err)
	assert.Equal(t, dto.DashboardResponse{Total: 2, Pending: 1, Verified: 1}, *mine)
}
