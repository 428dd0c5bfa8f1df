package services

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/policy"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/realtime"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/store"
	"github.com/google/uuid"
)

// ModerationService is the moderator queue and the review transitions.
type ModerationService struct {
	reports store.Reports
	roles   policy.RoleChecker
	events  realtime.Publisher
}

func NewModerationService(reports store.Reports, roles policy.RoleChecker, events realtime.Publisher) *ModerationService {
	return &ModerationService{reports: reports, roles: roles, events: events}
}

func (s *ModerationService) moderator(ctx context.Context, callerID uuid.UUID) (policy.Subject, error) {
	subject, err := policy.Resolve(ctx, s.roles, callerID)
	if err != nil {
		return subject, err
	}
	if !subject.Moderator {
		return subject, ErrForbidden
	}
	return subject, nil
}

// Queue lists reports for review, pending ones unless a status is given.
func (s *ModerationService) Queue(ctx context.Context, callerID uuid.UUID, q dto.ListReportsQuery) (*dto.ReportListResponse, error) {
	if _, err := s.moderator(ctx, callerID); err != nil {
		return nil, err
	}
	if q.Status == "" {
		q.Status = string(models.StatusPending)
	}
	f, err := listFilter(q)
	if err != nil {
		return nil, err
	}
	reports, total, err := s.reports.ListReports(ctx, callerID, f)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []models.Report{}
	}
	return &dto.ReportListResponse{Reports: reports, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

func (s *ModerationService) Approve(ctx context.Context, callerID, id uuid.UUID) (*models.Report, error) {
	return s.review(ctx, callerID, id, models.StatusVerified)
}

func (s *ModerationService) Reject(ctx context.Context, callerID, id uuid.UUID) (*models.Report, error) {
	return s.review(ctx, callerID, id, models.StatusRejected)
}

func (s *ModerationService) review(ctx context.Context, callerID, id uuid.UUID, to models.ReportStatus) (*models.Report, error) {
	subject, err := s.moderator(ctx, callerID)
	if err != nil {
		return nil, err
	}

	report, err := s.reports.TransitionReport(ctx, callerID, id, to)
	if err == nil {
		notify(ctx, s.events, realtime.NewEvent(realtime.EntityReports, realtime.ActionReviewed, report.ID))
		return report, nil
	}
	if !errors.Is(err, store.ErrDenied) {
		return nil, err
	}

	// The write matched no row. Moderators can read every report, so the
	// current state tells absent apart from already reviewed.
	current, getErr := s.reports.GetReport(ctx, callerID, id)
	if getErr != nil {
		return nil, getErr
	}
	if terr := policy.CanReview(subject, current, to); terr != nil {
		return nil, terr
	}
	return nil, err
}
