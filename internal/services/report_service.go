package services

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/realtime"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/store"
	"github.com/google/uuid"
)

// ReportService validates input and hands every read and write to the store,
// which applies the access policy for the caller.
type ReportService struct {
	reports store.Reports
	events  realtime.Publisher
}

func NewReportService(reports store.Reports, events realtime.Publisher) *ReportService {
	return &ReportService{reports: reports, events: events}
}

func (s *ReportService) Create(ctx context.Context, callerID uuid.UUID, req *dto.CreateReportRequest) (*models.Report, error) {
	report, err := newReport(req)
	if err != nil {
		return nil, err
	}
	report.UserID = callerID

	if err := s.reports.CreateReport(ctx, callerID, report); err != nil {
		return nil, err
	}
	notify(ctx, s.events, realtime.NewEvent(realtime.EntityReports, realtime.ActionCreated, report.ID))
	return report, nil
}

func (s *ReportService) List(ctx context.Context, callerID uuid.UUID, q dto.ListReportsQuery) (*dto.ReportListResponse, error) {
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

func (s *ReportService) Get(ctx context.Context, callerID, id uuid.UUID) (*models.Report, error) {
	return s.reports.GetReport(ctx, callerID, id)
}

// Update applies a content change. A denied write on a row the caller cannot
// read is reported as not found.
func (s *ReportService) Update(ctx context.Context, callerID, id uuid.UUID, req *dto.UpdateReportRequest) (*models.Report, error) {
	patch, err := newPatch(req)
	if err != nil {
		return nil, err
	}

	report, err := s.reports.UpdateReport(ctx, callerID, id, patch)
	if err != nil {
		if errors.Is(err, store.ErrDenied) {
			return nil, s.hideIfUnreadable(ctx, callerID, id, err)
		}
		return nil, err
	}
	notify(ctx, s.events, realtime.NewEvent(realtime.EntityReports, realtime.ActionUpdated, report.ID))
	return report, nil
}

func (s *ReportService) Dashboard(ctx context.Context, callerID uuid.UUID) (*dto.DashboardResponse, error) {
	counts, err := s.reports.CountByStatus(ctx, callerID)
	if err != nil {
		return nil, err
	}
	resp := &dto.DashboardResponse{
		Pending:  counts[models.StatusPending],
		Verified: counts[models.StatusVerified],
		Rejected: counts[models.StatusRejected],
	}
	resp.Total = resp.Pending + resp.Verified + resp.Rejected
	return resp, nil
}

func (s *ReportService) hideIfUnreadable(ctx context.Context, callerID, id uuid.UUID, denied error) error {
	if _, err := s.reports.GetReport(ctx, callerID, id); errors.Is(err, store.ErrNotFound) {
		return store.ErrNotFound
	}
	return denied
}
