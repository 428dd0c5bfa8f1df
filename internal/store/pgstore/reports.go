package pgstore

import (
	"context"
	"strings"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/policy"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/store"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) CreateReport(ctx context.Context, callerID uuid.UUID, r *models.Report) error {
	if !policy.CanCreate(policy.Subject{ID: callerID}, r.UserID) {
		return store.ErrDenied
	}
	r.Status = models.StatusPending
	r.ReviewedBy = nil
	r.ReviewedAt = nil

	return s.asCaller(ctx, callerID, func(tx *gorm.DB) error {
		return translate(tx.Omit(clause.Associations).Create(r).Error)
	})
}

func (s *Store) GetReport(ctx context.Context, callerID, id uuid.UUID) (*models.Report, error) {
	var r models.Report
	err := s.asCaller(ctx, callerID, func(tx *gorm.DB) error {
		return translate(tx.Scopes(policy.ReadableBy(callerID)).Where("id = ?", id).Take(&r).Error)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListReports(ctx context.Context, callerID uuid.UUID, f store.ReportFilter) ([]models.Report, int64, error) {
	var (
		reports []models.Report
		total   int64
	)
	err := s.asCaller(ctx, callerID, func(tx *gorm.DB) error {
		q := tx.Model(&models.Report{}).Scopes(policy.ReadableBy(callerID))
		if f.Status != "" {
			q = q.Where("status = ?", string(f.Status))
		}
		if f.Category != "" {
			q = q.Where("category = ?", string(f.Category))
		}
		if f.Mine {
			q = q.Scopes(policy.OwnedBy(callerID))
		}
		q = q.Session(&gorm.Session{})

		if err := q.Count(&total).Error; err != nil {
			return translate(err)
		}
		page := q.Order("created_at DESC").Order("id")
		if f.Limit > 0 {
			page = page.Limit(f.Limit)
		}
		if f.Offset > 0 {
			page = page.Offset(f.Offset)
		}
		return translate(page.Find(&reports).Error)
	})
	if err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (s *Store) UpdateReport(ctx context.Context, callerID, id uuid.UUID, p store.ReportPatch) (*models.Report, error) {
	sets := make([]string, 0, 6)
	args := map[string]interface{}{"id": id, "caller": callerID}
	if p.Title != nil {
		sets = append(sets, "title = @title")
		args["title"] = *p.Title
	}
	if p.Category != nil {
		sets = append(sets, "category = CAST(@category AS report_category)")
		args["category"] = string(*p.Category)
	}
	if p.Description != nil {
		sets = append(sets, "description = @description")
		args["description"] = *p.Description
	}
	if p.Location != nil {
		sets = append(sets, "location = @location")
		args["location"] = nullable(*p.Location)
	}
	if p.ImageURL != nil {
		sets = append(sets, "image_url = @image_url")
		args["image_url"] = nullable(*p.ImageURL)
	}
	sets = append(sets, "updated_at = now()")

	sql := "UPDATE reports SET " + strings.Join(sets, ", ") +
		" WHERE id = @id AND " + policy.EditContentSQL + " RETURNING *"
	return s.updateReturning(ctx, callerID, sql, args)
}

func (s *Store) TransitionReport(ctx context.Context, callerID, id uuid.UUID, to models.ReportStatus) (*models.Report, error) {
	if !to.Terminal() {
		return nil, store.ErrDenied
	}
	sql := "UPDATE reports SET status = CAST(@status AS report_status), reviewed_by = @caller, " +
		"reviewed_at = now(), updated_at = now() WHERE id = @id AND " + policy.ReviewSQL + " RETURNING *"
	args := map[string]interface{}{"id": id, "caller": callerID, "status": string(to)}
	return s.updateReturning(ctx, callerID, sql, args)
}

// updateReturning runs a single UPDATE ... RETURNING. Zero rows means the
// predicate rejected the write (or the row is absent); both are ErrDenied.
func (s *Store) updateReturning(ctx context.Context, callerID uuid.UUID, sql string, args map[string]interface{}) (*models.Report, error) {
	var rows []models.Report
	err := s.asCaller(ctx, callerID, func(tx *gorm.DB) error {
		if err := tx.Raw(sql, args).Scan(&rows).Error; err != nil {
			return translate(err)
		}
		if len(rows) == 0 {
			return store.ErrDenied
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rows[0], nil
}

func (s *Store) CountByStatus(ctx context.Context, callerID uuid.UUID) (store.StatusCounts, error) {
	var rows []struct {
		Status models.ReportStatus
		Count  int64
	}
	err := s.asCaller(ctx, callerID, func(tx *gorm.DB) error {
		return translate(tx.Model(&models.Report{}).
			Scopes(policy.ReadableBy(callerID)).
			Select("status, count(*) AS count").
			Group("status").
			Scan(&rows).Error)
	})
	if err != nil {
		return nil, err
	}

	counts := make(store.StatusCounts, len(models.ReportStatuses))
	for _, st := range models.ReportStatuses {
		counts[st] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func nullable(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
