package services

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/store"
)

const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 2000
	MaxLocationLen    = 500
	MaxImageURLLen    = 2048
)

func requiredText(field, v string, limit int) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", invalid(field, "is required")
	}
	if utf8.RuneCountInString(v) > limit {
		return "", invalid(field, fmt.Sprintf("must be at most %d characters", limit))
	}
	return v, nil
}

// optionalText trims v. The empty result means "clear".
func optionalText(field, v string, limit int) (string, error) {
	v = strings.TrimSpace(v)
	if utf8.RuneCountInString(v) > limit {
		return "", invalid(field, fmt.Sprintf("must be at most %d characters", limit))
	}
	return v, nil
}

func imageURL(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	if len(v) > MaxImageURLLen {
		return "", invalid("image_url", fmt.Sprintf("must be at most %d characters", MaxImageURLLen))
	}
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", invalid("image_url", "must be an http or https URL")
	}
	return v, nil
}

func category(v string) (models.ReportCategory, error) {
	c := models.ReportCategory(strings.TrimSpace(v))
	if c == "" {
		return "", invalid("category", "is required")
	}
	if !c.Valid() {
		return "", invalid("category", fmt.Sprintf("must be one of %v", models.ReportCategories))
	}
	return c, nil
}

func strPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// newReport validates a create request. Owner and status are not taken from
// the request.
func newReport(req *dto.CreateReportRequest) (*models.Report, error) {
	title, err := requiredText("title", req.Title, MaxTitleLen)
	if err != nil {
		return nil, err
	}
	cat, err := category(req.Category)
	if err != nil {
		return nil, err
	}
	desc, err := requiredText("description", req.Description, MaxDescriptionLen)
	if err != nil {
		return nil, err
	}
	r := &models.Report{Title: title, Category: cat, Description: desc}
	if req.Location != nil {
		loc, err := optionalText("location", *req.Location, MaxLocationLen)
		if err != nil {
			return nil, err
		}
		r.Location = strPtr(loc)
	}
	if req.ImageURL != nil {
		img, err := imageURL(*req.ImageURL)
		if err != nil {
			return nil, err
		}
		r.ImageURL = strPtr(img)
	}
	return r, nil
}

func newPatch(req *dto.UpdateReportRequest) (store.ReportPatch, error) {
	var p store.ReportPatch
	if req.Title != nil {
		v, err := requiredText("title", *req.Title, MaxTitleLen)
		if err != nil {
			return p, err
		}
		p.Title = &v
	}
	if req.Category != nil {
		c, err := category(*req.Category)
		if err != nil {
			return p, err
		}
		p.Category = &c
	}
	if req.Description != nil {
		v, err := requiredText("description", *req.Description, MaxDescriptionLen)
		if err != nil {
			return p, err
		}
		p.Description = &v
	}
	if req.Location != nil {
		v, err := optionalText("location", *req.Location, MaxLocationLen)
		if err != nil {
			return p, err
		}
		p.Location = &v
	}
	if req.ImageURL != nil {
		v, err := imageURL(*req.ImageURL)
		if err != nil {
			return p, err
		}
		p.ImageURL = &v
	}
	if p.Empty() {
		return p, invalid("body", "no fields to update")
	}
	return p, nil
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func listFilter(q dto.ListReportsQuery) (store.ReportFilter, error) {
	f := store.ReportFilter{Mine: q.Mine, Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		f.Status = models.ReportStatus(q.Status)
		if !f.Status.Valid() {
			return f, invalid("status", fmt.Sprintf("must be one of %v", models.ReportStatuses))
		}
	}
	if q.Category != "" {
		f.Category = models.ReportCategory(q.Category)
		if !f.Category.Valid() {
			return f, invalid("category", fmt.Sprintf("must be one of %v", models.ReportCategories))
		}
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f, nil
}
