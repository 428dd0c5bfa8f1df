package dto

import (
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/models"
	"github.com/google/uuid"
)

// CreateReportRequest deliberately has no status or owner: both are set by
// the server.
type CreateReportRequest struct {
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Location    *string `json:"location"`
	ImageURL    *string `json:"image_url"`
}

// UpdateReportRequest is a partial content update. Absent fields are kept;
// an empty location or image_url clears it.
type UpdateReportRequest struct {
	Title       *string `json:"title"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	ImageURL    *string `json:"image_url"`
}

type ListReportsQuery struct {
	Status   string
	Category string
	Mine     bool
	Limit    int
	Offset   int
}

type ReportListResponse struct {
	Reports []models.Report `json:"reports"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

type DashboardResponse struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Verified int64 `json:"verified"`
	Rejected int64 `json:"rejected"`
}

type RoleRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
}

type MediaResponse struct {
	URL string `json:"url"`
	Key string `json:"key"`
}
