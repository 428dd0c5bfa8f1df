package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportCategory mirrors the report_category enum type.
type ReportCategory string

const (
	CategoryPowerOutage ReportCategory = "power_outage"
	CategoryWaterCut    ReportCategory = "water_cut"
	CategoryRoadDamage  ReportCategory = "road_damage"
	CategoryOther       ReportCategory = "other"
)

var ReportCategories = []ReportCategory{
	CategoryPowerOutage,
	CategoryWaterCut,
	CategoryRoadDamage,
	CategoryOther,
}

func (c ReportCategory) Valid() bool {
	for _, v := range ReportCategories {
		if c == v {
			return true
		}
	}
	return false
}

// ReportStatus mirrors the report_status enum type.
type ReportStatus string

const (
	StatusPending  ReportStatus = "pending"
	StatusVerified ReportStatus = "verified"
	StatusRejected ReportStatus = "rejected"
)

var ReportStatuses = []ReportStatus{StatusPending, StatusVerified, StatusRejected}

func (s ReportStatus) Valid() bool {
	return s == StatusPending || s == StatusVerified || s == StatusRejected
}

// Terminal reports whether no further transition is allowed out of s.
func (s ReportStatus) Terminal() bool {
	return s == StatusVerified || s == StatusRejected
}

// Report is a community incident submitted by a user and reviewed by a moderator.
type Report struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Title       string         `gorm:"type:text;not null" json:"title"`
	Category    ReportCategory `gorm:"type:report_category;not null;index" json:"category"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Location    *string        `gorm:"type:text" json:"location"`
	ImageURL    *string        `gorm:"type:text" json:"image_url"`
	Status      ReportStatus   `gorm:"type:report_status;not null;default:'pending';index" json:"status"`
	ReviewedBy  *uuid.UUID     `gorm:"type:uuid;index" json:"reviewed_by"`
	ReviewedAt  *time.Time     `json:"reviewed_at"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Owner       *User          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Reviewer    *User          `gorm:"foreignKey:ReviewedBy;constraint:OnDelete:SET NULL" json:"-"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (Report) TableName() string {
	return "reports"
}
