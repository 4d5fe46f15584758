package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PackageTypeTime    = "time"
	PackageTypeData    = "data"
	PackageTypeSpecial = "special"
)

// Duration units assigned at catalog-authoring time. Packages created before
// the structured fields existed carry DurationUnit = "" and fall back to the
// legacy ShortDuration parser.
const (
	DurationUnitMinutes = "minutes"
	DurationUnitHours   = "hours"
	DurationUnitDays    = "days"
	DurationUnitWeeks   = "weeks"
	DurationUnitMonths  = "months"
)

// Package is a purchasable internet plan. Rows are immutable from the
// customer's point of view; vouchers copy what they need at creation time so
// later catalog edits never affect issued vouchers.
type Package struct {
	ID            string    `gorm:"type:char(36);primaryKey" json:"id"`
	Name          string    `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=3,max=150"`
	Type          string    `gorm:"type:varchar(20);not null;index" json:"type" validate:"oneof=time data special"`
	Duration      string    `gorm:"type:varchar(100);not null" json:"duration"`
	ShortDuration string    `gorm:"type:varchar(20);default:''" json:"short_duration,omitempty"`
	DurationUnit  string    `gorm:"type:varchar(16);default:''" json:"duration_unit,omitempty"`
	DurationValue int       `gorm:"default:0" json:"duration_value,omitempty"`
	Price         float64   `gorm:"type:decimal(10,2);not null" json:"price" validate:"gt=0"`
	Devices       int       `gorm:"not null;default:1" json:"devices"`
	ExtraTime     bool      `gorm:"default:false" json:"extra_time"`
	Speed         string    `gorm:"type:varchar(50);default:''" json:"speed,omitempty"`
	DataAllowance string    `gorm:"type:varchar(50);default:''" json:"data_allowance,omitempty"`
	FeaturesJSON  string    `gorm:"type:text" json:"-"`
	IsPopular     bool      `gorm:"default:false" json:"is_popular"`
	IsRecommended bool      `gorm:"default:false" json:"is_recommended"`
	IsActive      bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Package) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// HasStructuredDuration reports whether the package carries the authored
// unit/value pair instead of relying on the legacy code parser.
func (p *Package) HasStructuredDuration() bool {
	return p.DurationUnit != "" && p.DurationValue > 0
}
