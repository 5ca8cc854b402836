package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Plan is the pricing template students enroll into. DurationDays drives the
// due date for plans without cycles; a zero price marks a trial plan.
type Plan struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	AcademyID    uint            `gorm:"not null;index" json:"academy_id"`
	Name         string          `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=2,max=150"`
	Modality     string          `gorm:"type:varchar(100);not null;index" json:"modality" validate:"required,max=100"`
	Description  string          `gorm:"type:text" json:"description"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	DurationDays int             `gorm:"not null;default:30" json:"duration_days" validate:"min=1"`
	Active       bool            `gorm:"default:true;index" json:"active"`
	Cycles       []PlanCycle     `gorm:"foreignKey:PlanID" json:"cycles,omitempty"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
}

// PlanCycle is an alternative price/duration pair for a plan (quarterly,
// annual, ...). Duration is whole months, unlike the plan's day-based default.
type PlanCycle struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	PlanID         uint            `gorm:"not null;index" json:"plan_id"`
	Name           string          `gorm:"type:varchar(100);not null" json:"name" validate:"required,max=100"`
	Price          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	DurationMonths int             `gorm:"not null;default:1" json:"duration_months" validate:"min=1"`
	Recurring      bool            `gorm:"default:false" json:"recurring"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Plan) Validate() error {
	v := validator.New()

	return v.Struct(p)
}

// IsTrial reports whether enrolling into this plan starts a free trial.
func (p *Plan) IsTrial() bool {
	return p.Price.IsZero()
}
