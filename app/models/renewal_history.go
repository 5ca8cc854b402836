package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RenewalHistory records every create/renew/switch so the enrollment chain
// stays reconstructable even after expired rows are reused in place.
type RenewalHistory struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	AcademyID            uint            `gorm:"not null;index" json:"academy_id"`
	EnrollmentID         uint            `gorm:"not null;index" json:"enrollment_id"`
	PreviousEnrollmentID *uint           `gorm:"default:null" json:"previous_enrollment_id,omitempty"`
	StudentID            uint            `gorm:"not null;index" json:"student_id"`
	PlanID               uint            `gorm:"not null" json:"plan_id"`
	Reason               string          `gorm:"type:varchar(20);not null" json:"reason"`
	Amount               decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
