package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Enrollment status codes are persisted verbatim and surfaced by the public
// API; existing consumers compare against these literal strings.
const (
	EnrollmentStatusPending  = "pendente"
	EnrollmentStatusActive   = "ativa"
	EnrollmentStatusOverdue  = "vencida"
	EnrollmentStatusCanceled = "cancelada"
	EnrollmentStatusFinished = "finalizada"
)

const (
	EnrollmentReasonNew       = "nova"
	EnrollmentReasonRenewal   = "renovacao"
	EnrollmentReasonUpgrade   = "upgrade"
	EnrollmentReasonDowngrade = "downgrade"
)

// Enrollment is the central entity: one student paying for one plan at one
// academy. At most one enrollment per (student, modality) may be active at a
// time; a replacement becomes possible only once this one is overdue or
// terminal.
type Enrollment struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	AcademyID            uint            `gorm:"not null;index:idx_enrollments_academy_status,priority:1" json:"academy_id"`
	StudentID            uint            `gorm:"not null;index" json:"student_id"`
	PlanID               uint            `gorm:"not null;index" json:"plan_id"`
	PlanCycleID          *uint           `gorm:"default:null" json:"plan_cycle_id,omitempty"`
	PackageContractID    *uint           `gorm:"default:null;index" json:"package_contract_id,omitempty"`
	PreviousEnrollmentID *uint           `gorm:"default:null" json:"previous_enrollment_id,omitempty"`
	Status               string          `gorm:"type:varchar(20);not null;default:'pendente';index:idx_enrollments_academy_status,priority:2" json:"status"`
	Reason               string          `gorm:"type:varchar(20);not null;default:'nova'" json:"reason"`
	Amount               decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	DueDay               int             `gorm:"not null;default:1" json:"due_day"`
	StartDate            time.Time       `gorm:"type:date;not null" json:"start_date"`
	DueDate              time.Time       `gorm:"type:date;not null" json:"due_date"`
	NextDueDate          *time.Time      `gorm:"type:date;default:null" json:"next_due_date,omitempty"`
	Trial                bool            `gorm:"default:false" json:"trial"`
	TrialBillingStart    *time.Time      `gorm:"type:date;default:null" json:"trial_billing_start,omitempty"`
	CanceledAt           *time.Time      `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	CanceledBy           *uint           `gorm:"default:null" json:"canceled_by,omitempty"`
	CancelReason         string          `gorm:"type:varchar(255)" json:"cancel_reason,omitempty"`
	CreatedBy            uint            `gorm:"default:0" json:"created_by"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Plan    *Plan    `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	Student *Student `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

// IsTerminal reports whether the enrollment reached a final state.
func (e *Enrollment) IsTerminal() bool {
	return e.Status == EnrollmentStatusCanceled || e.Status == EnrollmentStatusFinished
}

// IsOpen reports whether the enrollment still grants (or could regain) access.
func (e *Enrollment) IsOpen() bool {
	return e.Status == EnrollmentStatusActive || e.Status == EnrollmentStatusOverdue || e.Status == EnrollmentStatusPending
}

// EffectiveDueDate is the date that drives access: the rolling next due date
// when one exists, else the contractual due date.
func (e *Enrollment) EffectiveDueDate() time.Time {
	if e.NextDueDate != nil {
		return *e.NextDueDate
	}
	return e.DueDate
}
