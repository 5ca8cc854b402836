package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FitnessPackage is the bundle definition an academy sells: one plan shared by
// up to MaxBeneficiaries students for a single total price.
type FitnessPackage struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	AcademyID        uint            `gorm:"not null;index" json:"academy_id"`
	Name             string          `gorm:"type:varchar(150);not null" json:"name" validate:"required,max=150"`
	PlanID           uint            `gorm:"not null" json:"plan_id"`
	PlanCycleID      *uint           `gorm:"default:null" json:"plan_cycle_id,omitempty"`
	TotalPrice       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`
	MaxBeneficiaries int             `gorm:"not null;default:2" json:"max_beneficiaries" validate:"min=1"`
	Active           bool            `gorm:"default:true" json:"active"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`
}

const (
	PackageContractStatusPending  = "pendente"
	PackageContractStatusActive   = "ativo"
	PackageContractStatusPaid     = "pago"
	PackageContractStatusCanceled = "cancelado"
)

// PackageContract groups one bundle purchase: the payer, the agreed total and
// the beneficiary enrollments hanging off it.
type PackageContract struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	AcademyID      uint            `gorm:"not null;index" json:"academy_id"`
	PackageID      uint            `gorm:"not null;index" json:"package_id"`
	PayerStudentID uint            `gorm:"not null;index" json:"payer_student_id"`
	TotalPrice     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`
	Status         string          `gorm:"type:varchar(20);not null;default:'pendente';index" json:"status"`
	StartDate      time.Time       `gorm:"type:date;not null" json:"start_date"`
	EndDate        time.Time       `gorm:"type:date;not null" json:"end_date"`
	CanceledAt     *time.Time      `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Beneficiaries []PackageBeneficiary `gorm:"foreignKey:PackageContractID" json:"beneficiaries,omitempty"`
}

// PackageBeneficiary links one student's enrollment to a package contract with
// that student's prorated share of the bundle price.
type PackageBeneficiary struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	PackageContractID uint            `gorm:"not null;index" json:"package_contract_id"`
	StudentID         uint            `gorm:"not null;index" json:"student_id"`
	EnrollmentID      uint            `gorm:"not null;index" json:"enrollment_id"`
	Share             decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"share"`
	Status            string          `gorm:"type:varchar(20);not null;default:'pendente'" json:"status"`
	SettledAt         *time.Time      `gorm:"type:timestamp;default:null" json:"settled_at,omitempty"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
