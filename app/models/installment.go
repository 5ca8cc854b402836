package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	InstallmentStatusAwaiting = "pendente"
	InstallmentStatusPaid     = "pago"
	InstallmentStatusOverdue  = "vencido"
)

const (
	SettlementTypeManual  = "manual"
	SettlementTypeGateway = "gateway"
)

// Installment is one payable unit under an enrollment. There is no
// pre-materialized schedule: each settlement generates the next installment
// (rolling one-ahead billing).
type Installment struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	AcademyID      uint            `gorm:"not null;index" json:"academy_id"`
	EnrollmentID   uint            `gorm:"not null;index:idx_installments_enrollment_status,priority:1" json:"enrollment_id"`
	PlanID         uint            `gorm:"not null" json:"plan_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	DueDate        time.Time       `gorm:"type:date;not null;index" json:"due_date"`
	PaidAt         *time.Time      `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	Status         string          `gorm:"type:varchar(20);not null;default:'pendente';index:idx_installments_enrollment_status,priority:2" json:"status"`
	PaymentMethod  string          `gorm:"type:varchar(40)" json:"payment_method,omitempty"`
	SettledBy      *uint           `gorm:"default:null" json:"settled_by,omitempty"`
	SettlementType string          `gorm:"type:varchar(20)" json:"settlement_type,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsPaid reports whether the installment was settled.
func (i *Installment) IsPaid() bool {
	return i.Status == InstallmentStatusPaid && i.PaidAt != nil
}
