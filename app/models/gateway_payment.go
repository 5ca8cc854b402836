package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GatewayPayment is a local mirror of a payment seen at the gateway. Besides
// auditing, it is the fallback correlation table: a later event carrying only
// a payment id resolves to an enrollment through this row.
type GatewayPayment struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	AcademyID         uint            `gorm:"not null;index" json:"academy_id"`
	GatewayPaymentID  string          `gorm:"type:varchar(191);not null;uniqueIndex" json:"gateway_payment_id"`
	EnrollmentID      *uint           `gorm:"default:null;index" json:"enrollment_id,omitempty"`
	PackageContractID *uint           `gorm:"default:null;index" json:"package_contract_id,omitempty"`
	Status            string          `gorm:"type:varchar(40);not null" json:"status"`
	Amount            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	PaymentMethod     string          `gorm:"type:varchar(40)" json:"payment_method,omitempty"`
	ExternalReference string          `gorm:"type:varchar(191);index" json:"external_reference,omitempty"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
