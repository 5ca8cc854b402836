package models

import "time"

const (
	SubscriptionStatusPending  = "pendente"
	SubscriptionStatusActive   = "ativa"
	SubscriptionStatusPaused   = "pausada"
	SubscriptionStatusCanceled = "cancelada"
	// "paga" terminates one-off agreements; recurring ones stay "ativa".
	SubscriptionStatusPaid = "paga"
)

const (
	BillingModeOneOff    = "avulsa"
	BillingModeRecurring = "recorrente"
)

// Subscription mirrors a billing agreement at the payment gateway
// (card-on-file or single checkout) and ties it to a local enrollment. The
// package contract link is filled in lazily once an event correlates the two.
type Subscription struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	AcademyID             uint       `gorm:"not null;index" json:"academy_id"`
	EnrollmentID          *uint      `gorm:"default:null;index" json:"enrollment_id,omitempty"`
	PackageContractID     *uint      `gorm:"default:null;index" json:"package_contract_id,omitempty"`
	BillingMode           string     `gorm:"type:varchar(20);not null;default:'avulsa'" json:"billing_mode"`
	GatewaySubscriptionID string     `gorm:"type:varchar(191);index:ux_subscriptions_gateway_sub,unique" json:"gateway_subscription_id"`
	GatewayPreferenceID   string     `gorm:"type:varchar(191);index" json:"gateway_preference_id"`
	Status                string     `gorm:"type:varchar(20);not null;default:'pendente';index" json:"status"`
	LastChargeAt          *time.Time `gorm:"type:timestamp;default:null" json:"last_charge_at,omitempty"`
	NextChargeAt          *time.Time `gorm:"type:timestamp;default:null" json:"next_charge_at,omitempty"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsOneOff reports whether this agreement bills a single charge.
func (s *Subscription) IsOneOff() bool {
	return s.BillingMode == BillingModeOneOff
}
