package membership

import (
	"time"

	"github.com/shopspring/decimal"
)

// Gateway metadata keys. The checkout collaborator has shipped several client
// versions; these are the legacy keys still seen in production traffic.
const (
	metaEnrollmentID = "matricula_id"
	metaContractID   = "pacote_contrato_id"
	metaStudentID    = "aluno_id"
)

// Event is the logical inbound webhook notification after JSON decoding:
// which object changed at the gateway, not yet what changed.
type Event struct {
	Type       string
	Action     string
	ExternalID string
	ReceivedAt time.Time
}

const (
	EventTypePayment         = "payment"
	EventTypeSubscription    = "subscription_preapproval"
	EventTypePreapproval     = "preapproval"
	EventTypeSubscriptionAlt = "subscription"
)

// IsPaymentEvent reports whether the event references a gateway payment (as
// opposed to a recurring-billing agreement).
func (e Event) IsPaymentEvent() bool {
	return e.Type == EventTypePayment
}

// PaymentRecord is the full payment detail fetched from the gateway
// collaborator for a payment event.
type PaymentRecord struct {
	ID                string
	Status            string
	ExternalReference string
	Amount            decimal.Decimal
	PaymentMethodID   string
	PaymentTypeID     string
	Metadata          map[string]string
}

// SubscriptionRecord is the recurring-agreement detail fetched from the
// gateway collaborator for a preapproval event.
type SubscriptionRecord struct {
	ID                string
	Status            string
	ExternalReference string
	Amount            decimal.Decimal
	NextChargeAt      *time.Time
	Metadata          map[string]string
}

// TargetKind discriminates what an event was resolved to.
type TargetKind string

const (
	TargetEnrollment TargetKind = "enrollment"
	TargetPackage    TargetKind = "package"
)

// Target is the single enrollment or package contract an inbound event maps
// to.
type Target struct {
	Kind TargetKind
	ID   uint
}

// Outcome codes describe what the reconciliation engine did with an event.
const (
	OutcomeActivated       = "activated"
	OutcomeDuplicate       = "duplicate"
	OutcomeRecorded        = "recorded"
	OutcomeCanceled        = "canceled"
	OutcomePackageActive   = "package_activated"
	OutcomePackageCanceled = "package_canceled"
)

// Outcome is the reconciliation result snapshot persisted on the webhook
// audit record.
type Outcome struct {
	Code                 string `json:"code"`
	EnrollmentID         uint   `json:"enrollment_id,omitempty"`
	PackageContractID    uint   `json:"package_contract_id,omitempty"`
	SettledInstallmentID uint   `json:"settled_installment_id,omitempty"`
	NextInstallmentID    uint   `json:"next_installment_id,omitempty"`
	SubscriptionStatus   string `json:"subscription_status,omitempty"`
	ResolvedBy           string `json:"resolved_by,omitempty"`
}
