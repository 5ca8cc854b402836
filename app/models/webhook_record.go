package models

import "time"

const (
	WebhookStatusSuccess     = "success"
	WebhookStatusError       = "error"
	WebhookStatusReprocessed = "reprocessed"
)

// WebhookRecord is the append-only audit of every inbound gateway event: raw
// payload, derived correlation ids and the processing outcome. Rows are never
// mutated after reaching a terminal status except to mark a manual reprocess.
type WebhookRecord struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UUID              string     `gorm:"type:varchar(36);not null;uniqueIndex" json:"uuid"`
	AcademyID         *uint      `gorm:"default:null;index" json:"academy_id,omitempty"`
	EventType         string     `gorm:"type:varchar(60);not null;index" json:"event_type"`
	ExternalID        string     `gorm:"type:varchar(191);not null;index" json:"external_id"`
	ExternalReference string     `gorm:"type:varchar(191)" json:"external_reference,omitempty"`
	RawPayload        string     `gorm:"type:longtext;not null" json:"raw_payload"`
	EnrollmentID      *uint      `gorm:"default:null;index" json:"enrollment_id,omitempty"`
	PackageContractID *uint      `gorm:"default:null;index" json:"package_contract_id,omitempty"`
	Status            string     `gorm:"type:varchar(20);not null;index" json:"status"`
	ErrorDetail       string     `gorm:"type:text" json:"error_detail,omitempty"`
	Result            string     `gorm:"type:text" json:"result,omitempty"`
	ProcessedAt       *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ReprocessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"reprocessed_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
