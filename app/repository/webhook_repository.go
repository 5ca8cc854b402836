package repository

import (
	"github.com/acsk/AppCheckin-sub000/app/models"
	"gorm.io/gorm"
)

// webhookRepository implements the WebhookRepository interface
type webhookRepository struct {
	db *gorm.DB
}

// NewWebhookRepository creates a new webhook repository instance
func NewWebhookRepository(db *gorm.DB) WebhookRepository {
	return &webhookRepository{db: db}
}

func (r *webhookRepository) GetByUUID(uuid string) (*models.WebhookRecord, error) {
	var record models.WebhookRecord
	err := r.db.Where("uuid = ?", uuid).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *webhookRepository) List(academyID uint, status string, offset, limit int) ([]models.WebhookRecord, error) {
	var records []models.WebhookRecord
	query := r.db.Model(&models.WebhookRecord{})
	// unresolved records have no academy yet; keep them visible so the
	// audit trail shows events that still need a reprocess
	if academyID != 0 {
		query = query.Where("academy_id = ? OR academy_id IS NULL", academyID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&records).Error
	return records, err
}
