package repository

import (
	"github.com/acsk/AppCheckin-sub000/app/models"
	"gorm.io/gorm"
)

// installmentRepository implements the InstallmentRepository interface
type installmentRepository struct {
	db *gorm.DB
}

// NewInstallmentRepository creates a new installment repository instance
func NewInstallmentRepository(db *gorm.DB) InstallmentRepository {
	return &installmentRepository{db: db}
}

func (r *installmentRepository) GetByID(academyID, id uint) (*models.Installment, error) {
	var installment models.Installment
	err := r.db.Where("academy_id = ?", academyID).First(&installment, id).Error
	if err != nil {
		return nil, err
	}
	return &installment, nil
}

func (r *installmentRepository) ListByEnrollment(enrollmentID uint) ([]models.Installment, error) {
	var installments []models.Installment
	err := r.db.Where("enrollment_id = ?", enrollmentID).
		Order("due_date ASC").
		Find(&installments).Error
	return installments, err
}

// ListOpenByAcademy lists unpaid installments across the academy ordered by
// due date, for the front-desk collection view
func (r *installmentRepository) ListOpenByAcademy(academyID uint, offset, limit int) ([]models.Installment, error) {
	var installments []models.Installment
	err := r.db.Where("academy_id = ? AND status IN ?", academyID,
		[]string{models.InstallmentStatusAwaiting, models.InstallmentStatusOverdue}).
		Order("due_date ASC").
		Offset(offset).Limit(limit).
		Find(&installments).Error
	return installments, err
}
