package repository

import (
	"github.com/acsk/AppCheckin-sub000/app/models"
	"gorm.io/gorm"
)

// enrollmentRepository implements the EnrollmentRepository interface
type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository creates a new enrollment repository instance
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) GetByID(academyID, id uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := r.db.Where("academy_id = ?", academyID).First(&enrollment, id).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *enrollmentRepository) ListByAcademy(academyID uint, status string, offset, limit int) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	query := r.db.Where("academy_id = ?", academyID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepository) ListByStudent(academyID, studentID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := r.db.Where("academy_id = ? AND student_id = ?", academyID, studentID).
		Order("created_at DESC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepository) CountByStatus(academyID uint, status string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Enrollment{}).
		Where("academy_id = ? AND status = ?", academyID, status).
		Count(&count).Error
	return count, err
}

func (r *enrollmentRepository) ListRenewals(academyID, enrollmentID uint) ([]models.RenewalHistory, error) {
	var renewals []models.RenewalHistory
	err := r.db.Where("academy_id = ? AND enrollment_id = ?", academyID, enrollmentID).
		Order("created_at ASC").
		Find(&renewals).Error
	return renewals, err
}
