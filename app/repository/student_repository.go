package repository

import (
	"strings"

	"github.com/acsk/AppCheckin-sub000/app/models"
	"gorm.io/gorm"
)

// studentRepository implements the StudentRepository interface
type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository creates a new student repository instance
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

// Create creates a new student in the database
func (r *studentRepository) Create(student *models.Student) error {
	return r.db.Create(student).Error
}

// GetByID retrieves a student by their ID
func (r *studentRepository) GetByID(id uint) (*models.Student, error) {
	var student models.Student
	err := r.db.First(&student, id).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// GetByEmail retrieves a student by their email address
func (r *studentRepository) GetByEmail(email string) (*models.Student, error) {
	var student models.Student
	err := r.db.Where("email = ?", email).First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// Update updates an existing student in the database
func (r *studentRepository) Update(student *models.Student) error {
	return r.db.Save(student).Error
}

// Delete soft deletes a student by their ID
func (r *studentRepository) Delete(id uint) error {
	return r.db.Delete(&models.Student{}, id).Error
}

// ListByAcademy retrieves a paginated list of students linked to an academy
func (r *studentRepository) ListByAcademy(academyID uint, offset, limit int) ([]models.Student, error) {
	var students []models.Student
	err := r.db.
		Joins("JOIN academy_memberships ON academy_memberships.student_id = students.id").
		Where("academy_memberships.academy_id = ?", academyID).
		Order("students.name ASC").
		Offset(offset).Limit(limit).
		Find(&students).Error
	return students, err
}

// CountByAcademy returns the number of students linked to an academy
func (r *studentRepository) CountByAcademy(academyID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.AcademyMembership{}).
		Where("academy_id = ?", academyID).
		Count(&count).Error
	return count, err
}

// Search searches an academy's students by name or email
func (r *studentRepository) Search(academyID uint, query string) ([]models.Student, error) {
	var students []models.Student
	searchPattern := "%" + strings.TrimSpace(query) + "%"
	err := r.db.
		Joins("JOIN academy_memberships ON academy_memberships.student_id = students.id").
		Where("academy_memberships.academy_id = ?", academyID).
		Where("students.name LIKE ? OR students.email LIKE ?", searchPattern, searchPattern).
		Find(&students).Error
	return students, err
}
