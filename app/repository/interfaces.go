package repository

import (
	"github.com/acsk/AppCheckin-sub000/app/models"
	"gorm.io/gorm"
)

// StudentRepository defines the interface for student-related database operations
type StudentRepository interface {
	Create(student *models.Student) error
	GetByID(id uint) (*models.Student, error)
	GetByEmail(email string) (*models.Student, error)
	Update(student *models.Student) error
	Delete(id uint) error
	ListByAcademy(academyID uint, offset, limit int) ([]models.Student, error)
	CountByAcademy(academyID uint) (int64, error)
	Search(academyID uint, query string) ([]models.Student, error)
}

// PlanRepository defines the interface for plan-related database operations
type PlanRepository interface {
	Create(plan *models.Plan) error
	GetByID(academyID, id uint) (*models.Plan, error)
	ListActive(academyID uint) ([]models.Plan, error)
	ListCycles(planID uint) ([]models.PlanCycle, error)
	Update(plan *models.Plan) error
	Delete(id uint) error
}

// EnrollmentRepository defines the read-side interface for enrollments; all
// mutations go through the membership services.
type EnrollmentRepository interface {
	GetByID(academyID, id uint) (*models.Enrollment, error)
	ListByAcademy(academyID uint, status string, offset, limit int) ([]models.Enrollment, error)
	ListByStudent(academyID, studentID uint) ([]models.Enrollment, error)
	CountByStatus(academyID uint, status string) (int64, error)
	ListRenewals(academyID, enrollmentID uint) ([]models.RenewalHistory, error)
}

// InstallmentRepository defines the read-side interface for installments
type InstallmentRepository interface {
	GetByID(academyID, id uint) (*models.Installment, error)
	ListByEnrollment(enrollmentID uint) ([]models.Installment, error)
	ListOpenByAcademy(academyID uint, offset, limit int) ([]models.Installment, error)
}

// PackageRepository defines the read-side interface for packages and contracts
type PackageRepository interface {
	GetByID(academyID, id uint) (*models.FitnessPackage, error)
	ListActive(academyID uint) ([]models.FitnessPackage, error)
	GetContract(academyID, id uint) (*models.PackageContract, error)
	ListContracts(academyID uint, offset, limit int) ([]models.PackageContract, error)
}

// WebhookRepository defines the read-side interface for the webhook audit log
type WebhookRepository interface {
	GetByUUID(uuid string) (*models.WebhookRecord, error)
	List(academyID uint, status string, offset, limit int) ([]models.WebhookRecord, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Student     StudentRepository
	Plan        PlanRepository
	Enrollment  EnrollmentRepository
	Installment InstallmentRepository
	Package     PackageRepository
	Webhook     WebhookRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Student:     NewStudentRepository(db),
		Plan:        NewPlanRepository(db),
		Enrollment:  NewEnrollmentRepository(db),
		Installment: NewInstallmentRepository(db),
		Package:     NewPackageRepository(db),
		Webhook:     NewWebhookRepository(db),
	}
}
