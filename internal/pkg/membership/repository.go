package membership

import (
	"errors"
	"time"

	"github.com/acsk/AppCheckin-sub000/app/models"
	"gorm.io/gorm"
)

// Repository provides the DB operations used by the membership services.
// Conditional status updates return whether a row actually changed so callers
// can distinguish a replayed event from a first delivery without read-modify-
// write races.
type Repository interface {
	// WithTx runs fn against a transactional copy of the repository. Any
	// error rolls the whole transaction back.
	WithTx(fn func(Repository) error) error

	GetStudent(studentID uint) (*models.Student, error)
	EnsureMembership(academyID, studentID uint) error
	GetPlan(academyID, planID uint) (*models.Plan, error)
	GetPlanCycle(planID, cycleID uint) (*models.PlanCycle, error)
	GetPackage(academyID, packageID uint) (*models.FitnessPackage, error)

	CreateEnrollment(e *models.Enrollment) error
	SaveEnrollment(e *models.Enrollment) error
	GetEnrollment(id uint) (*models.Enrollment, error)
	DeleteEnrollment(id uint) error
	// FindLatestEnrollmentByModality returns the most recent enrollment of
	// the student in the given modality with one of the given statuses, or
	// nil when none exists.
	FindLatestEnrollmentByModality(academyID, studentID uint, modality string, statuses []string) (*models.Enrollment, error)
	// FindRecentEnrollmentByStudent returns the student's most recently
	// created enrollment not older than since, or nil.
	FindRecentEnrollmentByStudent(studentID uint, since time.Time) (*models.Enrollment, error)
	// UpdateEnrollmentStatus flips status only when the current status is in
	// from. Reports whether a row changed.
	UpdateEnrollmentStatus(id uint, from []string, to string) (bool, error)

	CreateInstallment(i *models.Installment) error
	SaveInstallment(i *models.Installment) error
	GetInstallment(id uint) (*models.Installment, error)
	OldestUnpaidInstallment(enrollmentID uint) (*models.Installment, error)
	HasInstallmentPaidOn(enrollmentID uint, day time.Time) (bool, error)
	HasOverdueInstallment(enrollmentID uint) (bool, error)
	HasUnpaidInstallment(enrollmentID uint) (bool, error)
	DeleteInstallmentsByEnrollment(enrollmentID uint) error

	SweepOverdueEnrollments(academyID uint, today time.Time) (int64, error)
	SweepCanceledEnrollments(academyID uint, today time.Time) (int64, error)
	SweepOverdueInstallments(academyID uint, today time.Time) (int64, error)

	CreatePackageContract(c *models.PackageContract) error
	GetPackageContract(id uint) (*models.PackageContract, error)
	UpdatePackageContractStatus(id uint, from []string, to string) (bool, error)
	CreateBeneficiary(b *models.PackageBeneficiary) error
	ListBeneficiaries(contractID uint) ([]models.PackageBeneficiary, error)
	SettleBeneficiaries(contractID uint, at time.Time) error

	CreateSubscription(s *models.Subscription) error
	SaveSubscription(s *models.Subscription) error
	GetSubscriptionByEnrollment(enrollmentID uint) (*models.Subscription, error)
	GetSubscriptionByGatewayID(gatewaySubscriptionID string) (*models.Subscription, error)
	DetachSubscriptionFromEnrollment(enrollmentID uint) error

	UpsertGatewayPayment(p *models.GatewayPayment) error
	GetGatewayPaymentByGatewayID(gatewayPaymentID string) (*models.GatewayPayment, error)
	DeleteGatewayPaymentsByEnrollment(enrollmentID uint) error

	CreateRenewalHistory(h *models.RenewalHistory) error

	CreateWebhookRecord(r *models.WebhookRecord) error
	SaveWebhookRecord(r *models.WebhookRecord) error
	GetWebhookRecordByUUID(uuid string) (*models.WebhookRecord, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a membership repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) GetStudent(studentID uint) (*models.Student, error) {
	var s models.Student
	if err := r.db.First(&s, studentID).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *gormRepository) EnsureMembership(academyID, studentID uint) error {
	var m models.AcademyMembership
	err := r.db.Where("academy_id = ? AND student_id = ?", academyID, studentID).First(&m).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.Create(&models.AcademyMembership{
		AcademyID: academyID,
		StudentID: studentID,
		Status:    models.MembershipStatusActive,
	}).Error
}

func (r *gormRepository) GetPlan(academyID, planID uint) (*models.Plan, error) {
	var p models.Plan
	err := r.db.Preload("Cycles").Where("academy_id = ?", academyID).First(&p, planID).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) GetPlanCycle(planID, cycleID uint) (*models.PlanCycle, error) {
	var c models.PlanCycle
	err := r.db.Where("plan_id = ?", planID).First(&c, cycleID).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gormRepository) GetPackage(academyID, packageID uint) (*models.FitnessPackage, error) {
	var p models.FitnessPackage
	err := r.db.Where("academy_id = ?", academyID).First(&p, packageID).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) CreateEnrollment(e *models.Enrollment) error {
	return r.db.Create(e).Error
}

func (r *gormRepository) SaveEnrollment(e *models.Enrollment) error {
	return r.db.Save(e).Error
}

func (r *gormRepository) GetEnrollment(id uint) (*models.Enrollment, error) {
	var e models.Enrollment
	if err := r.db.First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *gormRepository) DeleteEnrollment(id uint) error {
	return r.db.Delete(&models.Enrollment{}, id).Error
}

func (r *gormRepository) FindLatestEnrollmentByModality(academyID, studentID uint, modality string, statuses []string) (*models.Enrollment, error) {
	var e models.Enrollment
	err := r.db.
		Joins("JOIN plans ON plans.id = enrollments.plan_id").
		Where("enrollments.academy_id = ? AND enrollments.student_id = ? AND plans.modality = ? AND enrollments.status IN ?",
			academyID, studentID, modality, statuses).
		Order("enrollments.id DESC").
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *gormRepository) FindRecentEnrollmentByStudent(studentID uint, since time.Time) (*models.Enrollment, error) {
	var e models.Enrollment
	err := r.db.
		Where("student_id = ? AND created_at >= ?", studentID, since).
		Order("id DESC").
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *gormRepository) UpdateEnrollmentStatus(id uint, from []string, to string) (bool, error) {
	tx := r.db.Model(&models.Enrollment{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	return tx.RowsAffected > 0, tx.Error
}

func (r *gormRepository) CreateInstallment(i *models.Installment) error {
	return r.db.Create(i).Error
}

func (r *gormRepository) SaveInstallment(i *models.Installment) error {
	return r.db.Save(i).Error
}

func (r *gormRepository) GetInstallment(id uint) (*models.Installment, error) {
	var i models.Installment
	if err := r.db.First(&i, id).Error; err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *gormRepository) OldestUnpaidInstallment(enrollmentID uint) (*models.Installment, error) {
	var i models.Installment
	err := r.db.
		Where("enrollment_id = ? AND paid_at IS NULL AND status <> ?", enrollmentID, models.InstallmentStatusPaid).
		Order("due_date ASC, id ASC").
		First(&i).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *gormRepository) HasInstallmentPaidOn(enrollmentID uint, day time.Time) (bool, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	var count int64
	err := r.db.Model(&models.Installment{}).
		Where("enrollment_id = ? AND status = ? AND paid_at >= ? AND paid_at < ?",
			enrollmentID, models.InstallmentStatusPaid, start, end).
		Count(&count).Error
	return count > 0, err
}

func (r *gormRepository) HasOverdueInstallment(enrollmentID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Installment{}).
		Where("enrollment_id = ? AND status = ?", enrollmentID, models.InstallmentStatusOverdue).
		Count(&count).Error
	return count > 0, err
}

func (r *gormRepository) HasUnpaidInstallment(enrollmentID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Installment{}).
		Where("enrollment_id = ? AND paid_at IS NULL AND status <> ?", enrollmentID, models.InstallmentStatusPaid).
		Count(&count).Error
	return count > 0, err
}

func (r *gormRepository) DeleteInstallmentsByEnrollment(enrollmentID uint) error {
	return r.db.Where("enrollment_id = ?", enrollmentID).Delete(&models.Installment{}).Error
}

// Decay sweeps are set-based conditional updates so that re-running them is a
// no-op and concurrent requests cannot double-apply a transition.

func (r *gormRepository) SweepOverdueEnrollments(academyID uint, today time.Time) (int64, error) {
	day := today.Format("2006-01-02")
	tx := r.db.Exec(`
		UPDATE enrollments SET status = ?, updated_at = ?
		WHERE academy_id = ? AND status IN (?, ?)
		AND id IN (
			SELECT enrollment_id FROM installments
			WHERE paid_at IS NULL AND status <> ?
			AND due_date < ? AND due_date >= DATE_SUB(?, INTERVAL 4 DAY)
		)`,
		models.EnrollmentStatusOverdue, today,
		academyID, models.EnrollmentStatusActive, models.EnrollmentStatusOverdue,
		models.InstallmentStatusPaid, day, day)
	return tx.RowsAffected, tx.Error
}

func (r *gormRepository) SweepCanceledEnrollments(academyID uint, today time.Time) (int64, error) {
	day := today.Format("2006-01-02")
	tx := r.db.Exec(`
		UPDATE enrollments SET status = ?, canceled_at = ?, updated_at = ?
		WHERE academy_id = ? AND status IN (?, ?)
		AND id IN (
			SELECT enrollment_id FROM installments
			WHERE paid_at IS NULL AND status <> ?
			AND due_date <= DATE_SUB(?, INTERVAL 5 DAY)
		)`,
		models.EnrollmentStatusCanceled, today, today,
		academyID, models.EnrollmentStatusActive, models.EnrollmentStatusOverdue,
		models.InstallmentStatusPaid, day)
	return tx.RowsAffected, tx.Error
}

func (r *gormRepository) SweepOverdueInstallments(academyID uint, today time.Time) (int64, error) {
	tx := r.db.Model(&models.Installment{}).
		Where("academy_id = ? AND status = ? AND paid_at IS NULL AND due_date < ?",
			academyID, models.InstallmentStatusAwaiting, today.Format("2006-01-02")).
		Update("status", models.InstallmentStatusOverdue)
	return tx.RowsAffected, tx.Error
}

func (r *gormRepository) CreatePackageContract(c *models.PackageContract) error {
	return r.db.Create(c).Error
}

func (r *gormRepository) GetPackageContract(id uint) (*models.PackageContract, error) {
	var c models.PackageContract
	if err := r.db.Preload("Beneficiaries").First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gormRepository) UpdatePackageContractStatus(id uint, from []string, to string) (bool, error) {
	tx := r.db.Model(&models.PackageContract{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	return tx.RowsAffected > 0, tx.Error
}

func (r *gormRepository) CreateBeneficiary(b *models.PackageBeneficiary) error {
	return r.db.Create(b).Error
}

func (r *gormRepository) ListBeneficiaries(contractID uint) ([]models.PackageBeneficiary, error) {
	var bs []models.PackageBeneficiary
	err := r.db.Where("package_contract_id = ?", contractID).Order("id ASC").Find(&bs).Error
	return bs, err
}

func (r *gormRepository) SettleBeneficiaries(contractID uint, at time.Time) error {
	return r.db.Model(&models.PackageBeneficiary{}).
		Where("package_contract_id = ? AND status = ?", contractID, models.InstallmentStatusAwaiting).
		Updates(map[string]interface{}{"status": models.InstallmentStatusPaid, "settled_at": at}).Error
}

func (r *gormRepository) CreateSubscription(s *models.Subscription) error {
	return r.db.Create(s).Error
}

func (r *gormRepository) SaveSubscription(s *models.Subscription) error {
	return r.db.Save(s).Error
}

func (r *gormRepository) GetSubscriptionByEnrollment(enrollmentID uint) (*models.Subscription, error) {
	var s models.Subscription
	err := r.db.Where("enrollment_id = ?", enrollmentID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *gormRepository) GetSubscriptionByGatewayID(gatewaySubscriptionID string) (*models.Subscription, error) {
	var s models.Subscription
	err := r.db.Where("gateway_subscription_id = ?", gatewaySubscriptionID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *gormRepository) DetachSubscriptionFromEnrollment(enrollmentID uint) error {
	return r.db.Model(&models.Subscription{}).
		Where("enrollment_id = ?", enrollmentID).
		Update("enrollment_id", nil).Error
}

func (r *gormRepository) UpsertGatewayPayment(p *models.GatewayPayment) error {
	var existing models.GatewayPayment
	err := r.db.Where("gateway_payment_id = ?", p.GatewayPaymentID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(p).Error
	}
	if err != nil {
		return err
	}
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	return r.db.Save(p).Error
}

func (r *gormRepository) GetGatewayPaymentByGatewayID(gatewayPaymentID string) (*models.GatewayPayment, error) {
	var p models.GatewayPayment
	err := r.db.Where("gateway_payment_id = ?", gatewayPaymentID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) DeleteGatewayPaymentsByEnrollment(enrollmentID uint) error {
	return r.db.Where("enrollment_id = ?", enrollmentID).Delete(&models.GatewayPayment{}).Error
}

func (r *gormRepository) CreateRenewalHistory(h *models.RenewalHistory) error {
	return r.db.Create(h).Error
}

func (r *gormRepository) CreateWebhookRecord(rec *models.WebhookRecord) error {
	return r.db.Create(rec).Error
}

func (r *gormRepository) SaveWebhookRecord(rec *models.WebhookRecord) error {
	return r.db.Save(rec).Error
}

func (r *gormRepository) GetWebhookRecordByUUID(uuid string) (*models.WebhookRecord, error) {
	var rec models.WebhookRecord
	if err := r.db.Where("uuid = ?", uuid).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}
