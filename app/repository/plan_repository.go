package repository

import (
	"github.com/acsk/AppCheckin-sub000/app/models"
	"gorm.io/gorm"
)

// planRepository implements the PlanRepository interface
type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository instance
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) Create(plan *models.Plan) error {
	return r.db.Create(plan).Error
}

func (r *planRepository) GetByID(academyID, id uint) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.Where("academy_id = ?", academyID).First(&plan, id).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) ListActive(academyID uint) ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.Where("academy_id = ? AND active = ?", academyID, true).
		Order("modality ASC, name ASC").
		Find(&plans).Error
	return plans, err
}

func (r *planRepository) ListCycles(planID uint) ([]models.PlanCycle, error) {
	var cycles []models.PlanCycle
	err := r.db.Where("plan_id = ?", planID).Order("duration_months ASC").Find(&cycles).Error
	return cycles, err
}

func (r *planRepository) Update(plan *models.Plan) error {
	return r.db.Save(plan).Error
}

// Delete soft deletes a plan; existing enrollments keep billing by plan id
func (r *planRepository) Delete(id uint) error {
	return r.db.Delete(&models.Plan{}, id).Error
}
