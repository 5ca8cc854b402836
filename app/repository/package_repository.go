package repository

import (
	"github.com/acsk/AppCheckin-sub000/app/models"
	"gorm.io/gorm"
)

// packageRepository implements the PackageRepository interface
type packageRepository struct {
	db *gorm.DB
}

// NewPackageRepository creates a new package repository instance
func NewPackageRepository(db *gorm.DB) PackageRepository {
	return &packageRepository{db: db}
}

func (r *packageRepository) GetByID(academyID, id uint) (*models.FitnessPackage, error) {
	var pkg models.FitnessPackage
	err := r.db.Where("academy_id = ?", academyID).First(&pkg, id).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *packageRepository) ListActive(academyID uint) ([]models.FitnessPackage, error) {
	var pkgs []models.FitnessPackage
	err := r.db.Where("academy_id = ? AND active = ?", academyID, true).
		Order("name ASC").
		Find(&pkgs).Error
	return pkgs, err
}

// GetContract loads a contract with its beneficiaries preloaded
func (r *packageRepository) GetContract(academyID, id uint) (*models.PackageContract, error) {
	var contract models.PackageContract
	err := r.db.Preload("Beneficiaries").
		Where("academy_id = ?", academyID).
		First(&contract, id).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *packageRepository) ListContracts(academyID uint, offset, limit int) ([]models.PackageContract, error) {
	var contracts []models.PackageContract
	err := r.db.Where("academy_id = ?", academyID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&contracts).Error
	return contracts, err
}
