package repository

import (
	"github.com/oranet/oranet-backend/app/models"
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

// Create inserts a new catalog package
func (r *packageRepository) Create(pkg *models.Package) error {
	return r.db.Create(pkg).Error
}

// GetByID retrieves a package regardless of its active flag
func (r *packageRepository) GetByID(id string) (*models.Package, error) {
	var pkg models.Package
	err := r.db.Where("id = ?", id).First(&pkg).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

// GetActiveByID retrieves an active package, the only kind customers may buy
func (r *packageRepository) GetActiveByID(id string) (*models.Package, error) {
	var pkg models.Package
	err := r.db.Where("id = ? AND is_active = ?", id, true).First(&pkg).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

// ListActive returns active packages ordered by price ascending, optionally
// filtered by type
func (r *packageRepository) ListActive(packageType string) ([]models.Package, error) {
	var packages []models.Package
	query := r.db.Where("is_active = ?", true)
	if packageType != "" {
		query = query.Where("type = ?", packageType)
	}
	err := query.Order("price ASC").Find(&packages).Error
	return packages, err
}

// Update saves catalog edits
func (r *packageRepository) Update(pkg *models.Package) error {
	return r.db.Save(pkg).Error
}

// Deactivate hides a package from the storefront without touching issued vouchers
func (r *packageRepository) Deactivate(id string) error {
	return r.db.Model(&models.Package{}).Where("id = ?", id).Update("is_active", false).Error
}
