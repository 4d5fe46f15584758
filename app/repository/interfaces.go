package repository

import (
	"github.com/oranet/oranet-backend/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByEmailOrPhone(email, phone string) (*models.User, error)
	Update(user *models.User) error
	Count() (int64, error)
}

// PackageRepository defines the interface for catalog database operations
type PackageRepository interface {
	Create(pkg *models.Package) error
	GetByID(id string) (*models.Package, error)
	GetActiveByID(id string) (*models.Package, error)
	ListActive(packageType string) ([]models.Package, error)
	Update(pkg *models.Package) error
	Deactivate(id string) error
}

// Repositories holds all repository instances
type Repositories struct {
	User    UserRepository
	Package PackageRepository
}
