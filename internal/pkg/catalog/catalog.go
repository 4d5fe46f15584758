package catalog

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/oranet/oranet-backend/app/models"
	"github.com/oranet/oranet-backend/app/repository"
	"github.com/oranet/oranet-backend/internal/pkg/cache"
)

const (
	cacheKeyPrefix = "catalog:packages:"
	cacheTTL       = 5 * time.Minute
)

// Service serves the package catalog with a Redis read-through cache in
// front of the database. Admin writes invalidate the cache.
type Service struct {
	repo repository.PackageRepository
}

func NewService(repo repository.PackageRepository) *Service {
	return &Service{repo: repo}
}

// ListActive returns active packages, cheapest first, optionally filtered by
// type. Cache failures fall through to the database silently.
func (s *Service) ListActive(ctx context.Context, packageType string) ([]models.Package, error) {
	_ = ctx
	key := cacheKeyPrefix + typeKey(packageType)

	if raw, err := cache.Get(key); err == nil {
		var packages []models.Package
		if err := json.Unmarshal([]byte(raw), &packages); err == nil {
			return packages, nil
		}
	} else if !cache.IsNotFound(err) {
		log.Printf("Warning: catalog cache read failed: %v", err)
	}

	packages, err := s.repo.ListActive(packageType)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(packages); err == nil {
		if err := cache.Set(key, raw, cacheTTL); err != nil {
			log.Printf("Warning: catalog cache write failed: %v", err)
		}
	}
	return packages, nil
}

// GetActiveByID loads a single purchasable package.
func (s *Service) GetActiveByID(ctx context.Context, id string) (*models.Package, error) {
	_ = ctx
	return s.repo.GetActiveByID(id)
}

// Create adds a package and invalidates the catalog cache.
func (s *Service) Create(ctx context.Context, pkg *models.Package) error {
	_ = ctx
	if err := s.repo.Create(pkg); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// Update saves catalog edits and invalidates the cache.
func (s *Service) Update(ctx context.Context, pkg *models.Package) error {
	_ = ctx
	if err := s.repo.Update(pkg); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// Deactivate hides a package from the storefront.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	_ = ctx
	if err := s.repo.Deactivate(id); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

func (s *Service) invalidate() {
	for _, t := range []string{"", models.PackageTypeTime, models.PackageTypeData, models.PackageTypeSpecial} {
		if err := cache.Delete(cacheKeyPrefix + typeKey(t)); err != nil {
			log.Printf("Warning: catalog cache invalidation failed: %v", err)
		}
	}
}

func typeKey(packageType string) string {
	if packageType == "" {
		return "all"
	}
	return packageType
}
