package controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/oranet/oranet-backend/app/models"
	"github.com/oranet/oranet-backend/app/repository"
	"github.com/oranet/oranet-backend/internal/pkg/catalog"
)

func catalogService() *catalog.Service {
	return catalog.NewService(repository.GetGlobalFactory().GetPackageRepository())
}

// HandleGetPackages lists purchasable packages, optionally filtered by type.
func HandleGetPackages(c *fiber.Ctx) error {
	packageType := c.Query("type")
	switch packageType {
	case "", models.PackageTypeTime, models.PackageTypeData, models.PackageTypeSpecial:
	default:
		return jsonError(c, fiber.StatusBadRequest, "Unknown package type")
	}

	packages, err := catalogService().ListActive(c.Context(), packageType)
	if err != nil {
		log.Printf("Error fetching packages: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "An error occurred while fetching packages")
	}
	return jsonSuccess(c, packages)
}

// HandleGetPackage returns one active package by id.
func HandleGetPackage(c *fiber.Ctx) error {
	pkg, err := catalogService().GetActiveByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "Package not found")
		}
		log.Printf("Error fetching package: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "An error occurred while fetching the package")
	}
	return jsonSuccess(c, pkg)
}

// HandleAdminCreatePackage adds a catalog entry.
func HandleAdminCreatePackage(c *fiber.Ctx) error {
	var pkg models.Package
	if err := c.BodyParser(&pkg); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if pkg.Name == "" || pkg.Price <= 0 {
		return jsonError(c, fiber.StatusBadRequest, "Name and a positive price are required")
	}
	switch pkg.Type {
	case models.PackageTypeTime, models.PackageTypeData, models.PackageTypeSpecial:
	default:
		return jsonError(c, fiber.StatusBadRequest, "Unknown package type")
	}

	pkg.IsActive = true
	if err := catalogService().Create(c.Context(), &pkg); err != nil {
		log.Printf("Error creating package: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "An error occurred while creating the package")
	}
	return jsonSuccess(c, pkg)
}

// HandleAdminUpdatePackage saves catalog edits. Issued vouchers keep the
// values they copied at purchase time.
func HandleAdminUpdatePackage(c *fiber.Ctx) error {
	svc := catalogService()
	existing, err := repository.GetGlobalFactory().GetPackageRepository().GetByID(c.Params("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "Package not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "An error occurred while updating the package")
	}

	var updates models.Package
	if err := c.BodyParser(&updates); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	updates.ID = existing.ID
	updates.CreatedAt = existing.CreatedAt

	if err := svc.Update(c.Context(), &updates); err != nil {
		log.Printf("Error updating package %s: %v", existing.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "An error occurred while updating the package")
	}
	return jsonSuccess(c, updates)
}

// HandleAdminDeactivatePackage hides a package from the storefront.
func HandleAdminDeactivatePackage(c *fiber.Ctx) error {
	if err := catalogService().Deactivate(c.Context(), c.Params("id")); err != nil {
		log.Printf("Error deactivating package %s: %v", c.Params("id"), err)
		return jsonError(c, fiber.StatusInternalServerError, "An error occurred while deactivating the package")
	}
	return jsonMessage(c, "Package deactivated")
}
