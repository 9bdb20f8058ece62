package handlers

import (
	"net/http"

	"glowdesk/internal/common"
	"glowdesk/internal/repositories"

	"github.com/labstack/echo/v4"
)

// PackageHandlers serves the membership package catalog
type PackageHandlers struct {
	packageRepo repositories.PackageRepository
}

func NewPackageHandlers(packageRepo repositories.PackageRepository) *PackageHandlers {
	return &PackageHandlers{
		packageRepo: packageRepo,
	}
}

// ListPackages handles GET /packages
func (h *PackageHandlers) ListPackages(c echo.Context) error {
	packages, err := h.packageRepo.ListActive(c.Request().Context())
	if err != nil {
		return common.SendServerError(c, "Failed to list packages")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"packages": packages,
	})
}

// GetPackage handles GET /packages/:id
func (h *PackageHandlers) GetPackage(c echo.Context) error {
	packageID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", "must be a valid UUID")
	}

	pkg, err := h.packageRepo.GetByID(c.Request().Context(), packageID)
	if err != nil {
		return common.SendNotFoundError(c, "package")
	}

	return c.JSON(http.StatusOK, pkg)
}
