package handlers

import (
	"net/http"

	"glowdesk/internal/common"
	"glowdesk/internal/services"

	"github.com/labstack/echo/v4"
)

// BusinessHandlers handles the owner-facing business endpoints
type BusinessHandlers struct {
	membershipService services.MembershipService
}

// NewBusinessHandlers creates a new business handlers instance
func NewBusinessHandlers(membershipService services.MembershipService) *BusinessHandlers {
	return &BusinessHandlers{
		membershipService: membershipService,
	}
}

// Dashboard handles GET /businesses/me/dashboard. Loading the dashboard runs
// the lazy expiry sweep, so an owner whose trial lapsed sees the downgraded
// tier on this response already.
func (h *BusinessHandlers) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()

	businessID, ok := common.GetBusinessIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Business not found in token")
	}

	business, err := h.membershipService.DashboardBusiness(ctx, businessID)
	if err != nil {
		return common.SendServerError(c, "Failed to load dashboard")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"business": business,
	})
}
