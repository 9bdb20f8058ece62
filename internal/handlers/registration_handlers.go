package handlers

import (
	"net/http"

	"glowdesk/internal/common"
	"glowdesk/internal/services"

	"github.com/labstack/echo/v4"
)

// RegistrationHandlers handles the public registration intake
type RegistrationHandlers struct {
	registrationService services.RegistrationService
}

func NewRegistrationHandlers(registrationService services.RegistrationService) *RegistrationHandlers {
	return &RegistrationHandlers{
		registrationService: registrationService,
	}
}

// Submit handles POST /registrations. No authentication: this is the public
// form prospective owners fill in.
func (h *RegistrationHandlers) Submit(c echo.Context) error {
	ctx := c.Request().Context()

	var req services.SubmitRegistrationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	request, err := h.registrationService.Submit(ctx, &req)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Registration request submitted",
		"request": request,
	})
}
