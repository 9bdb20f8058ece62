package middleware

import (
	"net/http"

	"glowdesk/internal/common"

	"github.com/labstack/echo/v4"
)

// RequireRole restricts a route group to callers carrying one of the given
// roles. Role assignment happens at user creation; there is no per-permission
// matrix.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := common.GetRoleFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
			}
			for _, allowed := range roles {
				if role == allowed {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
		}
	}
}
