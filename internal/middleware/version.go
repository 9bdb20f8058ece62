package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// VersionMiddleware tracks the supported API versions and tags responses so
// clients can see which surface served them.
type VersionMiddleware struct {
	supportedVersions map[string]string // version -> status ("active", "deprecated")
	defaultVersion    string
}

func NewVersionMiddleware() *VersionMiddleware {
	return &VersionMiddleware{
		supportedVersions: map[string]string{
			"v1": "active",
		},
		defaultVersion: "v1",
	}
}

// VersionRoute creates a route group for a version and stamps its responses.
func (vm *VersionMiddleware) VersionRoute(e *echo.Echo, version string) *echo.Group {
	group := e.Group("/" + version)
	group.Use(vm.versionHeader(version))
	return group
}

func (vm *VersionMiddleware) versionHeader(version string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-API-Version", version)
			if vm.supportedVersions[version] == "deprecated" {
				c.Response().Header().Set("X-API-Deprecated", "true")
			}
			return next(c)
		}
	}
}

// APIVersionResolver rejects requests against versions that were never
// published, before routing 404s them with a less useful message.
func (vm *VersionMiddleware) APIVersionResolver() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if strings.HasPrefix(path, "/v") && !strings.HasPrefix(path, "/"+vm.defaultVersion) {
				segment := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)[0]
				if _, supported := vm.supportedVersions[segment]; !supported && len(segment) <= 3 {
					return c.JSON(http.StatusNotFound, map[string]string{
						"error": "Unsupported API version",
					})
				}
			}
			return next(c)
		}
	}
}
