package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

// RequireRole lets the request through only when the authenticated user's
// role ranks at least min. It must run after Auth.
func RequireRole(min domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
			}
			if !user.Role.AtLeast(min) {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}
