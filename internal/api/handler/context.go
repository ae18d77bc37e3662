package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-service/internal/api/middleware"
	"github.com/99minutos/accounts-service/internal/core/domain"
)

// ctxActor returns the user injected by the Auth middleware. A missing user
// means the route was mounted without Auth; reject with 401.
func ctxActor(c echo.Context) (*domain.User, error) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	return actor, nil
}

// bindAndValidate binds the body into req and runs the registered validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
