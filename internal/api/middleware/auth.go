package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

// UserContextKey is the echo context key holding the authenticated *domain.User.
const UserContextKey = "user"

// AccessTokenResolver is the part of ports.IdentityService the Auth middleware needs.
type AccessTokenResolver interface {
	ResolveFromAccessToken(ctx context.Context, accessToken string) (*domain.User, error)
}

// Auth verifies the bearer access token and injects the resolved user into context.
func Auth(resolver AccessTokenResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := BearerToken(c.Request())
			if err != nil {
				return err
			}

			user, err := resolver.ResolveFromAccessToken(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, domain.ErrInvalidToken) {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
				}
				return err
			}
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "user no longer exists")
			}

			c.Set(UserContextKey, user)
			return next(c)
		}
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// CurrentUser returns the user set by Auth, or nil when the route is unauthenticated.
func CurrentUser(c echo.Context) *domain.User {
	user, _ := c.Get(UserContextKey).(*domain.User)
	return user
}
