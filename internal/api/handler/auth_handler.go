package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-service/internal/api/middleware"
	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
)

type AuthHandler struct {
	identity ports.IdentityService
}

func NewAuthHandler(identity ports.IdentityService) *AuthHandler {
	return &AuthHandler{identity: identity}
}

// Signup creates a USER account and returns a token pair.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Account details"
// @Success      201   {object}  tokenResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := h.identity.Signup(c.Request().Context(), ports.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toTokenResponse(pair))
}

// Login authenticates by email and password.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := h.identity.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		// Unknown email and wrong password look the same from outside.
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidCredentials
		}
		return err
	}

	return c.JSON(http.StatusOK, toTokenResponse(pair))
}

// Refresh exchanges a refresh token for a new token pair.
//
// @Summary      Refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := h.identity.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toTokenResponse(pair))
}

// Whois reports which user a token names without verifying it. The answer
// is informational only and grants nothing.
//
// @Summary      Identify a token's user (unverified)
// @Tags         auth
// @Produce      json
// @Param        Authorization  header    string  true  "Bearer <any token>"
// @Success      200            {object}  userResponse
// @Failure      401            {object}  map[string]string
// @Failure      404            {object}  map[string]string
// @Router       /auth/whois [get]
func (h *AuthHandler) Whois(c echo.Context) error {
	token, err := middleware.BearerToken(c.Request())
	if err != nil {
		return err
	}

	user, err := h.identity.LookupFromAnyToken(c.Request().Context(), token)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrNotFound
	}

	return c.JSON(http.StatusOK, toUserResponse(user))
}
