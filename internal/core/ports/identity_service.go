package ports

import (
	"context"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

// SignupInput is the DTO passed from the transport layer on registration.
type SignupInput struct {
	Email    string
	Password string
	Name     string
}

// IdentityService covers signup, login, refresh and token-to-user resolution.
type IdentityService interface {
	Signup(ctx context.Context, input SignupInput) (*domain.TokenPair, error)
	Login(ctx context.Context, email, password string) (*domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	// ResolveFromAccessToken verifies the token. It returns (nil, nil)
	// when the token is valid but the user no longer exists.
	ResolveFromAccessToken(ctx context.Context, accessToken string) (*domain.User, error)
	// LookupFromAnyToken decodes without verification. Never use it to
	// make an authorization decision.
	LookupFromAnyToken(ctx context.Context, token string) (*domain.User, error)
}
