package ports

import "github.com/99minutos/accounts-service/internal/core/domain"

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches digest. It never errors;
	// malformed digests simply do not match.
	Verify(plaintext, digest string) bool
}

// TokenIssuer signs and checks access and refresh tokens.
type TokenIssuer interface {
	IssuePair(payload domain.TokenPayload) (*domain.TokenPair, error)
	VerifyAccessToken(token string) (*domain.TokenPayload, error)
	VerifyRefreshToken(token string) (*domain.TokenPayload, error)
	// Decode extracts claims without checking signature or expiry.
	// It is not a security boundary.
	Decode(token string) (*domain.TokenPayload, bool)
}
