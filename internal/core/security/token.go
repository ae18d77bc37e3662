package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

var (
	ErrMissingSecret = errors.New("token secret is not configured")
	ErrSharedSecret  = errors.New("access and refresh tokens must use distinct secrets")
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenConfig carries the signing secrets and lifetimes for both token kinds.
type TokenConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// Claims is the JWT body shared by access and refresh tokens.
type Claims struct {
	UserID string           `json:"userId"`
	Kind   domain.TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// TokenIssuer signs access tokens with the primary secret and refresh tokens
// with a separate one, so each kind verifies only under its own secret.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenIssuer validates cfg and returns an issuer. Missing or shared
// secrets are configuration errors and must stop startup.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, ErrSharedSecret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	return &TokenIssuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}, nil
}

// IssueAccessToken signs a short-lived access token for payload.
func (t *TokenIssuer) IssueAccessToken(payload domain.TokenPayload) (string, error) {
	return t.sign(payload, domain.TokenKindAccess, t.accessSecret, t.accessTTL)
}

// IssueRefreshToken signs a long-lived refresh token for payload.
func (t *TokenIssuer) IssueRefreshToken(payload domain.TokenPayload) (string, error) {
	return t.sign(payload, domain.TokenKindRefresh, t.refreshSecret, t.refreshTTL)
}

// IssuePair signs both tokens for payload.
func (t *TokenIssuer) IssuePair(payload domain.TokenPayload) (*domain.TokenPair, error) {
	access, err := t.IssueAccessToken(payload)
	if err != nil {
		return nil, err
	}
	refresh, err := t.IssueRefreshToken(payload)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccessToken checks signature, expiry and kind of an access token.
func (t *TokenIssuer) VerifyAccessToken(token string) (*domain.TokenPayload, error) {
	return t.verify(token, domain.TokenKindAccess, t.accessSecret)
}

// VerifyRefreshToken checks signature, expiry and kind of a refresh token.
func (t *TokenIssuer) VerifyRefreshToken(token string) (*domain.TokenPayload, error) {
	return t.verify(token, domain.TokenKindRefresh, t.refreshSecret)
}

// Decode reads the payload without verifying signature or expiry.
// Use it only for best-effort display lookups.
func (t *TokenIssuer) Decode(token string) (*domain.TokenPayload, bool) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	if claims.UserID == "" {
		return nil, false
	}
	return &domain.TokenPayload{UserID: claims.UserID}, true
}

func (t *TokenIssuer) sign(payload domain.TokenPayload, kind domain.TokenKind, secret []byte, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		UserID: payload.UserID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", kind, err)
	}
	return signed, nil
}

func (t *TokenIssuer) verify(token string, kind domain.TokenKind, secret []byte) (*domain.TokenPayload, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token, got %q", domain.ErrInvalidToken, kind, claims.Kind)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing userId", domain.ErrInvalidToken)
	}
	return &domain.TokenPayload{UserID: claims.UserID}, nil
}
