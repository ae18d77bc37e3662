package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
	"github.com/99minutos/accounts-service/internal/pkg/metrics"
)

// IdentityService implements signup, login, refresh and token resolution.
// It keeps no state between calls.
type IdentityService struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
	tokens ports.TokenIssuer
	audit  ports.AuditRecorder
	logger zerolog.Logger
}

func NewIdentityService(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	audit ports.AuditRecorder,
	logger zerolog.Logger,
) *IdentityService {
	if audit == nil {
		audit = nopAuditRecorder{}
	}
	return &IdentityService{users: users, hasher: hasher, tokens: tokens, audit: audit, logger: logger}
}

// Signup registers a USER account and returns its first token pair.
func (s *IdentityService) Signup(ctx context.Context, in ports.SignupInput) (*domain.TokenPair, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, domain.ErrPasswordTooLong) {
			metrics.SignupsTotal.WithLabelValues("rejected").Inc()
			return nil, err
		}
		metrics.SignupsTotal.WithLabelValues("error").Inc()
		return nil, domain.NewInternalError("signup", fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	user := &domain.User{
		Email:        domain.NormalizeEmail(in.Email),
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			metrics.SignupsTotal.WithLabelValues("duplicate_email").Inc()
			return nil, domain.ErrDuplicateEmail
		}
		metrics.SignupsTotal.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Msg("signup: create user failed")
		return nil, domain.NewInternalError("signup", err)
	}

	pair, err := s.issue(created.ID, "signup")
	if err != nil {
		return nil, domain.NewInternalError("signup", err)
	}

	metrics.SignupsTotal.WithLabelValues("success").Inc()
	s.audit.Record(ctx, domain.AuditEvent{
		ActorID:    created.ID,
		TargetID:   created.ID,
		Action:     domain.AuditSignup,
		Outcome:    domain.OutcomeAllowed,
		OccurredAt: now,
	})
	s.logger.Info().Str("user_id", created.ID).Msg("user signed up")

	return pair, nil
}

// Login checks credentials and returns a token pair. A missing account yields
// domain.ErrNotFound before the hasher runs; unexpected repository failures
// are returned unchanged.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginAttemptsTotal.WithLabelValues("not_found").Inc()
			return nil, domain.ErrNotFound
		}
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		s.logger.Info().Str("user_id", user.ID).Msg("login rejected: password mismatch")
		return nil, domain.ErrInvalidCredentials
	}

	pair, err := s.issue(user.ID, "login")
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return pair, nil
}

// Refresh exchanges a valid refresh token for a new pair. The account must
// still exist; a token for a deleted user is treated as invalid.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	payload, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		metrics.TokenVerificationsTotal.WithLabelValues(string(domain.TokenKindRefresh), "invalid").Inc()
		s.logger.Debug().Err(err).Msg("refresh token rejected")
		return nil, domain.ErrInvalidToken
	}
	metrics.TokenVerificationsTotal.WithLabelValues(string(domain.TokenKindRefresh), "valid").Inc()

	if _, err := s.users.FindByID(ctx, payload.UserID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Info().Str("user_id", payload.UserID).Msg("refresh rejected: user no longer exists")
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}

	pair, err := s.issue(payload.UserID, "refresh")
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return pair, nil
}

// ResolveFromAccessToken verifies accessToken and loads its user. A valid
// token whose user was deleted resolves to (nil, nil).
func (s *IdentityService) ResolveFromAccessToken(ctx context.Context, accessToken string) (*domain.User, error) {
	payload, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		metrics.TokenVerificationsTotal.WithLabelValues(string(domain.TokenKindAccess), "invalid").Inc()
		return nil, domain.ErrInvalidToken
	}
	metrics.TokenVerificationsTotal.WithLabelValues(string(domain.TokenKindAccess), "valid").Inc()

	return s.findUser(ctx, payload.UserID)
}

// LookupFromAnyToken decodes token without verification and loads the user
// it names. Undecodable tokens and unknown users give (nil, nil).
func (s *IdentityService) LookupFromAnyToken(ctx context.Context, token string) (*domain.User, error) {
	payload, ok := s.tokens.Decode(token)
	if !ok {
		return nil, nil
	}
	return s.findUser(ctx, payload.UserID)
}

func (s *IdentityService) findUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (s *IdentityService) issue(userID, reason string) (*domain.TokenPair, error) {
	pair, err := s.tokens.IssuePair(domain.TokenPayload{UserID: userID})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("token issuance failed")
		return nil, err
	}
	metrics.TokenPairsIssuedTotal.WithLabelValues(reason).Inc()
	return pair, nil
}
