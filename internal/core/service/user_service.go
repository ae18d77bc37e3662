package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/policy"
	"github.com/99minutos/accounts-service/internal/core/ports"
	"github.com/99minutos/accounts-service/internal/pkg/metrics"
)

// UserService gates every account mutation through the policy package and
// touches the repository only once the action is allowed.
type UserService struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
	audit  ports.AuditRecorder
	logger zerolog.Logger
}

func NewUserService(users ports.UserRepository, hasher ports.PasswordHasher, audit ports.AuditRecorder, logger zerolog.Logger) *UserService {
	if audit == nil {
		audit = nopAuditRecorder{}
	}
	return &UserService{users: users, hasher: hasher, audit: audit, logger: logger}
}

// GetUser returns the account with id.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

// UpdateUser applies changes to targetID, or to the actor when targetID is empty.
func (s *UserService) UpdateUser(ctx context.Context, actor *domain.User, targetID string, changes domain.UserChanges) (*domain.User, error) {
	if targetID == "" {
		targetID = actor.ID
	}
	action := domain.AuditUpdate
	if changes.HasRoleChange() {
		action = domain.AuditRoleChange
	}

	target, err := s.loadTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if err := policy.CanUpdate(actor, target, changes); err != nil {
		s.decide(ctx, action, actor.ID, targetID, err)
		return nil, err
	}
	s.decide(ctx, action, actor.ID, targetID, nil)

	update := ports.UserUpdate{Role: changes.Role}
	if changes.Name != nil {
		name := strings.TrimSpace(*changes.Name)
		update.Name = &name
	}
	if update.Name == nil && update.Role == nil {
		return target, nil
	}

	updated, err := s.users.Update(ctx, targetID, update)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrTargetNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info().
		Str("actor_id", actor.ID).
		Str("user_id", targetID).
		Str("action", string(action)).
		Msg("user updated")
	return updated, nil
}

// DeleteUser removes targetID. Self-deletion is refused before any lookup.
func (s *UserService) DeleteUser(ctx context.Context, actor *domain.User, targetID string) error {
	if err := policy.DenySelfDelete(actor, targetID); err != nil {
		s.decide(ctx, domain.AuditDelete, actor.ID, targetID, err)
		return err
	}

	target, err := s.loadTarget(ctx, targetID)
	if err != nil {
		return err
	}

	if err := policy.CanDelete(actor, targetID, target); err != nil {
		s.decide(ctx, domain.AuditDelete, actor.ID, targetID, err)
		return err
	}
	s.decide(ctx, domain.AuditDelete, actor.ID, targetID, nil)

	if err := s.users.Delete(ctx, targetID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrTargetNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	s.logger.Info().Str("actor_id", actor.ID).Str("user_id", targetID).Msg("user deleted")
	return nil
}

// ChangePassword replaces the actor's password after checking the old one.
func (s *UserService) ChangePassword(ctx context.Context, actor *domain.User, oldPassword, newPassword string) (*domain.User, error) {
	digest, err := policy.CanChangeOwnPassword(s.hasher, oldPassword, newPassword, actor.PasswordHash)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPassword) || errors.Is(err, domain.ErrPasswordUnchanged) || errors.Is(err, domain.ErrPasswordTooLong) {
			s.decide(ctx, domain.AuditPasswordChange, actor.ID, actor.ID, err)
			return nil, err
		}
		return nil, domain.NewInternalError("change password", err)
	}
	s.decide(ctx, domain.AuditPasswordChange, actor.ID, actor.ID, nil)

	updated, err := s.users.Update(ctx, actor.ID, ports.UserUpdate{PasswordHash: &digest})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrTargetNotFound
		}
		return nil, fmt.Errorf("change password: %w", err)
	}

	s.logger.Info().Str("user_id", actor.ID).Msg("password changed")
	return updated, nil
}

// ListUsers returns the accounts visible to actor. Actors without a listing
// scope get an empty slice and no error.
func (s *UserService) ListUsers(ctx context.Context, actor *domain.User) ([]*domain.User, error) {
	scope := policy.ListVisibleUsers(actor)
	if scope.None {
		return []*domain.User{}, nil
	}

	users, err := s.users.ListAll(ctx, ports.ListUsersFilter{ExcludeRoles: scope.ExcludeRoles})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// loadTarget returns nil, nil when targetID does not exist.
func (s *UserService) loadTarget(ctx context.Context, targetID string) (*domain.User, error) {
	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load target user: %w", err)
	}
	return target, nil
}

// decide records a policy outcome in metrics and the audit trail.
func (s *UserService) decide(ctx context.Context, action domain.AuditAction, actorID, targetID string, denial error) {
	event := domain.AuditEvent{
		ActorID:    actorID,
		TargetID:   targetID,
		Action:     action,
		Outcome:    domain.OutcomeAllowed,
		OccurredAt: time.Now().UTC(),
	}
	if denial != nil {
		event.Outcome = domain.OutcomeDenied
		event.Reason = denial.Error()
		s.logger.Info().
			Str("actor_id", actorID).
			Str("user_id", targetID).
			Str("action", string(action)).
			Str("reason", event.Reason).
			Msg("action denied")
	}

	metrics.PolicyDecisionsTotal.WithLabelValues(string(action), string(event.Outcome)).Inc()
	s.audit.Record(ctx, event)
}
