// Package policy decides which user-management actions an actor may take.
//
// Every function is pure: no I/O, no shared state, safe for concurrent use.
// A nil error means the action is allowed; otherwise the error is one of the
// domain deny sentinels and can be matched with errors.Is.
package policy

import (
	"github.com/99minutos/accounts-service/internal/core/domain"
)

// Verifier checks a plaintext against a stored digest.
type Verifier interface {
	Verify(plaintext, digest string) bool
}

// Hasher produces a digest and verifies against one.
type Hasher interface {
	Verifier
	Hash(plaintext string) (string, error)
}

// protected reports whether only a SUPER_ADMIN may act on target. Only
// ADMIN accounts are protected; SUPER_ADMIN targets are not restricted.
func protected(target *domain.User) bool {
	return target.Role == domain.RoleAdmin
}

// CanUpdate decides whether actor may apply changes to target.
func CanUpdate(actor, target *domain.User, changes domain.UserChanges) error {
	if target == nil {
		return domain.ErrTargetNotFound
	}
	if protected(target) && actor.Role != domain.RoleSuperAdmin {
		return domain.ErrInsufficientPrivilege
	}
	if changes.HasRoleChange() && target.ID == actor.ID {
		return domain.ErrSelfRoleChange
	}
	if !actor.Role.AtLeast(domain.RoleAdmin) && target.ID != actor.ID {
		return domain.ErrInsufficientPrivilege
	}
	if changes.HasRoleChange() {
		if !changes.Role.Valid() {
			return domain.ErrInvalidRole
		}
	}
	return nil
}

// DenySelfDelete is the first CanDelete rule. Callers run it before looking
// the target up.
func DenySelfDelete(actor *domain.User, targetID string) error {
	if targetID == actor.ID {
		return domain.ErrSelfDelete
	}
	return nil
}

// CanDelete decides whether actor may delete the account targetID. target is
// the looked-up record, nil when it does not exist.
func CanDelete(actor *domain.User, targetID string, target *domain.User) error {
	if err := DenySelfDelete(actor, targetID); err != nil {
		return err
	}
	if target == nil {
		return domain.ErrTargetNotFound
	}
	if protected(target) && actor.Role != domain.RoleSuperAdmin {
		return domain.ErrInsufficientPrivilege
	}
	return nil
}

// CanChangeOwnPassword checks oldPassword against currentHash and that
// newPassword differs from it, then returns the new digest.
func CanChangeOwnPassword(h Hasher, oldPassword, newPassword, currentHash string) (string, error) {
	if !h.Verify(oldPassword, currentHash) {
		return "", domain.ErrInvalidPassword
	}
	if h.Verify(newPassword, currentHash) {
		return "", domain.ErrPasswordUnchanged
	}
	return h.Hash(newPassword)
}

// ListVisibleUsers returns the listing scope of actor. Roles below ADMIN get
// an empty scope rather than an error.
func ListVisibleUsers(actor *domain.User) domain.UserScope {
	switch actor.Role {
	case domain.RoleSuperAdmin:
		return domain.UserScope{}
	case domain.RoleAdmin:
		return domain.UserScope{ExcludeRoles: []domain.Role{domain.RoleSuperAdmin}}
	default:
		return domain.UserScope{None: true}
	}
}
