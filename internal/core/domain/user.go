package domain

import (
	"strings"
	"time"
)

// Role names a tier in the account hierarchy.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// roleRank is the privilege order USER < ADMIN < SUPER_ADMIN.
// Every authorization comparison goes through this table.
var roleRank = map[Role]int{
	RoleUser:       1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// Roles lists the known roles in ascending privilege order.
func Roles() []Role {
	return []Role{RoleUser, RoleAdmin, RoleSuperAdmin}
}

// Rank returns the privilege rank of r, or 0 for an unknown role.
func (r Role) Rank() int {
	return roleRank[r]
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// AtLeast reports whether r ranks at or above other. Unknown roles never do.
func (r Role) AtLeast(other Role) bool {
	return r.Valid() && r.Rank() >= other.Rank()
}

// ParseRole maps a case-insensitive role name to a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// User models an account. PasswordHash never leaves the core.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserChanges carries the profile fields a caller asked to modify.
// A nil field means "leave unchanged".
type UserChanges struct {
	Name *string
	Role *Role
}

// HasRoleChange reports whether the changes request a role assignment.
func (c UserChanges) HasRoleChange() bool {
	return c.Role != nil
}

// UserScope describes which accounts an actor may list.
type UserScope struct {
	// None means the actor has no listing scope at all.
	None bool
	// ExcludeRoles are hidden from the listing.
	ExcludeRoles []Role
}

// NormalizeEmail canonicalises an email used as a login handle.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
