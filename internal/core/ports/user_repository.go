package ports

import (
	"context"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

// UserUpdate lists the stored fields to modify. Nil fields are left as-is.
type UserUpdate struct {
	Name         *string
	Role         *domain.Role
	PasswordHash *string
}

// ListUsersFilter narrows ListAll. An empty filter returns every user.
type ListUsersFilter struct {
	ExcludeRoles []domain.Role
}

// UserRepository defines user persistence. Lookups return
// domain.ErrUserNotFound on a miss and Create returns
// domain.ErrDuplicateEmail on a uniqueness conflict.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, id string, update UserUpdate) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context, filter ListUsersFilter) ([]*domain.User, error)
}
