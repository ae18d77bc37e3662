package ports

import (
	"context"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

// UserService is the authorized user-mutation path.
type UserService interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	// UpdateUser applies changes to targetID; an empty targetID means the actor.
	UpdateUser(ctx context.Context, actor *domain.User, targetID string, changes domain.UserChanges) (*domain.User, error)
	DeleteUser(ctx context.Context, actor *domain.User, targetID string) error
	ChangePassword(ctx context.Context, actor *domain.User, oldPassword, newPassword string) (*domain.User, error)
	ListUsers(ctx context.Context, actor *domain.User) ([]*domain.User, error)
}
