package handler

import (
	"time"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

// --- Request types ---

type signupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type updateUserRequest struct {
	Name *string `json:"name,omitempty" validate:"omitnil,min=1"`
	Role *string `json:"role,omitempty"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// --- Response types ---

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// userResponse is the public view of a user. It has no password field.
type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type usersResponse struct {
	Users []userResponse `json:"users"`
	Count int            `json:"count"`
}

func toTokenResponse(p *domain.TokenPair) tokenResponse {
	return tokenResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toUsersResponse(users []*domain.User) usersResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return usersResponse{Users: out, Count: len(out)}
}

// toChanges converts the request; an unknown role yields domain.ErrInvalidRole.
func (r updateUserRequest) toChanges() (domain.UserChanges, error) {
	changes := domain.UserChanges{Name: r.Name}
	if r.Role != nil {
		role, err := domain.ParseRole(*r.Role)
		if err != nil {
			return domain.UserChanges{}, err
		}
		changes.Role = &role
	}
	return changes, nil
}
