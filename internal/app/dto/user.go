package dto

import (
	"time"

	domainuser "motorent/internal/domain/user"
)

type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  UserProfile `json:"user"`
}

func NewUserProfile(u *domainuser.User) UserProfile {
	return UserProfile{
		ID:        string(u.ID),
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func NewAuthResponse(u *domainuser.User, token string) AuthResponse {
	return AuthResponse{Token: token, User: NewUserProfile(u)}
}
