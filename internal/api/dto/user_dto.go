package dto

import (
	"time"

	"github.com/KinuGra/tosho-2509-back/internal/domain"
)

// RegisterRequest payload for new learners.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresAt   time.Time     `json:"expires_at"`
	User        *UserResponse `json:"user,omitempty"`
}

// UserResponse is the public view of an account. It never carries the password hash.
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Level int    `json:"level"`
	Exp   int    `json:"exp"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Level: u.Level, Exp: u.Exp}
}

// CodeRequest asks for a verification code.
type CodeRequest struct {
	Email string `json:"email"`
}

// CodeVerifyRequest submits a verification code.
type CodeVerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// MessageResponse carries a human readable status.
type MessageResponse struct {
	Message string `json:"message"`
}
