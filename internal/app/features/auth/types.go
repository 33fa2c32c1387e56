// internal/app/features/auth/types.go
package auth

import (
	"time"

	"taskhub/internal/domain/models"
)

type registerRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

type verifyResponse struct {
	Valid bool        `json:"valid"`
	User  models.User `json:"user"`
}

type forgotResponse struct {
	Message string `json:"message"`
	// ResetToken is only populated outside production so integration tests
	// and local clients can complete the flow without a mailbox.
	ResetToken string `json:"reset_token,omitempty"`
}

type tokenResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}
