package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/ruralmart/ruralmart-backend/pkg/db/models"
	"github.com/ruralmart/ruralmart-backend/pkg/enums"
)

// RegisterInput captures the fields required to create an account.
type RegisterInput struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	PhoneNumber string `json:"phone_number" validate:"required,max=20"`
	Role        string `json:"role" validate:"omitempty,oneof=buyer vendor"`
}

// LoginInput captures the credentials presented at login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserProfile is the account shape returned to clients.
type UserProfile struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	PhoneNumber string         `json:"phone_number"`
	Role        enums.UserRole `json:"role"`
	CreatedAt   time.Time      `json:"created_at"`
}

// AuthResult bundles the minted token with the authenticated profile.
type AuthResult struct {
	Token string      `json:"token"`
	User  UserProfile `json:"user"`
}

func profileFromModel(user *models.User) UserProfile {
	return UserProfile{
		ID:          user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		PhoneNumber: user.PhoneNumber,
		Role:        user.Role,
		CreatedAt:   user.CreatedAt,
	}
}
