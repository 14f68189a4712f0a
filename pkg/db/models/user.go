package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ruralmart/ruralmart-backend/pkg/enums"
)

// User is an email-identified account.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string         `gorm:"column:email;not null;unique"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	FirstName    string         `gorm:"column:first_name;not null"`
	LastName     string         `gorm:"column:last_name;not null"`
	PhoneNumber  string         `gorm:"column:phone_number;not null;unique"`
	Role         enums.UserRole `gorm:"column:role;not null;default:'buyer'"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
