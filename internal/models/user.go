package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"

	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         string // "admin" or "staff"
	Status       string // "active", "disabled"
	TokenKey     string // Per-user secret, rotated to invalidate every issued token
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user may open the admin console.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

type TokenClaims struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
