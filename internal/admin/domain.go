// Package admin authenticates shop staff and guards the admin API.
package admin

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User represents an admin account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Claims are carried in admin bearer tokens. Subject holds the admin ID.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}
