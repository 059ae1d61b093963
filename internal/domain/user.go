package domain

import (
	"strings"
	"time"
)

// User is an account that can own and join boards.
type User struct {
	Syncable
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	AvatarColor  string    `json:"avatarColor"`
	IsActive     bool      `json:"isActive"`
	LastLoginAt  time.Time `json:"lastLogin,omitzero"`
}

// NormalizeEmail lower-cases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Public returns a copy without the password hash.
func (u *User) Public() *User {
	out := *u
	out.PasswordHash = ""
	return &out
}
