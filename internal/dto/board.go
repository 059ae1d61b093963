// Package dto provides Data Transfer Objects for API responses.
//
// A board is returned to clients with its member and creator ids resolved to
// display data (name, email, avatar color), so a client can render it without
// further requests.
package dto

import (
	"slices"
	"time"

	"github.com/taskboard/taskboard-server/internal/domain"
)

// UserSummary is the display data of a user referenced by a board.
type UserSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	AvatarColor string `json:"avatarColor"`
}

// Member is a board membership with the user resolved.
type Member struct {
	User     UserSummary `json:"user"`
	Role     domain.Role `json:"role"`
	JoinedAt time.Time   `json:"joinedAt"`
}

// Board is the client-facing representation of a board.
//
// It embeds domain.Layout so clients apply list and card mutations with the
// same ordering rules the server uses.
type Board struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	domain.Layout
	Members   []Member    `json:"members"`
	CreatedBy UserSummary `json:"createdBy"`
	IsPublic  bool        `json:"isPublic"`
	IsStarred bool        `json:"isStarred"`
	Version   int64       `json:"version"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}
	out := *b
	out.Lists = b.CloneLists()
	out.Members = slices.Clone(b.Members)
	return &out
}

// MemberRole returns userID's role on the board as seen by the client.
func (b *Board) MemberRole(userID string) (domain.Role, bool) {
	if b.CreatedBy.ID == userID {
		return domain.RoleOwner, true
	}
	for _, m := range b.Members {
		if m.User.ID == userID {
			return m.Role, true
		}
	}
	return "", false
}

// User is the client-facing representation of the authenticated user.
type User struct {
	UserSummary
	IsActive  bool      `json:"isActive"`
	LastLogin time.Time `json:"lastLogin,omitzero"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUser converts a domain user, dropping the password hash.
func NewUser(u *domain.User) *User {
	return &User{
		UserSummary: summarize(u),
		IsActive:    u.IsActive,
		LastLogin:   u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}
