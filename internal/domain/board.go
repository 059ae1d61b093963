// Package domain contains the core entities of the task board: boards, their ordered
// lists and cards, membership roles and the rules for changing them.
package domain

import (
	"slices"
	"time"

	domainerrors "github.com/taskboard/taskboard-server/internal/errors"
)

// Role is a user's permission level on a board.
type Role string

const (
	// RoleOwner is held by the board creator only.
	RoleOwner Role = "owner"
	// RoleAdmin can edit board settings and manage members.
	RoleAdmin Role = "admin"
	// RoleMember can view the board and edit lists and cards.
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleMember
}

// Member links a user to a board.
type Member struct {
	UserID   string    `json:"userId"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Membership errors.
var (
	ErrAlreadyMember   = domainerrors.AlreadyExists("User is already a member of this board")
	ErrMemberNotFound  = domainerrors.NotFound("Member not found")
	ErrOwnerImmutable  = domainerrors.Validation("The board owner cannot be removed or reassigned")
	ErrInvalidRole     = domainerrors.Validation("Role must be admin or member")
	ErrTooManyMembers  = domainerrors.Validationf("A board cannot have more than %d members", MaxBoardMembers)
	ErrVersionMismatch = domainerrors.Conflict("Board was modified by another request")
)

// Board is the aggregate root: everything on a board is stored and versioned together.
type Board struct {
	Syncable
	Layout
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Members     []Member `json:"members"`
	IsPublic    bool     `json:"isPublic"`
	IsStarred   bool     `json:"isStarred"`
	CreatedBy   string   `json:"createdBy"`

	// Version increases by one with every successful write and is the
	// compare-and-swap token for concurrent updates.
	Version int64 `json:"version"`
}

// RoleOf returns the user's role on the board. The creator is always the owner,
// whether or not a member entry exists.
func (b *Board) RoleOf(userID string) (Role, bool) {
	if userID == "" {
		return "", false
	}
	if b.CreatedBy == userID {
		return RoleOwner, true
	}
	for _, m := range b.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}

// CanView reports whether the user may read the board.
// IsPublic is informational and grants nothing.
func (b *Board) CanView(userID string) bool {
	_, ok := b.RoleOf(userID)
	return ok
}

// CanEdit reports whether the user may change lists and cards.
func (b *Board) CanEdit(userID string) bool {
	return b.CanView(userID)
}

// CanManage reports whether the user may change board fields and membership.
func (b *Board) CanManage(userID string) bool {
	role, ok := b.RoleOf(userID)
	return ok && (role == RoleOwner || role == RoleAdmin)
}

// CanDelete reports whether the user may delete the board. Only the creator can.
func (b *Board) CanDelete(userID string) bool {
	return userID != "" && b.CreatedBy == userID
}

// AddMember grants role to userID.
func (b *Board) AddMember(userID string, role Role, now time.Time) error {
	if role != RoleAdmin && role != RoleMember {
		return ErrInvalidRole
	}
	if b.CanView(userID) {
		return ErrAlreadyMember
	}
	if len(b.Members) >= MaxBoardMembers {
		return ErrTooManyMembers
	}
	b.Members = append(b.Members, Member{UserID: userID, Role: role, JoinedAt: now})
	return nil
}

// RemoveMember revokes a user's access. The owner cannot be removed.
func (b *Board) RemoveMember(userID string) error {
	if userID == b.CreatedBy {
		return ErrOwnerImmutable
	}
	i := slices.IndexFunc(b.Members, func(m Member) bool { return m.UserID == userID })
	if i < 0 {
		return ErrMemberNotFound
	}
	b.Members = slices.Delete(b.Members, i, i+1)
	return nil
}

// UserIDs returns the creator followed by every member, without duplicates.
func (b *Board) UserIDs() []string {
	ids := make([]string, 0, len(b.Members)+1)
	if b.CreatedBy != "" {
		ids = append(ids, b.CreatedBy)
	}
	for _, m := range b.Members {
		if !slices.Contains(ids, m.UserID) {
			ids = append(ids, m.UserID)
		}
	}
	return ids
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	out := *b
	out.Lists = b.CloneLists()
	out.Members = append([]Member{}, b.Members...)
	return &out
}

// NewBoard builds a board owned by ownerID with the default lists.
// newID is called once per default list.
func NewBoard(id, title, description, ownerID string, newID func() string, now time.Time) *Board {
	b := &Board{
		Title:       title,
		Description: description,
		CreatedBy:   ownerID,
		Members:     []Member{{UserID: ownerID, Role: RoleOwner, JoinedAt: now}},
		Layout:      Layout{Lists: []*List{}},
	}
	b.ID = id
	b.InitTimestamps(now)
	for _, t := range DefaultListTitles {
		list := &List{Title: t, CreatedBy: ownerID, Cards: []*Card{}}
		list.ID = newID()
		list.InitTimestamps(now)
		b.AppendList(list)
	}
	return b
}
