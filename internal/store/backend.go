package store

import (
	"context"

	"github.com/taskboard/taskboard-server/internal/domain"
)

// BoardStore persists board aggregates. A board is always read and written whole.
type BoardStore interface {
	// CreateBoard stores a new board. The stored version is 1.
	CreateBoard(ctx context.Context, board *domain.Board) error
	// GetBoard returns ErrNotFound when the board does not exist.
	GetBoard(ctx context.Context, id string) (*domain.Board, error)
	// ListBoardsForUser returns the boards the user created or is a member of,
	// most recently updated first.
	ListBoardsForUser(ctx context.Context, userID string) ([]*domain.Board, error)
	// SaveBoard replaces the board if the stored version equals expectedVersion,
	// and sets board.Version to expectedVersion+1. Otherwise it returns ErrVersionConflict.
	SaveBoard(ctx context.Context, board *domain.Board, expectedVersion int64) error
	// DeleteBoard is idempotent.
	DeleteBoard(ctx context.Context, id string) error
	// AllBoards returns every stored board in no particular order. Used to rebuild the search index.
	AllBoards(ctx context.Context) ([]*domain.Board, error)
}

// UserStore persists user accounts.
type UserStore interface {
	// CreateUser returns ErrAlreadyExists when the id or email is taken.
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	// GetUserByEmail matches case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetUsersByIDs skips ids that do not exist.
	GetUsersByIDs(ctx context.Context, ids []string) ([]*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	// AllUsers returns every stored user in no particular order. Used by backups.
	AllUsers(ctx context.Context) ([]*domain.User, error)
}

// Backend is the full persistence contract implemented by the badger store,
// the sqlite store and the redis cache decorator.
type Backend interface {
	BoardStore
	UserStore
	Ping(ctx context.Context) error
	Close() error
}
