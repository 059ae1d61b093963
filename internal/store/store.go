// Package store persists boards and users. The Store type is the badger-backed
// implementation; package sqlite provides a relational one and package cache a
// redis read-through decorator. All of them satisfy Backend.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/taskboard/taskboard-server/internal/domain"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Generic entities
	Boards *Entity[domain.Board]
	Users  *Entity[domain.User]
}

var _ Backend = (*Store)(nil)

// Options configures the badger store.
type Options struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
}

// New opens a badger store at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	return Open(Options{Path: path}, logger)
}

// Open opens a badger store with the given options.
func Open(o Options, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(o.Path)
	if o.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}
	s.initBoards()
	s.initUsers()

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", o.Path, "in_memory", o.InMemory)
	}

	return s, nil
}

// Ping checks that the database is open.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return fmt.Errorf("badger db is closed")
	}
	return nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// initBoards initializes the Boards entity. The member index maps every user
// with access (creator included) to the board ids they can see.
func (s *Store) initBoards() {
	s.Boards = NewEntity[domain.Board](s, "board:").
		WithMultiIndex("member", func(b *domain.Board) []string {
			return b.UserIDs()
		})
}

// initUsers initializes the Users entity with a case-insensitive email index.
func (s *Store) initUsers() {
	s.Users = NewEntity[domain.User](s, "user:").
		WithIndexTransform("email",
			func(u *domain.User) []string {
				return []string{domain.NormalizeEmail(u.Email)}
			},
			domain.NormalizeEmail,
		)
}
