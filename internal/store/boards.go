package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/taskboard/taskboard-server/internal/domain"
)

// CreateBoard stores a new board at version 1.
func (s *Store) CreateBoard(ctx context.Context, board *domain.Board) error {
	board.Version = 1
	if err := s.Boards.Create(ctx, board.ID, board); err != nil {
		return fmt.Errorf("create board %s: %w", board.ID, err)
	}
	return nil
}

// GetBoard retrieves a board by ID.
func (s *Store) GetBoard(ctx context.Context, id string) (*domain.Board, error) {
	return s.Boards.Get(ctx, id)
}

// ListBoardsForUser returns the boards a user created or belongs to, newest update first.
func (s *Store) ListBoardsForUser(ctx context.Context, userID string) ([]*domain.Board, error) {
	ids, err := s.Boards.IDsByIndex(ctx, "member", userID)
	if err != nil {
		return nil, fmt.Errorf("list board ids for %s: %w", userID, err)
	}

	boards := make([]*domain.Board, 0, len(ids))
	for _, id := range ids {
		b, err := s.Boards.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	SortBoards(boards)
	return boards, nil
}

// SaveBoard writes the board if the stored version still equals expectedVersion.
func (s *Store) SaveBoard(ctx context.Context, board *domain.Board, expectedVersion int64) error {
	err := s.Boards.UpdateIf(ctx, board.ID, board, func(old *domain.Board) error {
		if old.Version != expectedVersion {
			return ErrVersionConflict
		}
		board.Version = expectedVersion + 1
		return nil
	})
	if err != nil {
		board.Version = expectedVersion
		return err
	}
	return nil
}

// DeleteBoard removes a board and its member index entries.
func (s *Store) DeleteBoard(ctx context.Context, id string) error {
	return s.Boards.Delete(ctx, id)
}

// AllBoards returns every stored board.
func (s *Store) AllBoards(ctx context.Context) ([]*domain.Board, error) {
	var boards []*domain.Board
	for b, err := range s.Boards.List(ctx) {
		if err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	return boards, nil
}

// SortBoards orders boards by UpdatedAt descending, then by ID.
func SortBoards(boards []*domain.Board) {
	slices.SortFunc(boards, func(a, b *domain.Board) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}
