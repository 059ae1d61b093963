package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/store"
)

// CreateBoard inserts a board at version 1 together with its member rows.
func (s *Store) CreateBoard(ctx context.Context, board *domain.Board) error {
	board.Version = 1
	doc, err := store.Marshal(board)
	if err != nil {
		return fmt.Errorf("marshal board: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO boards (id, created_by, version, created_at, updated_at, doc)
		VALUES (?, ?, ?, ?, ?, ?)`,
		board.ID, board.CreatedBy, board.Version,
		formatTime(board.CreatedAt), formatTime(board.UpdatedAt), string(doc))
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert board: %w", err)
	}

	if err := writeMembers(ctx, tx, board); err != nil {
		return err
	}
	return tx.Commit()
}

// writeMembers replaces the member projection of board.
func writeMembers(ctx context.Context, tx *sql.Tx, board *domain.Board) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM board_members WHERE board_id = ?`, board.ID); err != nil {
		return fmt.Errorf("clear members: %w", err)
	}
	for _, userID := range board.UserIDs() {
		role, _ := board.RoleOf(userID)
		joinedAt := board.CreatedAt
		for _, m := range board.Members {
			if m.UserID == userID {
				joinedAt = m.JoinedAt
				break
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO board_members (board_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
			board.ID, userID, string(role), formatTime(joinedAt))
		if err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
	}
	return nil
}

func scanBoard(scanner interface{ Scan(dest ...any) error }) (*domain.Board, error) {
	var (
		doc     string
		version int64
	)
	if err := scanner.Scan(&doc, &version); err != nil {
		return nil, err
	}
	var b domain.Board
	if err := store.Unmarshal([]byte(doc), &b); err != nil {
		return nil, fmt.Errorf("unmarshal board: %w", err)
	}
	b.Version = version
	return &b, nil
}

// GetBoard retrieves a board by ID.
// Returns store.ErrNotFound if the board does not exist.
func (s *Store) GetBoard(ctx context.Context, id string) (*domain.Board, error) {
	row := s.db.QueryRowContext(ctx, `SELECT doc, version FROM boards WHERE id = ?`, id)
	b, err := scanBoard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListBoardsForUser returns the boards a user created or belongs to, newest update first.
func (s *Store) ListBoardsForUser(ctx context.Context, userID string) ([]*domain.Board, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.doc, b.version
		FROM boards b
		JOIN board_members m ON m.board_id = b.id
		WHERE m.user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	boards := []*domain.Board{}
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	store.SortBoards(boards)
	return boards, nil
}

// AllBoards returns every stored board.
func (s *Store) AllBoards(ctx context.Context) ([]*domain.Board, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc, version FROM boards`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var boards []*domain.Board
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

// SaveBoard replaces the board if its stored version equals expectedVersion.
func (s *Store) SaveBoard(ctx context.Context, board *domain.Board, expectedVersion int64) error {
	board.Version = expectedVersion + 1
	doc, err := store.Marshal(board)
	if err != nil {
		board.Version = expectedVersion
		return fmt.Errorf("marshal board: %w", err)
	}

	if err := s.saveBoard(ctx, board, expectedVersion, doc); err != nil {
		board.Version = expectedVersion
		return err
	}
	return nil
}

func (s *Store) saveBoard(ctx context.Context, board *domain.Board, expectedVersion int64, doc []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// The conditional UPDATE is the first statement so the transaction takes
	// the write lock before reading anything.
	result, err := tx.ExecContext(ctx, `
		UPDATE boards SET version = ?, updated_at = ?, doc = ?
		WHERE id = ? AND version = ?`,
		board.Version, formatTime(board.UpdatedAt), string(doc), board.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update board: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM boards WHERE id = ?`, board.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		return store.ErrVersionConflict
	}

	if err := writeMembers(ctx, tx, board); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteBoard removes a board; member rows cascade.
func (s *Store) DeleteBoard(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM boards WHERE id = ?`, id)
	return err
}
