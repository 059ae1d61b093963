package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/dto"
	domainerrors "github.com/taskboard/taskboard-server/internal/errors"
	"github.com/taskboard/taskboard-server/internal/id"
	"github.com/taskboard/taskboard-server/internal/search"
	"github.com/taskboard/taskboard-server/internal/store"
)

// Errors surfaced verbatim to API clients.
var (
	ErrBoardNotFound   = domainerrors.NotFound("Board not found")
	ErrAccessDenied    = domainerrors.Forbidden("Access denied")
	ErrOwnerOnlyDelete = domainerrors.Forbidden("Only board owner can delete the board")
	ErrUserNotFound    = domainerrors.NotFound("User not found")
)

// DefaultMaxSaveAttempts bounds the load-apply-save cycle on version conflicts.
const DefaultMaxSaveAttempts = 5

// Store is the persistence the board and auth services depend on.
type Store interface {
	store.BoardStore
	store.UserStore
}

// CardIndex keeps a full-text index of board cards. *search.SearchIndex implements it.
type CardIndex interface {
	IndexBoard(ctx context.Context, board *domain.Board) error
	RemoveBoard(ctx context.Context, boardID string) error
	Search(ctx context.Context, params search.SearchParams) ([]search.SearchHit, error)
}

// BoardServiceConfig tunes the board service.
type BoardServiceConfig struct {
	// RelaxedCardAccess lets any authenticated user update cards on any board.
	RelaxedCardAccess bool
	// MaxSaveAttempts is the number of load-apply-save cycles tried before a
	// version conflict is reported. Zero means DefaultMaxSaveAttempts.
	MaxSaveAttempts int
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// Ref addresses a board on behalf of a user.
type Ref struct {
	BoardID string
	UserID  string
	// IfMatch pins the board version the caller last saw. Zero means unpinned.
	IfMatch int64
}

// access is the permission an operation needs on a board.
type access int

const (
	accessView access = iota
	accessEdit
	accessCardUpdate
	accessManage
	accessDelete
)

// mutation changes a private copy of the board. It may run more than once
// when a save loses a race, so it must not have side effects outside b.
type mutation func(b *domain.Board, now time.Time) error

// BoardService implements every board, list, card and member operation.
//
// Writes follow one cycle: load the board, check access, apply the mutation
// to a copy, and save it only if the stored version has not moved. A lost
// race repeats the cycle against the fresh board unless the caller pinned a
// version with Ref.IfMatch.
type BoardService struct {
	store    Store
	enricher *dto.Enricher
	index    CardIndex
	cfg      BoardServiceConfig
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
	newID    func(prefix string) (string, error)
}

// NewBoardService creates a board service. index may be nil, in which case
// card search scans the board.
func NewBoardService(store Store, index CardIndex, cfg BoardServiceConfig, logger *slog.Logger) *BoardService {
	if cfg.MaxSaveAttempts < 1 {
		cfg.MaxSaveAttempts = DefaultMaxSaveAttempts
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BoardService{
		store:    store,
		enricher: dto.NewEnricher(store),
		index:    index,
		cfg:      cfg,
		logger:   logger,
		tracer:   newTracer(cfg.TracerProvider),
		now:      time.Now,
		newID:    id.Generate,
	}
}

// CreateBoardRequest is the input of CreateBoard.
type CreateBoardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// UpdateBoardRequest changes board fields. Nil fields are left unchanged and
// a blank title is ignored.
type UpdateBoardRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	IsPublic    *bool   `json:"isPublic,omitempty"`
	IsStarred   *bool   `json:"isStarred,omitempty"`
}

// CreateBoard creates a board owned by userID with the default lists.
func (s *BoardService) CreateBoard(ctx context.Context, userID string, req CreateBoardRequest) (_ *dto.Board, err error) {
	ctx, end := startSpan(ctx, s.tracer, "BoardService.CreateBoard", attribute.String("user.id", userID))
	defer end(&err)

	if err := domain.ValidateBoardTitle(req.Title); err != nil {
		return nil, err
	}
	if err := domain.ValidateDescription(req.Description); err != nil {
		return nil, err
	}

	boardID, err := s.newID(id.PrefixBoard)
	if err != nil {
		return nil, fmt.Errorf("generate board ID: %w", err)
	}
	var idErr error
	newListID := func() string {
		listID, err := s.newID(id.PrefixList)
		if err != nil {
			idErr = err
		}
		return listID
	}

	board := domain.NewBoard(boardID, strings.TrimSpace(req.Title), strings.TrimSpace(req.Description), userID, newListID, s.now())
	if idErr != nil {
		return nil, fmt.Errorf("generate list ID: %w", idErr)
	}

	if err := s.store.CreateBoard(ctx, board); err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("board.id", board.ID))

	s.logger.Info("board created", "board_id", board.ID, "user_id", userID)
	return s.enricher.EnrichBoard(ctx, board)
}

// ListBoards returns the boards userID created or is a member of, most
// recently updated first. Listing never modifies a board.
func (s *BoardService) ListBoards(ctx context.Context, userID string) (_ []*dto.Board, err error) {
	ctx, end := startSpan(ctx, s.tracer, "BoardService.ListBoards", attribute.String("user.id", userID))
	defer end(&err)

	boards, err := s.store.ListBoardsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	return s.enricher.EnrichBoards(ctx, boards)
}

// GetBoard returns a board the user can view.
func (s *BoardService) GetBoard(ctx context.Context, ref Ref) (_ *dto.Board, err error) {
	ctx, end := startSpan(ctx, s.tracer, "BoardService.GetBoard", refAttrs(ref)...)
	defer end(&err)

	board, err := s.view(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.enricher.EnrichBoard(ctx, board)
}

// UpdateBoard changes title, description and flags. Owner or admin only.
func (s *BoardService) UpdateBoard(ctx context.Context, ref Ref, req UpdateBoardRequest) (_ *dto.Board, err error) {
	ctx, end := startSpan(ctx, s.tracer, "BoardService.UpdateBoard", refAttrs(ref)...)
	defer end(&err)

	title := ""
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
	}
	if title != "" {
		if err := domain.ValidateBoardTitle(title); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		if err := domain.ValidateDescription(*req.Description); err != nil {
			return nil, err
		}
	}

	return s.apply(ctx, ref, accessManage, func(b *domain.Board, _ time.Time) error {
		if title != "" {
			b.Title = title
		}
		if req.Description != nil {
			b.Description = strings.TrimSpace(*req.Description)
		}
		if req.IsPublic != nil {
			b.IsPublic = *req.IsPublic
		}
		if req.IsStarred != nil {
			b.IsStarred = *req.IsStarred
		}
		return nil
	})
}

// ToggleStar flips the board's starred flag.
func (s *BoardService) ToggleStar(ctx context.Context, ref Ref) (_ *dto.Board, err error) {
	ctx, end := startSpan(ctx, s.tracer, "BoardService.ToggleStar", refAttrs(ref)...)
	defer end(&err)

	return s.apply(ctx, ref, accessEdit, func(b *domain.Board, _ time.Time) error {
		b.IsStarred = !b.IsStarred
		return nil
	})
}

// DeleteBoard removes a board. Only its creator may delete it.
func (s *BoardService) DeleteBoard(ctx context.Context, ref Ref) (err error) {
	ctx, end := startSpan(ctx, s.tracer, "BoardService.DeleteBoard", refAttrs(ref)...)
	defer end(&err)

	board, err := s.load(ctx, ref.BoardID)
	if err != nil {
		return err
	}
	if err := s.authorize(board, ref.UserID, accessDelete); err != nil {
		return err
	}
	if ref.IfMatch > 0 && board.Version != ref.IfMatch {
		return domain.ErrVersionMismatch
	}

	if err := s.store.DeleteBoard(ctx, ref.BoardID); err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	if s.index != nil {
		if err := s.index.RemoveBoard(ctx, ref.BoardID); err != nil {
			s.logger.Warn("failed to remove board from search index", "board_id", ref.BoardID, "error", err)
		}
	}

	s.logger.Info("board deleted", "board_id", ref.BoardID, "user_id", ref.UserID)
	return nil
}

// load fetches a board, translating a missing board into ErrBoardNotFound.
func (s *BoardService) load(ctx context.Context, boardID string) (*domain.Board, error) {
	board, err := s.store.GetBoard(ctx, boardID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBoardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get board %s: %w", boardID, err)
	}
	return board, nil
}

// view loads a board the user can read.
func (s *BoardService) view(ctx context.Context, ref Ref) (*domain.Board, error) {
	board, err := s.load(ctx, ref.BoardID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(board, ref.UserID, accessView); err != nil {
		return nil, err
	}
	return board, nil
}

func (s *BoardService) authorize(b *domain.Board, userID string, level access) error {
	switch level {
	case accessView:
		if b.CanView(userID) {
			return nil
		}
	case accessEdit:
		if b.CanEdit(userID) {
			return nil
		}
	case accessCardUpdate:
		if (s.cfg.RelaxedCardAccess && userID != "") || b.CanEdit(userID) {
			return nil
		}
	case accessManage:
		if b.CanManage(userID) {
			return nil
		}
	case accessDelete:
		if b.CanDelete(userID) {
			return nil
		}
		return ErrOwnerOnlyDelete
	}
	return ErrAccessDenied
}

// mutate runs the load-apply-save cycle and returns the saved board.
func (s *BoardService) mutate(ctx context.Context, ref Ref, level access, fn mutation) (*domain.Board, error) {
	for attempt := 1; ; attempt++ {
		current, err := s.load(ctx, ref.BoardID)
		if err != nil {
			return nil, err
		}
		if err := s.authorize(current, ref.UserID, level); err != nil {
			return nil, err
		}
		if ref.IfMatch > 0 && current.Version != ref.IfMatch {
			return nil, domain.ErrVersionMismatch
		}

		now := s.now()
		next := current.Clone()
		if err := fn(next, now); err != nil {
			return nil, err
		}
		next.Touch(now)

		err = s.store.SaveBoard(ctx, next, current.Version)
		switch {
		case err == nil:
			trace.SpanFromContext(ctx).SetAttributes(
				attribute.Int("board.save_attempts", attempt),
				attribute.Int64("board.version", next.Version),
			)
			s.reindex(ctx, next)
			return next, nil
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrBoardNotFound
		case !errors.Is(err, store.ErrVersionConflict):
			return nil, fmt.Errorf("save board %s: %w", ref.BoardID, err)
		case ref.IfMatch > 0 || attempt >= s.cfg.MaxSaveAttempts:
			s.logger.Warn("board save gave up after version conflicts",
				"board_id", ref.BoardID, "attempts", attempt)
			return nil, domain.ErrVersionMismatch
		}
		s.logger.Debug("board version conflict, retrying", "board_id", ref.BoardID, "attempt", attempt)
	}
}

// apply is mutate followed by enrichment.
func (s *BoardService) apply(ctx context.Context, ref Ref, level access, fn mutation) (*dto.Board, error) {
	board, err := s.mutate(ctx, ref, level, fn)
	if err != nil {
		return nil, err
	}
	return s.enricher.EnrichBoard(ctx, board)
}

func (s *BoardService) reindex(ctx context.Context, board *domain.Board) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexBoard(ctx, board); err != nil {
		s.logger.Warn("failed to index board", "board_id", board.ID, "error", err)
	}
}

func (s *BoardService) generateID(prefix string) (string, error) {
	newID, err := s.newID(prefix)
	if err != nil {
		return "", fmt.Errorf("generate %s ID: %w", prefix, err)
	}
	return newID, nil
}
