package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/dto"
	"github.com/taskboard/taskboard-server/internal/id"
)

// AddList appends a list to the board.
func (s *BoardService) AddList(ctx context.Context, ref Ref, title string) (_ *dto.Board, err error) {
	ctx, end := startSpan(ctx, s.tracer, "BoardService.AddList", refAttrs(ref)...)
	defer end(&err)

	if err := domain.ValidateListTitle(title); err != nil {
		return nil, err
	}
	listID, err := s.generateID(id.PrefixList)
	if err != nil {
		return nil, err
	}

	return s.apply(ctx, ref, accessEdit, func(b *domain.Board, now time.Time) error {
		list := &domain.List{
			Title:     strings.TrimSpace(title),
			CreatedBy: ref.UserID,
			Cards:     []*domain.Card{},
		}
		list.ID = listID
		list.InitTimestamps(now)
		b.AppendList(list)
		return nil
	})
}

// UpdateList renames a list.
func (s *BoardService) UpdateList(ctx context.Context, ref Ref, listID, title string) (_ *dto.Board, err error) {
	ctx, end := startSpan(ctx, s.tracer, "BoardService.UpdateList", refAttrs(ref, attribute.String("list.id", listID))...)
	defer end(&err)

	if err := domain.ValidateListTitle(title); err != nil {
		return nil, err
	}
	return s.apply(ctx, ref, accessEdit, func(b *domain.Board, now time.Time) error {
		return b.RenameList(listID, title, now)
	})
}

// DeleteList removes a list and its cards; the remaining lists are renumbered.
func (s *BoardService) DeleteList(ctx context.Context, ref Ref, listID string) (_ *dto.Board, err error) {
	ctx, end := startSpan(ctx, s.tracer, "BoardService.DeleteList", refAttrs(ref, attribute.String("list.id", listID))...)
	defer end(&err)

	return s.apply(ctx, ref, accessEdit, func(b *domain.Board, _ time.Time) error {
		_, err := b.RemoveList(listID)
		return err
	})
}

// MoveList moves the list at index from to index to.
func (s *BoardService) MoveList(ctx context.Context, ref Ref, from, to int) (_ *dto.Board, err error) {
	ctx, end := startSpan(ctx, s.tracer, "BoardService.MoveList",
		refAttrs(ref, attribute.Int("list.from", from), attribute.Int("list.to", to))...)
	defer end(&err)

	return s.apply(ctx, ref, accessEdit, func(b *domain.Board, _ time.Time) error {
		return b.MoveList(from, to)
	})
}
