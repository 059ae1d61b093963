package reconcile

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/taskboard/taskboard-server/internal/client"
	"github.com/taskboard/taskboard-server/internal/color"
	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/dto"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeAPI is an in-memory server applying mutations with the same layout rules.
type fakeAPI struct {
	mu    sync.Mutex
	board *dto.Board
	seq   int
	err   error
	// hold blocks the named operation until the channel is closed.
	hold map[string]chan struct{}
	// late applies the named operation at once but withholds its response
	// until the channel is closed.
	late map[string]chan struct{}
}

func newFakeAPI() *fakeAPI {
	b := &dto.Board{ID: "board-1", Title: "Demo", Version: 1, Members: []dto.Member{}}
	for _, title := range []string{"Lista de tareas", "En proceso", "Hecho"} {
		list := &domain.List{Title: title}
		list.ID = "list-" + strings.ToLower(strings.ReplaceAll(title, " ", "-"))
		b.AppendList(list)
	}
	return &fakeAPI{board: b, hold: map[string]chan struct{}{}, late: map[string]chan struct{}{}}
}

// snapshot returns a copy of the server's board.
func (f *fakeAPI) snapshot() *dto.Board {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.board.Clone()
}

func (f *fakeAPI) listID(i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.board.Lists[i].ID
}

func (f *fakeAPI) holdOp(name string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.hold[name] = ch
	return ch
}

func (f *fakeAPI) delayResponse(name string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.late[name] = ch
	return ch
}

func (f *fakeAPI) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeAPI) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeAPI) mutate(ctx context.Context, op string, fn func(b *dto.Board) error) (*dto.Board, error) {
	f.mu.Lock()
	gate := f.hold[op]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	if f.err != nil {
		f.mu.Unlock()
		return nil, f.err
	}
	if err := fn(f.board); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.board.Version++
	out := f.board.Clone()
	late := f.late[op]
	f.mu.Unlock()

	if late != nil {
		select {
		case <-late:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return out, nil
}

func (f *fakeAPI) GetBoard(_ context.Context, boardID string) (*dto.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if boardID != f.board.ID {
		return nil, &client.Error{Status: 404, Message: "Board not found"}
	}
	return f.board.Clone(), nil
}

func (f *fakeAPI) AddList(ctx context.Context, _ string, title string) (*dto.Board, error) {
	return f.mutate(ctx, "add_list", func(b *dto.Board) error {
		list := &domain.List{Title: title}
		list.ID = f.nextID("list")
		b.AppendList(list)
		return nil
	})
}

func (f *fakeAPI) RenameList(ctx context.Context, _ string, listID, title string) (*dto.Board, error) {
	return f.mutate(ctx, "rename_list", func(b *dto.Board) error {
		return b.RenameList(listID, title, testNow)
	})
}

func (f *fakeAPI) DeleteList(ctx context.Context, _ string, listID string) (*dto.Board, error) {
	return f.mutate(ctx, "delete_list", func(b *dto.Board) error {
		_, err := b.RemoveList(listID)
		return err
	})
}

func (f *fakeAPI) MoveList(ctx context.Context, _ string, from, to int) (*dto.Board, error) {
	return f.mutate(ctx, "move_list", func(b *dto.Board) error {
		return b.MoveList(from, to)
	})
}

func (f *fakeAPI) AddCard(ctx context.Context, _ string, listID, title, description string) (*dto.Board, error) {
	return f.mutate(ctx, "add_card", func(b *dto.Board) error {
		card := &domain.Card{Title: title, Description: description}
		card.ID = f.nextID("card")
		return b.AppendCard(listID, card, testNow)
	})
}

func (f *fakeAPI) UpdateCard(ctx context.Context, _ string, listID, cardID string, patch domain.CardPatch) (*dto.Board, error) {
	return f.mutate(ctx, "update_card", func(b *dto.Board) error {
		_, err := b.PatchCard(listID, cardID, patch, testNow)
		return err
	})
}

func (f *fakeAPI) DeleteCard(ctx context.Context, _ string, listID, cardID string) (*dto.Board, error) {
	return f.mutate(ctx, "delete_card", func(b *dto.Board) error {
		_, err := b.RemoveCard(listID, cardID, testNow)
		return err
	})
}

func (f *fakeAPI) MoveCard(ctx context.Context, _ string, fromListID, cardID, toListID string, toIndex int) (*dto.Board, error) {
	return f.mutate(ctx, "move_card", func(b *dto.Board) error {
		return b.MoveCard(fromListID, cardID, toListID, toIndex, testNow)
	})
}

func (f *fakeAPI) AddLabel(ctx context.Context, _ string, listID, cardID, text, c string) (*dto.Board, error) {
	return f.mutate(ctx, "add_label", func(b *dto.Board) error {
		if c == "" {
			c = color.ForLabel(text)
		}
		_, err := b.AddLabel(listID, cardID, domain.Label{ID: f.nextID("label"), Text: text, Color: c}, testNow)
		return err
	})
}

func (f *fakeAPI) RemoveLabel(ctx context.Context, _ string, listID, cardID, labelID string) (*dto.Board, error) {
	return f.mutate(ctx, "remove_label", func(b *dto.Board) error {
		_, err := b.RemoveLabel(listID, cardID, labelID, testNow)
		return err
	})
}

func (f *fakeAPI) ToggleStar(ctx context.Context, _ string) (*dto.Board, error) {
	return f.mutate(ctx, "toggle_star", func(b *dto.Board) error {
		b.IsStarred = !b.IsStarred
		return nil
	})
}

func (f *fakeAPI) UpdateBoard(ctx context.Context, _ string, u client.BoardUpdate) (*dto.Board, error) {
	return f.mutate(ctx, "update_board", func(b *dto.Board) error {
		if u.Title != nil {
			b.Title = *u.Title
		}
		if u.Description != nil {
			b.Description = *u.Description
		}
		return nil
	})
}
