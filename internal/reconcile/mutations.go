package reconcile

import (
	"context"
	"strings"
	"time"

	"github.com/taskboard/taskboard-server/internal/client"
	"github.com/taskboard/taskboard-server/internal/color"
	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/dto"
	"github.com/taskboard/taskboard-server/internal/id"
)

// API is the server surface mutations are sent to. *client.Client implements it.
type API interface {
	GetBoard(ctx context.Context, boardID string) (*dto.Board, error)
	AddList(ctx context.Context, boardID, title string) (*dto.Board, error)
	RenameList(ctx context.Context, boardID, listID, title string) (*dto.Board, error)
	DeleteList(ctx context.Context, boardID, listID string) (*dto.Board, error)
	MoveList(ctx context.Context, boardID string, from, to int) (*dto.Board, error)
	AddCard(ctx context.Context, boardID, listID, title, description string) (*dto.Board, error)
	UpdateCard(ctx context.Context, boardID, listID, cardID string, patch domain.CardPatch) (*dto.Board, error)
	DeleteCard(ctx context.Context, boardID, listID, cardID string) (*dto.Board, error)
	MoveCard(ctx context.Context, boardID, fromListID, cardID, toListID string, toIndex int) (*dto.Board, error)
	AddLabel(ctx context.Context, boardID, listID, cardID, text, color string) (*dto.Board, error)
	RemoveLabel(ctx context.Context, boardID, listID, cardID, labelID string) (*dto.Board, error)
	ToggleStar(ctx context.Context, boardID string) (*dto.Board, error)
	UpdateBoard(ctx context.Context, boardID string, u client.BoardUpdate) (*dto.Board, error)
}

var _ API = (*client.Client)(nil)

// Failure messages shown to the user when the server rejects a change.
const (
	msgSyncList    = "No se pudo sincronizar la lista con el servidor"
	msgSyncCard    = "No se pudo sincronizar la tarjeta con el servidor"
	msgSyncChanges = "No se pudo sincronizar los cambios con el servidor"
	msgDeleteCard  = "No se pudo eliminar la tarjeta del servidor"
)

// Mutation is a board change applied locally first and then sent to the server.
// Apply may run several times: once optimistically and again whenever local
// state is rebased onto a newer server board, so it must be deterministic.
type Mutation interface {
	Name() string
	Apply(b *dto.Board, now time.Time) error
	Send(ctx context.Context, api API, boardID string) (*dto.Board, error)
	FailureMessage() string
}

// AddList appends a list.
type AddList struct {
	Title  string
	tempID string
}

func (m *AddList) Name() string           { return "add_list" }
func (m *AddList) FailureMessage() string { return msgSyncList }

func (m *AddList) Apply(b *dto.Board, now time.Time) error {
	if err := domain.ValidateListTitle(m.Title); err != nil {
		return err
	}
	if m.tempID == "" {
		m.tempID = id.Temp()
	}
	list := &domain.List{Title: strings.TrimSpace(m.Title)}
	list.ID = m.tempID
	list.InitTimestamps(now)
	b.AppendList(list)
	return nil
}

func (m *AddList) Send(ctx context.Context, api API, boardID string) (*dto.Board, error) {
	return api.AddList(ctx, boardID, m.Title)
}

// RenameList changes a list title.
type RenameList struct {
	ListID string
	Title  string
}

func (m *RenameList) Name() string           { return "rename_list" }
func (m *RenameList) FailureMessage() string { return msgSyncList }

func (m *RenameList) Apply(b *dto.Board, now time.Time) error {
	return b.RenameList(m.ListID, m.Title, now)
}

func (m *RenameList) Send(ctx context.Context, api API, boardID string) (*dto.Board, error) {
	return api.RenameList(ctx, boardID, m.ListID, m.Title)
}

// DeleteList removes a list and its cards.
type DeleteList struct {
	ListID string
}

func (m *DeleteList) Name() string           { return "delete_list" }
func (m *DeleteList) FailureMessage() string { return msgSyncList }

func (m *DeleteList) Apply(b *dto.Board, _ time.Time) error {
	_, err := b.RemoveList(m.ListID)
	return err
}

func (m *DeleteList) Send(ctx context.Context, api API, boardID string) (*dto.Board, error) {
	return api.DeleteList(ctx, boardID, m.ListID)
}

// MoveList reorders lists by index.
type MoveList struct {
	From, To int
}

func (m *MoveList) Name() string           { return "move_list" }
func (m *MoveList) FailureMessage() string { return msgSyncList }

func (m *MoveList) Apply(b *dto.Board, _ time.Time) error {
	return b.MoveList(m.From, m.To)
}

func (m *MoveList) Send(ctx context.Context, api API, boardID string) (*dto.Board, error) {
	return api.MoveList(ctx, boardID, m.From, m.To)
}

// AddCard appends a card to a list.
type AddCard struct {
	ListID      string
	Title       string
	Description string
	tempID      string
}

func (m *AddCard) Name() string           { return "add_card" }
func (m *AddCard) FailureMessage() string { return msgSyncCard }

func (m *AddCard) Apply(b *dto.Board, now time.Time) error {
	if err := domain.ValidateCardTitle(m.Title); err != nil {
		return err
	}
	if err := domain.ValidateDescription(m.Description); err != nil {
		return err
	}
	if m.tempID == "" {
		m.tempID = id.Temp()
	}
	card := &domain.Card{
		Title:       strings.TrimSpace(m.Title),
		Description: strings.TrimSpace(m.Description),
		Labels:      []domain.Label{},
	}
	card.ID = m.tempID
	card.InitTimestamps(now)
	return b.AppendCard(m.ListID, card, now)
}

func (m *AddCard) Send(ctx context.Context, api API, boardID string) (*dto.Board, error) {
	return api.AddCard(ctx, boardID, m.ListID, m.Title, m.Description)
}

// UpdateCard applies a partial card update.
type UpdateCard struct {
	ListID string
	CardID string
	Patch  domain.CardPatch
}

func (m *UpdateCard) Name() string           { return "update_card" }
func (m *UpdateCard) FailureMessage() string { return msgSyncChanges }

func (m *UpdateCard) Apply(b *dto.Board, now time.Time) error {
	_, err := b.PatchCard(m.ListID, m.CardID, m.Patch, now)
	return err
}

func (m *UpdateCard) Send(ctx context.Context, api API, boardID string) (*dto.Board, error) {
	return api.UpdateCard(ctx, boardID, m.ListID, m.CardID, m.Patch)
}

// DeleteCard removes a card.
type DeleteCard struct {
	ListID string
	CardID string
}

func (m *DeleteCard) Name() string           { return "delete_card" }
func (m *DeleteCard) FailureMessage() string { return msgDeleteCard }

func (m *DeleteCard) Apply(b *dto.Board, now time.Time) error {
	_, err := b.RemoveCard(m.ListID, m.CardID, now)
	return err
}

func (m *DeleteCard) Send(ctx context.Context, api API, boardID string) (*dto.Board, error) {
	return api.DeleteCard(ctx, boardID, m.ListID, m.CardID)
}

// MoveCard moves a card to an index in another (or the same) list.
type MoveCard struct {
	FromListID string
	CardID     string
	ToListID   string
	ToIndex    int
}

func (m *MoveCard) Name() string           { return "move_card" }
func (m *MoveCard) FailureMessage() string { return msgSyncCard }

func (m *MoveCard) Apply(b *dto.Board, now time.Time) error {
	return b.MoveCard(m.FromListID, m.CardID, m.ToListID, m.ToIndex, now)
}

func (m *MoveCard) Send(ctx context.Context, api API, boardID string) (*dto.Board, error) {
	return api.MoveCard(ctx, boardID, m.FromListID, m.CardID, m.ToListID, m.ToIndex)
}

// AddLabel attaches a label to a card. An empty Color is derived from Text.
type AddLabel struct {
	ListID string
	CardID string
	Text   string
	Color  string
	label  domain.Label
}

func (m *AddLabel) Name() string           { return "add_label" }
func (m *AddLabel) FailureMessage() string { return msgSyncChanges }

func (m *AddLabel) Apply(b *dto.Board, now time.Time) error {
	if m.label.ID == "" {
		m.label = domain.Label{
			ID:    id.Label(),
			Text:  strings.TrimSpace(m.Text),
			Color: strings.TrimSpace(m.Color),
		}
		if m.label.Color == "" && m.label.Text != "" {
			m.label.Color = color.ForLabel(m.label.Text)
		}
	}
	if err := domain.ValidateLabel(m.label); err != nil {
		return err
	}
	if !color.IsLabelColor(m.label.Color) {
		return domain.ErrLabelColor
	}
	_, err := b.AddLabel(m.ListID, m.CardID, m.label, now)
	return err
}

func (m *AddLabel) Send(ctx context.Context, api API, boardID string) (*dto.Board, error) {
	return api.AddLabel(ctx, boardID, m.ListID, m.CardID, m.Text, m.Color)
}

// RemoveLabel detaches a label from a card.
type RemoveLabel struct {
	ListID  string
	CardID  string
	LabelID string
}

func (m *RemoveLabel) Name() string           { return "remove_label" }
func (m *RemoveLabel) FailureMessage() string { return msgSyncChanges }

func (m *RemoveLabel) Apply(b *dto.Board, now time.Time) error {
	_, err := b.RemoveLabel(m.ListID, m.CardID, m.LabelID, now)
	return err
}

func (m *RemoveLabel) Send(ctx context.Context, api API, boardID string) (*dto.Board, error) {
	return api.RemoveLabel(ctx, boardID, m.ListID, m.CardID, m.LabelID)
}

// UpdateBoard changes the board title or description. Nil fields are unchanged.
type UpdateBoard struct {
	Title       *string
	Description *string
}

func (m *UpdateBoard) Name() string           { return "update_board" }
func (m *UpdateBoard) FailureMessage() string { return msgSyncChanges }

func (m *UpdateBoard) Apply(b *dto.Board, now time.Time) error {
	if m.Title != nil {
		if err := domain.ValidateBoardTitle(*m.Title); err != nil {
			return err
		}
	}
	if m.Description != nil {
		if err := domain.ValidateDescription(*m.Description); err != nil {
			return err
		}
	}
	if m.Title != nil {
		b.Title = strings.TrimSpace(*m.Title)
	}
	if m.Description != nil {
		b.Description = strings.TrimSpace(*m.Description)
	}
	b.UpdatedAt = now
	return nil
}

func (m *UpdateBoard) Send(ctx context.Context, api API, boardID string) (*dto.Board, error) {
	return api.UpdateBoard(ctx, boardID, client.BoardUpdate{Title: m.Title, Description: m.Description})
}

// ToggleStar flips the starred flag.
type ToggleStar struct{}

func (m *ToggleStar) Name() string           { return "toggle_star" }
func (m *ToggleStar) FailureMessage() string { return msgSyncChanges }

func (m *ToggleStar) Apply(b *dto.Board, _ time.Time) error {
	b.IsStarred = !b.IsStarred
	return nil
}

func (m *ToggleStar) Send(ctx context.Context, api API, boardID string) (*dto.Board, error) {
	return api.ToggleStar(ctx, boardID)
}
