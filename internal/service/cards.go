package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/taskboard/taskboard-server/internal/color"
	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/dto"
	"github.com/taskboard/taskboard-server/internal/id"
)

// ErrLabelColor rejects a label colour outside the palette that is not a hex colour.
var ErrLabelColor = domain.ErrLabelColor

// AddCardRequest is the input of AddCard.
type AddCardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// LabelRequest is the input of AddLabel. An empty colour is derived from the text.
type LabelRequest struct {
	Text  string `json:"text"`
	Color string `json:"color,omitempty"`
}

func cardAttrs(ref Ref, listID, cardID string) []attribute.KeyValue {
	return refAttrs(ref, attribute.String("list.id", listID), attribute.String("card.id", cardID))
}

// AddCard appends a card to a list.
func (s *BoardService) AddCard(ctx context.Context, ref Ref, listID string, req AddCardRequest) (_ *dto.Board, err error) {
	ctx, end := startSpan(ctx, s.tracer, "BoardService.AddCard", refAttrs(ref, attribute.String("list.id", listID))...)
	defer end(&err)

	if err := domain.ValidateCardTitle(req.Title); err != nil {
		return nil, err
	}
	if err := domain.ValidateDescription(req.Description); err != nil {
		return nil, err
	}
	cardID, err := s.generateID(id.PrefixCard)
	if err != nil {
		return nil, err
	}

	return s.apply(ctx, ref, accessEdit, func(b *domain.Board, now time.Time) error {
		card := &domain.Card{
			Title:       strings.TrimSpace(req.Title),
			Description: strings.TrimSpace(req.Description),
			Labels:      []domain.Label{},
			CreatedBy:   ref.UserID,
		}
		card.ID = cardID
		card.InitTimestamps(now)
		return b.AppendCard(listID, card, now)
	})
}

// UpdateCard applies a partial update to a card. Unless relaxed card access
// is configured the caller must be able to edit the board.
func (s *BoardService) UpdateCard(ctx context.Context, ref Ref, listID, cardID string, patch domain.CardPatch) (_ *dto.Board, err error) {
	ctx, end := startSpan(ctx, s.tracer, "BoardService.UpdateCard", cardAttrs(ref, listID, cardID)...)
	defer end(&err)

	if labels, ok := patch.Labels.Get(); ok {
		labels, err := normalizeLabels(labels)
		if err != nil {
			return nil, err
		}
		patch.Labels = domain.Some(labels)
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	return s.apply(ctx, ref, accessCardUpdate, func(b *domain.Board, now time.Time) error {
		_, err := b.PatchCard(listID, cardID, patch, now)
		return err
	})
}

// DeleteCard removes a card; its former siblings are renumbered.
func (s *BoardService) DeleteCard(ctx context.Context, ref Ref, listID, cardID string) (_ *dto.Board, err error) {
	ctx, end := startSpan(ctx, s.tracer, "BoardService.DeleteCard", cardAttrs(ref, listID, cardID)...)
	defer end(&err)

	return s.apply(ctx, ref, accessEdit, func(b *domain.Board, now time.Time) error {
		_, err := b.RemoveCard(listID, cardID, now)
		return err
	})
}

// MoveCard moves a card to toIndex in toListID, which may be its current list.
func (s *BoardService) MoveCard(ctx context.Context, ref Ref, fromListID, cardID, toListID string, toIndex int) (_ *dto.Board, err error) {
	ctx, end := startSpan(ctx, s.tracer, "BoardService.MoveCard",
		append(cardAttrs(ref, fromListID, cardID), attribute.String("list.to", toListID), attribute.Int("card.to_index", toIndex))...)
	defer end(&err)

	return s.apply(ctx, ref, accessEdit, func(b *domain.Board, now time.Time) error {
		return b.MoveCard(fromListID, cardID, toListID, toIndex, now)
	})
}

// AddLabel attaches a new label to a card.
func (s *BoardService) AddLabel(ctx context.Context, ref Ref, listID, cardID string, req LabelRequest) (_ *dto.Board, err error) {
	ctx, end := startSpan(ctx, s.tracer, "BoardService.AddLabel", cardAttrs(ref, listID, cardID)...)
	defer end(&err)

	label, err := newLabel(req)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, ref, accessEdit, func(b *domain.Board, now time.Time) error {
		_, err := b.AddLabel(listID, cardID, label, now)
		return err
	})
}

// RemoveLabel detaches a label from a card.
func (s *BoardService) RemoveLabel(ctx context.Context, ref Ref, listID, cardID, labelID string) (_ *dto.Board, err error) {
	ctx, end := startSpan(ctx, s.tracer, "BoardService.RemoveLabel",
		refAttrs(ref, attribute.String("card.id", cardID), attribute.String("label.id", labelID))...)
	defer end(&err)

	return s.apply(ctx, ref, accessEdit, func(b *domain.Board, now time.Time) error {
		_, err := b.RemoveLabel(listID, cardID, labelID, now)
		return err
	})
}

func newLabel(req LabelRequest) (domain.Label, error) {
	label := domain.Label{
		ID:    id.Label(),
		Text:  strings.TrimSpace(req.Text),
		Color: strings.TrimSpace(req.Color),
	}
	if label.Color == "" && label.Text != "" {
		label.Color = color.ForLabel(label.Text)
	}
	if err := domain.ValidateLabel(label); err != nil {
		return domain.Label{}, err
	}
	if !color.IsLabelColor(label.Color) {
		return domain.Label{}, ErrLabelColor
	}
	return label, nil
}

// normalizeLabels mints an id for every label sent without one and applies
// the rules AddLabel enforces.
func normalizeLabels(labels []domain.Label) ([]domain.Label, error) {
	out := make([]domain.Label, len(labels))
	for i, l := range labels {
		if l.ID == "" {
			l.ID = id.Label()
		}
		l.Text = strings.TrimSpace(l.Text)
		l.Color = strings.TrimSpace(l.Color)
		if err := domain.ValidateLabel(l); err != nil {
			return nil, err
		}
		if !color.IsLabelColor(l.Color) {
			return nil, ErrLabelColor
		}
		out[i] = l
	}
	return out, nil
}
