package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/search"
)

// CardMatch is a card found by a search, with the list holding it.
type CardMatch struct {
	ListID string       `json:"listId"`
	Card   *domain.Card `json:"card"`
}

// CardQuery filters the cards of a board. Both fields are optional.
type CardQuery struct {
	Text    string
	LabelID string
}

// AvailableLabels returns the distinct labels used on the board.
func (s *BoardService) AvailableLabels(ctx context.Context, ref Ref) (_ []domain.Label, err error) {
	ctx, end := startSpan(ctx, s.tracer, "BoardService.AvailableLabels", refAttrs(ref)...)
	defer end(&err)

	board, err := s.view(ctx, ref)
	if err != nil {
		return nil, err
	}
	return board.AvailableLabels(), nil
}

// SearchCards finds cards on a board. With an index configured, text queries
// are ranked by relevance; otherwise cards are matched by substring in board order.
// Results always reflect the stored board: hits for cards that no longer exist are dropped.
func (s *BoardService) SearchCards(ctx context.Context, ref Ref, q CardQuery) (_ []CardMatch, err error) {
	ctx, end := startSpan(ctx, s.tracer, "BoardService.SearchCards",
		refAttrs(ref, attribute.String("search.query", q.Text), attribute.String("search.label_id", q.LabelID))...)
	defer end(&err)

	board, err := s.view(ctx, ref)
	if err != nil {
		return nil, err
	}
	q.Text = strings.TrimSpace(q.Text)

	if s.index != nil && q.Text != "" {
		hits, err := s.index.Search(ctx, search.SearchParams{
			BoardID: board.ID,
			Query:   q.Text,
			LabelID: q.LabelID,
		})
		if err == nil {
			return matchHits(board, hits), nil
		}
		s.logger.Warn("card search failed, scanning board", "board_id", board.ID, "error", err)
	}
	return scanCards(board, q), nil
}

func matchHits(board *domain.Board, hits []search.SearchHit) []CardMatch {
	out := make([]CardMatch, 0, len(hits))
	for _, hit := range hits {
		list, card := board.FindCard(hit.CardID)
		if card == nil {
			continue
		}
		out = append(out, CardMatch{ListID: list.ID, Card: card})
	}
	return out
}

func scanCards(board *domain.Board, q CardQuery) []CardMatch {
	var cards []*domain.Card
	switch {
	case q.Text != "":
		cards = board.SearchCards(q.Text)
	case q.LabelID != "":
		cards = board.CardsByLabel(q.LabelID)
	default:
		for _, list := range board.Lists {
			cards = append(cards, list.Cards...)
		}
	}

	out := make([]CardMatch, 0, len(cards))
	for _, card := range cards {
		if q.LabelID != "" && !card.HasLabel(q.LabelID) {
			continue
		}
		list, _ := board.FindCard(card.ID)
		out = append(out, CardMatch{ListID: list.ID, Card: card})
	}
	return out
}
