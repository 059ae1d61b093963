package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a card search.
type SearchParams struct {
	BoardID string // Required: searches never cross boards
	Query   string // Free text; empty matches every card on the board
	LabelID string // Optional: only cards carrying this label
	ListID  string // Optional: only cards on this list
	Limit   int
}

// SearchHit is a matching card, best match first.
type SearchHit struct {
	CardID string  `json:"cardId"`
	ListID string  `json:"listId"`
	Score  float64 `json:"score"`
}

// DefaultLimit caps results when SearchParams.Limit is zero.
const DefaultLimit = 50

// Search executes a card search.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) ([]SearchHit, error) {
	if params.BoardID == "" {
		return nil, fmt.Errorf("search: board id is required")
	}
	if params.Limit <= 0 {
		params.Limit = DefaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, 0, false)
	req.Fields = []string{"list_id"}
	if params.Query == "" {
		req.SortBy([]string{"-updated_at", "_id"})
	}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	hits := make([]SearchHit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		h := SearchHit{CardID: hit.ID, Score: hit.Score}
		if listID, ok := hit.Fields["list_id"].(string); ok {
			h.ListID = listID
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	board := bleve.NewTermQuery(params.BoardID)
	board.SetField("board_id")
	must := []query.Query{board}

	if params.LabelID != "" {
		lq := bleve.NewTermQuery(params.LabelID)
		lq.SetField("label_ids")
		must = append(must, lq)
	}
	if params.ListID != "" {
		lq := bleve.NewTermQuery(params.ListID)
		lq.SetField("list_id")
		must = append(must, lq)
	}

	if text := Fold(strings.TrimSpace(params.Query)); text != "" {
		var textQueries []query.Query

		titleMatch := bleve.NewMatchQuery(text)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)
		textQueries = append(textQueries, titleMatch)

		labelMatch := bleve.NewMatchQuery(text)
		labelMatch.SetField("labels")
		labelMatch.SetBoost(2.0)
		textQueries = append(textQueries, labelMatch)

		descMatch := bleve.NewMatchQuery(text)
		descMatch.SetField("description")
		textQueries = append(textQueries, descMatch)

		// Prefix on the last word so results appear while typing.
		words := strings.Fields(text)
		if last := words[len(words)-1]; len(last) >= 2 {
			for _, field := range []string{"title", "description"} {
				pq := bleve.NewPrefixQuery(last)
				pq.SetField(field)
				pq.SetBoost(0.5)
				textQueries = append(textQueries, pq)
			}
		}

		// Typo tolerance on single-word queries.
		if len(words) == 1 && len(text) >= 4 {
			fq := bleve.NewFuzzyQuery(text)
			fq.SetField("title")
			fq.SetFuzziness(1)
			fq.SetBoost(0.8)
			textQueries = append(textQueries, fq)
		}

		must = append(must, bleve.NewDisjunctionQuery(textQueries...))
	}

	return bleve.NewConjunctionQuery(must...)
}
