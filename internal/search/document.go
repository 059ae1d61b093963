// Package search provides full-text card search using Bleve.
//
// Every card of every board is one document. Queries are always scoped to a
// single board, and text is folded to lower-case ASCII on both sides so
// "tarea" finds "Tareas" and "diseno" finds "Diseño".
package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/taskboard/taskboard-server/internal/domain"
)

// CardDocument is the indexed form of a card.
type CardDocument struct {
	ID          string   `json:"id"`
	BoardID     string   `json:"board_id"`
	ListID      string   `json:"list_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	LabelIDs    []string `json:"label_ids,omitempty"`
	UpdatedAt   int64    `json:"updated_at"` // Unix millis
}

// ToMap converts the document to the field names of the index mapping.
// Text fields are folded before indexing.
func (d *CardDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"board_id":   d.BoardID,
		"list_id":    d.ListID,
		"title":      Fold(d.Title),
		"updated_at": d.UpdatedAt,
	}
	if d.Description != "" {
		m["description"] = Fold(d.Description)
	}
	if len(d.Labels) > 0 {
		labels := make([]string, len(d.Labels))
		for i, l := range d.Labels {
			labels[i] = Fold(l)
		}
		m["labels"] = labels
	}
	if len(d.LabelIDs) > 0 {
		m["label_ids"] = d.LabelIDs
	}
	return m
}

// CardToSearchDocument converts a card on a list to its index document.
func CardToSearchDocument(boardID, listID string, c *domain.Card) *CardDocument {
	doc := &CardDocument{
		ID:          c.ID,
		BoardID:     boardID,
		ListID:      listID,
		Title:       c.Title,
		Description: c.Description,
		UpdatedAt:   c.UpdatedAt.UnixMilli(),
	}
	for _, l := range c.Labels {
		doc.Labels = append(doc.Labels, l.Text)
		doc.LabelIDs = append(doc.LabelIDs, l.ID)
	}
	return doc
}

// BoardToSearchDocuments converts every card on a board.
func BoardToSearchDocuments(b *domain.Board) []*CardDocument {
	docs := make([]*CardDocument, 0, b.CardCount())
	for _, list := range b.Lists {
		for _, c := range list.Cards {
			docs = append(docs, CardToSearchDocument(b.ID, list.ID, c))
		}
	}
	return docs
}

// Fold lower-cases s and strips combining marks.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}
