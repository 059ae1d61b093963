package domain

import (
	"cmp"
	"slices"
	"strings"
	"time"

	domainerrors "github.com/taskboard/taskboard-server/internal/errors"
)

// Not found errors surfaced verbatim to API clients.
var (
	ErrListNotFound  = domainerrors.NotFound("List not found")
	ErrCardNotFound  = domainerrors.NotFound("Card not found")
	ErrLabelNotFound = domainerrors.NotFound("Label not found")
)

// Layout is the two-level ordered structure of a board: lists, each holding cards.
// It is embedded by the stored aggregate and by the client-side board view so
// that server and client apply mutations through the same code.
type Layout struct {
	Lists []*List `json:"lists"`
}

// FindList returns the list with the given id, or nil.
func (l *Layout) FindList(listID string) *List {
	if i := IndexOf(l.Lists, listID); i >= 0 {
		return l.Lists[i]
	}
	return nil
}

// FindCard returns the card with the given id and the list holding it.
func (l *Layout) FindCard(cardID string) (*List, *Card) {
	for _, list := range l.Lists {
		if c := list.FindCard(cardID); c != nil {
			return list, c
		}
	}
	return nil, nil
}

func (l *Layout) card(listID, cardID string) (*List, *Card, error) {
	list := l.FindList(listID)
	if list == nil {
		return nil, nil, ErrListNotFound
	}
	c := list.FindCard(cardID)
	if c == nil {
		return list, nil, ErrCardNotFound
	}
	return list, c, nil
}

// AppendList adds list at the end of the board.
func (l *Layout) AppendList(list *List) {
	if list.Cards == nil {
		list.Cards = []*Card{}
	}
	l.Lists = Append(l.Lists, list)
}

// RenameList sets a list's title.
func (l *Layout) RenameList(listID, title string, now time.Time) error {
	if err := ValidateListTitle(title); err != nil {
		return err
	}
	list := l.FindList(listID)
	if list == nil {
		return ErrListNotFound
	}
	list.Title = strings.TrimSpace(title)
	list.Touch(now)
	return nil
}

// RemoveList deletes a list with its cards and renumbers the remaining lists.
func (l *Layout) RemoveList(listID string) (*List, error) {
	lists, removed, err := Remove(l.Lists, listID)
	if err != nil {
		return nil, ErrListNotFound
	}
	l.Lists = lists
	return removed, nil
}

// MoveList reorders lists.
func (l *Layout) MoveList(from, to int) error {
	return MoveWithin(l.Lists, from, to)
}

// AppendCard adds c at the end of the list.
func (l *Layout) AppendCard(listID string, c *Card, now time.Time) error {
	list := l.FindList(listID)
	if list == nil {
		return ErrListNotFound
	}
	if c.Labels == nil {
		c.Labels = []Label{}
	}
	list.Cards = Append(list.Cards, c)
	list.Touch(now)
	return nil
}

// RemoveCard deletes a card and renumbers its former siblings.
func (l *Layout) RemoveCard(listID, cardID string, now time.Time) (*Card, error) {
	list := l.FindList(listID)
	if list == nil {
		return nil, ErrListNotFound
	}
	cards, removed, err := Remove(list.Cards, cardID)
	if err != nil {
		return nil, ErrCardNotFound
	}
	list.Cards = cards
	list.Touch(now)
	return removed, nil
}

// MoveCardWithin reorders cards inside one list.
func (l *Layout) MoveCardWithin(listID string, from, to int, now time.Time) error {
	list := l.FindList(listID)
	if list == nil {
		return ErrListNotFound
	}
	if err := MoveWithin(list.Cards, from, to); err != nil {
		return err
	}
	list.Touch(now)
	return nil
}

// MoveCard moves a card to toIndex in the target list. Either both lists change or neither does.
func (l *Layout) MoveCard(fromListID, cardID, toListID string, toIndex int, now time.Time) error {
	from, c, err := l.card(fromListID, cardID)
	if err != nil {
		return err
	}
	if fromListID == toListID {
		return l.MoveCardWithin(fromListID, IndexOf(from.Cards, cardID), toIndex, now)
	}
	to := l.FindList(toListID)
	if to == nil {
		return ErrListNotFound
	}

	fromCards, toCards, err := MoveAcross(from.Cards, to.Cards, cardID, toIndex)
	if err != nil {
		return err
	}
	from.Cards = fromCards
	to.Cards = toCards
	from.Touch(now)
	to.Touch(now)
	c.Touch(now)
	return nil
}

// PatchCard applies a partial update. A Position in the patch reorders the card
// inside its list. The patch is validated in full before anything changes.
func (l *Layout) PatchCard(listID, cardID string, p CardPatch, now time.Time) (*Card, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	list, c, err := l.card(listID, cardID)
	if err != nil {
		return nil, err
	}
	if p.Position.Set && (p.Position.Value < 0 || p.Position.Value >= len(list.Cards)) {
		return nil, ErrPositionOutOfRange
	}

	p.applyFields(c)
	if p.Position.Set {
		if err := MoveWithin(list.Cards, IndexOf(list.Cards, cardID), p.Position.Value); err != nil {
			return nil, err
		}
		list.Touch(now)
	}
	c.Touch(now)
	return c, nil
}

// AddLabel attaches label to a card.
func (l *Layout) AddLabel(listID, cardID string, label Label, now time.Time) (*Card, error) {
	if err := ValidateLabel(label); err != nil {
		return nil, err
	}
	_, c, err := l.card(listID, cardID)
	if err != nil {
		return nil, err
	}
	label.Text = strings.TrimSpace(label.Text)
	c.Labels = append(c.Labels, label)
	c.Touch(now)
	return c, nil
}

// RemoveLabel detaches a label from a card.
func (l *Layout) RemoveLabel(listID, cardID, labelID string, now time.Time) (*Card, error) {
	_, c, err := l.card(listID, cardID)
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(c.Labels, func(lb Label) bool { return lb.ID == labelID })
	if i < 0 {
		return nil, ErrLabelNotFound
	}
	c.Labels = slices.Delete(c.Labels, i, i+1)
	c.Touch(now)
	return c, nil
}

// AvailableLabels scans every card and returns one label per distinct text and
// colour pair, sorted by text. The first occurrence supplies the id.
func (l *Layout) AvailableLabels() []Label {
	type key struct{ text, color string }
	seen := make(map[key]bool)
	out := []Label{}
	for _, list := range l.Lists {
		for _, c := range list.Cards {
			for _, lb := range c.Labels {
				k := key{strings.ToLower(lb.Text), strings.ToLower(lb.Color)}
				if seen[k] {
					continue
				}
				seen[k] = true
				out = append(out, lb)
			}
		}
	}
	slices.SortStableFunc(out, func(a, b Label) int {
		return cmp.Compare(strings.ToLower(a.Text), strings.ToLower(b.Text))
	})
	return out
}

// SearchCards returns the cards whose title, description or label text contains query.
func (l *Layout) SearchCards(query string) []*Card {
	out := []*Card{}
	if strings.TrimSpace(query) == "" {
		return out
	}
	for _, list := range l.Lists {
		for _, c := range list.Cards {
			if c.Matches(query) {
				out = append(out, c)
			}
		}
	}
	return out
}

// CardsByLabel returns the cards carrying the given label id.
func (l *Layout) CardsByLabel(labelID string) []*Card {
	out := []*Card{}
	for _, list := range l.Lists {
		for _, c := range list.Cards {
			if c.HasLabel(labelID) {
				out = append(out, c)
			}
		}
	}
	return out
}

// CardCount returns the number of cards across all lists.
func (l *Layout) CardCount() int {
	n := 0
	for _, list := range l.Lists {
		n += len(list.Cards)
	}
	return n
}

// Renumber rewrites every list and card position to its index.
func (l *Layout) Renumber() {
	Renumber(l.Lists)
	for _, list := range l.Lists {
		Renumber(list.Cards)
	}
}

// IsDense reports whether every list and card position equals its index.
func (l *Layout) IsDense() bool {
	if !IsDense(l.Lists) {
		return false
	}
	for _, list := range l.Lists {
		if !IsDense(list.Cards) {
			return false
		}
	}
	return true
}

// CloneLists returns a deep copy of the lists.
func (l *Layout) CloneLists() []*List {
	out := make([]*List, len(l.Lists))
	for i, list := range l.Lists {
		out[i] = list.Clone()
	}
	return out
}
