package domain

// List is an ordered column of cards on a board.
type List struct {
	Syncable
	Title     string  `json:"title"`
	Cards     []*Card `json:"cards"`
	Position  int     `json:"position"`
	CreatedBy string  `json:"createdBy"`
}

// Key implements Positioned.
func (l *List) Key() string { return l.ID }

// SetPosition implements Positioned.
func (l *List) SetPosition(p int) { l.Position = p }

// GetPosition returns the list's rank among its siblings.
func (l *List) GetPosition() int { return l.Position }

// Clone returns a deep copy of the list and its cards.
func (l *List) Clone() *List {
	out := *l
	out.Cards = make([]*Card, len(l.Cards))
	for i, c := range l.Cards {
		out.Cards[i] = c.Clone()
	}
	return &out
}

// FindCard returns the card with the given id, or nil.
func (l *List) FindCard(cardID string) *Card {
	if i := IndexOf(l.Cards, cardID); i >= 0 {
		return l.Cards[i]
	}
	return nil
}
