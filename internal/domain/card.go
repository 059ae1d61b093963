package domain

import (
	"strings"
	"time"
)

// Label is a coloured tag attached to a card. Labels are values: each card
// holds its own copies and two cards may carry identical text and colour
// under different ids.
type Label struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Color string `json:"color"`
}

// Card is a unit of work inside a list.
type Card struct {
	Syncable
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Labels      []Label    `json:"labels"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Position    int        `json:"position"`
	CreatedBy   string     `json:"createdBy"`
}

// Key implements Positioned.
func (c *Card) Key() string { return c.ID }

// SetPosition implements Positioned.
func (c *Card) SetPosition(p int) { c.Position = p }

// GetPosition returns the card's rank among its siblings.
func (c *Card) GetPosition() int { return c.Position }

// Clone returns a deep copy of the card.
func (c *Card) Clone() *Card {
	out := *c
	out.Labels = append([]Label{}, c.Labels...)
	if c.DueDate != nil {
		due := *c.DueDate
		out.DueDate = &due
	}
	return &out
}

// HasLabel reports whether the card carries a label with the given id.
func (c *Card) HasLabel(labelID string) bool {
	for _, l := range c.Labels {
		if l.ID == labelID {
			return true
		}
	}
	return false
}

// Matches reports whether query (case-insensitive) occurs in the title,
// the description or any label text.
func (c *Card) Matches(query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(c.Title), q) ||
		strings.Contains(strings.ToLower(c.Description), q) {
		return true
	}
	for _, l := range c.Labels {
		if strings.Contains(strings.ToLower(l.Text), q) {
			return true
		}
	}
	return false
}

// CardPatch is a partial card update. A field that is not Set is left unchanged.
// Set+Null clears description, labels and due date; it is rejected for title and position.
type CardPatch struct {
	Title       Optional[string]
	Description Optional[string]
	Labels      Optional[[]Label]
	DueDate     Optional[time.Time]
	Position    Optional[int]
}

// IsEmpty reports whether the patch carries no field at all.
func (p CardPatch) IsEmpty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Labels.Set && !p.DueDate.Set && !p.Position.Set
}

// Validate checks the patch against the card field rules without touching any card.
func (p CardPatch) Validate() error {
	if p.Title.Set {
		if p.Title.Null {
			return ErrCardTitleRequired
		}
		if err := ValidateCardTitle(p.Title.Value); err != nil {
			return err
		}
	}
	if p.Description.Set && !p.Description.Null {
		if err := ValidateDescription(p.Description.Value); err != nil {
			return err
		}
	}
	if p.Labels.Set && !p.Labels.Null {
		for _, l := range p.Labels.Value {
			if err := ValidateLabel(l); err != nil {
				return err
			}
		}
	}
	if p.Position.Set && p.Position.Null {
		return ErrPositionOutOfRange
	}
	return nil
}

// applyFields writes every Set field except Position onto c.
func (p CardPatch) applyFields(c *Card) {
	if p.Title.Set {
		c.Title = strings.TrimSpace(p.Title.Value)
	}
	if p.Description.Set {
		c.Description = strings.TrimSpace(p.Description.Value)
	}
	if p.Labels.Set {
		c.Labels = append([]Label{}, p.Labels.Value...)
	}
	if p.DueDate.Set {
		if p.DueDate.Null {
			c.DueDate = nil
		} else {
			due := p.DueDate.Value
			c.DueDate = &due
		}
	}
}
