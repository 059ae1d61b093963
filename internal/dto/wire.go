package dto

import (
	"time"

	"github.com/bytedance/sonic"

	"github.com/taskboard/taskboard-server/internal/domain"
)

// TimeLayout is how timestamps leave the API: UTC with millisecond
// precision, the form browsers produce with Date.toISOString.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Card is the wire form of a card.
type Card struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Labels      []domain.Label `json:"labels"`
	DueDate     string         `json:"dueDate,omitempty"`
	Position    int            `json:"position"`
	CreatedBy   string         `json:"createdBy"`
	CreatedAt   string         `json:"createdAt"`
	UpdatedAt   string         `json:"updatedAt"`
}

// NewCard converts a domain card to its wire form.
func NewCard(c *domain.Card) *Card {
	if c == nil {
		return nil
	}
	out := &Card{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Labels:      c.Labels,
		Position:    c.Position,
		CreatedBy:   c.CreatedBy,
		CreatedAt:   FormatTime(c.CreatedAt),
		UpdatedAt:   FormatTime(c.UpdatedAt),
	}
	if out.Labels == nil {
		out.Labels = []domain.Label{}
	}
	if c.DueDate != nil {
		out.DueDate = FormatTime(*c.DueDate)
	}
	return out
}

type wireList struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Cards     []*Card `json:"cards"`
	Position  int     `json:"position"`
	CreatedBy string  `json:"createdBy"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

type wireMember struct {
	User     UserSummary `json:"user"`
	Role     domain.Role `json:"role"`
	JoinedAt string      `json:"joinedAt"`
}

type wireBoard struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Lists       []wireList   `json:"lists"`
	Members     []wireMember `json:"members"`
	CreatedBy   UserSummary  `json:"createdBy"`
	IsPublic    bool         `json:"isPublic"`
	IsStarred   bool         `json:"isStarred"`
	Version     int64        `json:"version"`
	CreatedAt   string       `json:"createdAt"`
	UpdatedAt   string       `json:"updatedAt"`
}

// MarshalJSON writes the board with timestamps in TimeLayout. Decoding uses
// the default rules, which accept that layout.
func (b Board) MarshalJSON() ([]byte, error) {
	out := wireBoard{
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		Lists:       make([]wireList, len(b.Lists)),
		Members:     make([]wireMember, len(b.Members)),
		CreatedBy:   b.CreatedBy,
		IsPublic:    b.IsPublic,
		IsStarred:   b.IsStarred,
		Version:     b.Version,
		CreatedAt:   FormatTime(b.CreatedAt),
		UpdatedAt:   FormatTime(b.UpdatedAt),
	}
	for i, l := range b.Lists {
		wl := wireList{
			ID:        l.ID,
			Title:     l.Title,
			Cards:     make([]*Card, len(l.Cards)),
			Position:  l.Position,
			CreatedBy: l.CreatedBy,
			CreatedAt: FormatTime(l.CreatedAt),
			UpdatedAt: FormatTime(l.UpdatedAt),
		}
		for j, c := range l.Cards {
			wl.Cards[j] = NewCard(c)
		}
		out.Lists[i] = wl
	}
	for i, m := range b.Members {
		out.Members[i] = wireMember{User: m.User, Role: m.Role, JoinedAt: FormatTime(m.JoinedAt)}
	}
	return sonic.Marshal(out)
}
