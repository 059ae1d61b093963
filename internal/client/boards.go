package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/dto"
)

type boardData struct {
	Board *dto.Board `json:"board"`
}

type boardsData struct {
	Boards []*dto.Board `json:"boards"`
}

// BoardUpdate changes board fields. Nil fields are left unchanged.
// A non-zero IfMatch fails the update with 409 unless the stored version matches.
type BoardUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	IsPublic    *bool   `json:"isPublic,omitempty"`
	IsStarred   *bool   `json:"isStarred,omitempty"`
	IfMatch     int64   `json:"-"`
}

// CardMatch is a search result.
type CardMatch struct {
	ListID string       `json:"listId"`
	Card   *domain.Card `json:"card"`
}

func boardPath(boardID string, parts ...string) string {
	p := "/api/board/" + url.PathEscape(boardID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func (c *Client) board(ctx context.Context, req request) (*dto.Board, error) {
	var out boardData
	if _, err := call(ctx, c, req, &out); err != nil {
		return nil, err
	}
	return out.Board, nil
}

// ListBoards returns the boards the caller created or belongs to.
func (c *Client) ListBoards(ctx context.Context) ([]*dto.Board, error) {
	var out boardsData
	if _, err := call(ctx, c, request{method: http.MethodGet, path: "/api/board"}, &out); err != nil {
		return nil, err
	}
	return out.Boards, nil
}

// CreateBoard creates a board with the default lists.
func (c *Client) CreateBoard(ctx context.Context, title, description string) (*dto.Board, error) {
	return c.board(ctx, request{
		method: http.MethodPost,
		path:   "/api/board",
		body:   map[string]string{"title": title, "description": description},
	})
}

// GetBoard fetches one board.
func (c *Client) GetBoard(ctx context.Context, boardID string) (*dto.Board, error) {
	return c.board(ctx, request{method: http.MethodGet, path: boardPath(boardID)})
}

// UpdateBoard changes board fields.
func (c *Client) UpdateBoard(ctx context.Context, boardID string, u BoardUpdate) (*dto.Board, error) {
	return c.board(ctx, request{method: http.MethodPut, path: boardPath(boardID), body: u, ifMatch: u.IfMatch})
}

// DeleteBoard deletes a board. Only its owner may do this.
func (c *Client) DeleteBoard(ctx context.Context, boardID string) error {
	_, err := call[struct{}](ctx, c, request{method: http.MethodDelete, path: boardPath(boardID)}, nil)
	return err
}

// ToggleStar flips the board's starred flag.
func (c *Client) ToggleStar(ctx context.Context, boardID string) (*dto.Board, error) {
	return c.board(ctx, request{method: http.MethodPost, path: boardPath(boardID, "star")})
}

// AddMember gives the user with email access to the board.
func (c *Client) AddMember(ctx context.Context, boardID, email string, role domain.Role) (*dto.Board, error) {
	return c.board(ctx, request{
		method: http.MethodPost,
		path:   boardPath(boardID, "members"),
		body:   map[string]string{"email": email, "role": string(role)},
	})
}

// RemoveMember revokes a member's access.
func (c *Client) RemoveMember(ctx context.Context, boardID, userID string) (*dto.Board, error) {
	return c.board(ctx, request{method: http.MethodDelete, path: boardPath(boardID, "members", userID)})
}

// AddList appends a list.
func (c *Client) AddList(ctx context.Context, boardID, title string) (*dto.Board, error) {
	return c.board(ctx, request{
		method: http.MethodPost,
		path:   boardPath(boardID, "lists"),
		body:   map[string]string{"title": title},
	})
}

// RenameList changes a list title.
func (c *Client) RenameList(ctx context.Context, boardID, listID, title string) (*dto.Board, error) {
	return c.board(ctx, request{
		method: http.MethodPut,
		path:   boardPath(boardID, "lists", listID),
		body:   map[string]string{"title": title},
	})
}

// DeleteList removes a list and its cards.
func (c *Client) DeleteList(ctx context.Context, boardID, listID string) (*dto.Board, error) {
	return c.board(ctx, request{method: http.MethodDelete, path: boardPath(boardID, "lists", listID)})
}

// MoveList reorders the board's lists.
func (c *Client) MoveList(ctx context.Context, boardID string, from, to int) (*dto.Board, error) {
	return c.board(ctx, request{
		method: http.MethodPost,
		path:   boardPath(boardID, "lists", "move"),
		body:   map[string]int{"fromIndex": from, "toIndex": to},
	})
}

// AddCard appends a card to a list.
func (c *Client) AddCard(ctx context.Context, boardID, listID, title, description string) (*dto.Board, error) {
	body := map[string]string{"title": title}
	if description != "" {
		body["description"] = description
	}
	return c.board(ctx, request{
		method: http.MethodPost,
		path:   boardPath(boardID, "lists", listID, "cards"),
		body:   body,
	})
}

// UpdateCard sends a partial card update. Fields not Set in patch are omitted
// from the request; Set+Null fields are sent as null.
func (c *Client) UpdateCard(ctx context.Context, boardID, listID, cardID string, patch domain.CardPatch) (*dto.Board, error) {
	return c.board(ctx, request{
		method: http.MethodPut,
		path:   boardPath(boardID, "lists", listID, "cards", cardID),
		body:   patchBody(patch),
	})
}

func patchBody(p domain.CardPatch) map[string]any {
	body := make(map[string]any, 5)
	put := func(key string, set, null bool, v any) {
		switch {
		case !set:
		case null:
			body[key] = nil
		default:
			body[key] = v
		}
	}
	put("title", p.Title.Set, p.Title.Null, p.Title.Value)
	put("description", p.Description.Set, p.Description.Null, p.Description.Value)
	put("labels", p.Labels.Set, p.Labels.Null, p.Labels.Value)
	put("dueDate", p.DueDate.Set, p.DueDate.Null || p.DueDate.Value.IsZero(), dto.FormatTime(p.DueDate.Value))
	put("position", p.Position.Set, p.Position.Null, p.Position.Value)
	return body
}

// DeleteCard removes a card.
func (c *Client) DeleteCard(ctx context.Context, boardID, listID, cardID string) (*dto.Board, error) {
	return c.board(ctx, request{method: http.MethodDelete, path: boardPath(boardID, "lists", listID, "cards", cardID)})
}

// MoveCard moves a card to toIndex in toListID.
func (c *Client) MoveCard(ctx context.Context, boardID, fromListID, cardID, toListID string, toIndex int) (*dto.Board, error) {
	return c.board(ctx, request{
		method: http.MethodPost,
		path:   boardPath(boardID, "lists", fromListID, "cards", cardID, "move"),
		body:   map[string]any{"toListId": toListID, "toIndex": toIndex},
	})
}

// AddLabel attaches a label to a card. An empty color is derived from text by the server.
func (c *Client) AddLabel(ctx context.Context, boardID, listID, cardID, text, color string) (*dto.Board, error) {
	body := map[string]string{"text": text}
	if color != "" {
		body["color"] = color
	}
	return c.board(ctx, request{
		method: http.MethodPost,
		path:   boardPath(boardID, "lists", listID, "cards", cardID, "labels"),
		body:   body,
	})
}

// RemoveLabel detaches a label from a card.
func (c *Client) RemoveLabel(ctx context.Context, boardID, listID, cardID, labelID string) (*dto.Board, error) {
	return c.board(ctx, request{
		method: http.MethodDelete,
		path:   boardPath(boardID, "lists", listID, "cards", cardID, "labels", labelID),
	})
}

// AvailableLabels returns the distinct labels used on a board.
func (c *Client) AvailableLabels(ctx context.Context, boardID string) ([]domain.Label, error) {
	var out struct {
		Labels []domain.Label `json:"labels"`
	}
	if _, err := call(ctx, c, request{method: http.MethodGet, path: boardPath(boardID, "labels")}, &out); err != nil {
		return nil, err
	}
	return out.Labels, nil
}

// SearchCards finds cards by text and/or label id.
func (c *Client) SearchCards(ctx context.Context, boardID, query, labelID string) ([]CardMatch, error) {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	if labelID != "" {
		q.Set("label", labelID)
	}
	var out struct {
		Cards []CardMatch `json:"cards"`
	}
	if _, err := call(ctx, c, request{method: http.MethodGet, path: boardPath(boardID, "cards"), query: q}, &out); err != nil {
		return nil, err
	}
	return out.Cards, nil
}
