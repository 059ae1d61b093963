package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/service"
)

func (s *Server) registerCardRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "addCard",
		Method:        http.MethodPost,
		Path:          "/api/board/{id}/lists/{listId}/cards",
		Summary:       "Add card",
		Description:   "Appends a card to a list",
		Tags:          []string{"Cards"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, s.handleAddCard)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateCard",
		Method:      http.MethodPut,
		Path:        "/api/board/{id}/lists/{listId}/cards/{cardId}",
		Summary:     "Update card",
		Description: "Partially updates a card. Absent fields are unchanged; null or empty description, labels and dueDate clear them.",
		Tags:        []string{"Cards"},
		Security:    bearerSecurity,
	}, s.handleUpdateCard)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteCard",
		Method:      http.MethodDelete,
		Path:        "/api/board/{id}/lists/{listId}/cards/{cardId}",
		Summary:     "Delete card",
		Description: "Removes a card and renumbers the remaining cards of its list",
		Tags:        []string{"Cards"},
		Security:    bearerSecurity,
	}, s.handleDeleteCard)

	huma.Register(s.api, huma.Operation{
		OperationID: "moveCard",
		Method:      http.MethodPost,
		Path:        "/api/board/{id}/lists/{listId}/cards/{cardId}/move",
		Summary:     "Move card",
		Description: "Moves a card within its list or to another list",
		Tags:        []string{"Cards"},
		Security:    bearerSecurity,
	}, s.handleMoveCard)

	huma.Register(s.api, huma.Operation{
		OperationID: "addCardLabel",
		Method:      http.MethodPost,
		Path:        "/api/board/{id}/lists/{listId}/cards/{cardId}/labels",
		Summary:     "Add label",
		Description: "Attaches a label to a card. The color defaults to one derived from the text.",
		Tags:        []string{"Cards"},
		Security:    bearerSecurity,
	}, s.handleAddLabel)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeCardLabel",
		Method:      http.MethodDelete,
		Path:        "/api/board/{id}/lists/{listId}/cards/{cardId}/labels/{labelId}",
		Summary:     "Remove label",
		Tags:        []string{"Cards"},
		Security:    bearerSecurity,
	}, s.handleRemoveLabel)
}

// === DTOs ===

// AddCardRequest is the request body for adding a card.
type AddCardRequest struct {
	Title       string `json:"title,omitempty" doc:"Card title"`
	Description string `json:"description,omitempty" doc:"Card description"`
}

// AddCardInput wraps the add card request for Huma.
type AddCardInput struct {
	ID      string `path:"id" doc:"Board ID"`
	ListID  string `path:"listId" doc:"List ID"`
	IfMatch string `header:"If-Match" doc:"Board version the change is based on"`
	Body    AddCardRequest
}

// LabelRequest is a label in a card update or add label request.
type LabelRequest struct {
	ID    string `json:"id,omitempty" doc:"Label ID; minted when absent"`
	Text  string `json:"text,omitempty" doc:"Label text"`
	Color string `json:"color,omitempty" doc:"Palette name or #rrggbb"`
}

// UpdateCardRequest is the partial card update body.
type UpdateCardRequest struct {
	Title       OmittableNullable[string]         `json:"title,omitempty" doc:"New title; null or blank is rejected"`
	Description OmittableNullable[string]         `json:"description,omitempty" doc:"New description; null or empty clears"`
	Labels      OmittableNullable[[]LabelRequest] `json:"labels,omitempty" doc:"Replaces all labels; null clears"`
	DueDate     OmittableNullable[FlexTime]       `json:"dueDate,omitempty" doc:"Due date; null or empty clears"`
	Position    OmittableNullable[int]            `json:"position,omitempty" doc:"New index within the list"`
}

// UpdateCardInput wraps the card update for Huma.
type UpdateCardInput struct {
	ID      string `path:"id" doc:"Board ID"`
	ListID  string `path:"listId" doc:"List ID"`
	CardID  string `path:"cardId" doc:"Card ID"`
	IfMatch string `header:"If-Match" doc:"Board version the change is based on"`
	Body    UpdateCardRequest
}

// CardInput identifies a card.
type CardInput struct {
	ID      string `path:"id" doc:"Board ID"`
	ListID  string `path:"listId" doc:"List ID"`
	CardID  string `path:"cardId" doc:"Card ID"`
	IfMatch string `header:"If-Match" doc:"Board version the change is based on"`
}

// MoveCardRequest is the request body for moving a card.
type MoveCardRequest struct {
	ToListID string `json:"toListId" minLength:"1" doc:"Destination list ID"`
	ToIndex  int    `json:"toIndex" minimum:"0" doc:"Index in the destination list"`
}

// MoveCardInput wraps the move card request for Huma.
type MoveCardInput struct {
	ID      string `path:"id" doc:"Board ID"`
	ListID  string `path:"listId" doc:"List currently holding the card"`
	CardID  string `path:"cardId" doc:"Card ID"`
	IfMatch string `header:"If-Match" doc:"Board version the change is based on"`
	Body    MoveCardRequest
}

// AddLabelInput wraps the add label request for Huma.
type AddLabelInput struct {
	ID      string `path:"id" doc:"Board ID"`
	ListID  string `path:"listId" doc:"List ID"`
	CardID  string `path:"cardId" doc:"Card ID"`
	IfMatch string `header:"If-Match" doc:"Board version the change is based on"`
	Body    LabelRequest
}

// RemoveLabelInput identifies a card label.
type RemoveLabelInput struct {
	ID      string `path:"id" doc:"Board ID"`
	ListID  string `path:"listId" doc:"List ID"`
	CardID  string `path:"cardId" doc:"Card ID"`
	LabelID string `path:"labelId" doc:"Label ID"`
	IfMatch string `header:"If-Match" doc:"Board version the change is based on"`
}

// === Handlers ===

func (s *Server) handleAddCard(ctx context.Context, input *AddCardInput) (*BoardOutput, error) {
	ref, err := boardRef(ctx, input.ID, input.IfMatch)
	if err != nil {
		return nil, err
	}
	board, err := s.services.Board.AddCard(ctx, ref, input.ListID, service.AddCardRequest{
		Title:       input.Body.Title,
		Description: input.Body.Description,
	})
	if err != nil {
		return nil, err
	}
	return boardOutput(board, http.StatusCreated, msgCardAdded), nil
}

func (s *Server) handleUpdateCard(ctx context.Context, input *UpdateCardInput) (*BoardOutput, error) {
	ref, err := boardRef(ctx, input.ID, input.IfMatch)
	if err != nil {
		return nil, err
	}
	board, err := s.services.Board.UpdateCard(ctx, ref, input.ListID, input.CardID, input.Body.patch())
	if err != nil {
		return nil, err
	}
	return boardOutput(board, http.StatusOK, msgCardUpdated), nil
}

func (s *Server) handleDeleteCard(ctx context.Context, input *CardInput) (*BoardOutput, error) {
	ref, err := boardRef(ctx, input.ID, input.IfMatch)
	if err != nil {
		return nil, err
	}
	board, err := s.services.Board.DeleteCard(ctx, ref, input.ListID, input.CardID)
	if err != nil {
		return nil, err
	}
	return boardOutput(board, http.StatusOK, msgCardDeleted), nil
}

func (s *Server) handleMoveCard(ctx context.Context, input *MoveCardInput) (*BoardOutput, error) {
	ref, err := boardRef(ctx, input.ID, input.IfMatch)
	if err != nil {
		return nil, err
	}
	board, err := s.services.Board.MoveCard(ctx, ref, input.ListID, input.CardID, input.Body.ToListID, input.Body.ToIndex)
	if err != nil {
		return nil, err
	}
	return boardOutput(board, http.StatusOK, msgCardMoved), nil
}

func (s *Server) handleAddLabel(ctx context.Context, input *AddLabelInput) (*BoardOutput, error) {
	ref, err := boardRef(ctx, input.ID, input.IfMatch)
	if err != nil {
		return nil, err
	}
	board, err := s.services.Board.AddLabel(ctx, ref, input.ListID, input.CardID, service.LabelRequest{
		Text:  input.Body.Text,
		Color: input.Body.Color,
	})
	if err != nil {
		return nil, err
	}
	return boardOutput(board, http.StatusOK, msgLabelAdded), nil
}

func (s *Server) handleRemoveLabel(ctx context.Context, input *RemoveLabelInput) (*BoardOutput, error) {
	ref, err := boardRef(ctx, input.ID, input.IfMatch)
	if err != nil {
		return nil, err
	}
	board, err := s.services.Board.RemoveLabel(ctx, ref, input.ListID, input.CardID, input.LabelID)
	if err != nil {
		return nil, err
	}
	return boardOutput(board, http.StatusOK, msgLabelRemoved), nil
}

// === Helpers ===

// patch converts the request to a domain patch. An empty dueDate clears it.
func (r UpdateCardRequest) patch() domain.CardPatch {
	p := domain.CardPatch{
		Title:       r.Title.Optional(),
		Description: r.Description.Optional(),
		Position:    r.Position.Optional(),
	}

	if r.Labels.Sent {
		p.Labels = domain.Optional[[]domain.Label]{Set: true, Null: r.Labels.Null}
		if !r.Labels.Null {
			labels := make([]domain.Label, 0, len(r.Labels.Value))
			for _, l := range r.Labels.Value {
				labels = append(labels, domain.Label{ID: l.ID, Text: l.Text, Color: l.Color})
			}
			p.Labels.Value = labels
		}
	}

	if r.DueDate.Sent {
		if r.DueDate.Null || r.DueDate.Value.IsZero() {
			p.DueDate = domain.Null[time.Time]()
		} else {
			p.DueDate = domain.Some(r.DueDate.Value.UTC())
		}
	}

	return p
}
