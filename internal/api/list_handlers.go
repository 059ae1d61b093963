package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerListRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "addList",
		Method:        http.MethodPost,
		Path:          "/api/board/{id}/lists",
		Summary:       "Add list",
		Description:   "Appends a list to the board",
		Tags:          []string{"Lists"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, s.handleAddList)

	huma.Register(s.api, huma.Operation{
		OperationID: "moveList",
		Method:      http.MethodPost,
		Path:        "/api/board/{id}/lists/move",
		Summary:     "Move list",
		Description: "Moves the list at fromIndex to toIndex and renumbers all lists",
		Tags:        []string{"Lists"},
		Security:    bearerSecurity,
	}, s.handleMoveList)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateList",
		Method:      http.MethodPut,
		Path:        "/api/board/{id}/lists/{listId}",
		Summary:     "Rename list",
		Tags:        []string{"Lists"},
		Security:    bearerSecurity,
	}, s.handleUpdateList)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteList",
		Method:      http.MethodDelete,
		Path:        "/api/board/{id}/lists/{listId}",
		Summary:     "Delete list",
		Description: "Removes a list with its cards and renumbers the remaining lists",
		Tags:        []string{"Lists"},
		Security:    bearerSecurity,
	}, s.handleDeleteList)
}

// === DTOs ===

// ListTitleRequest is the request body for adding or renaming a list.
type ListTitleRequest struct {
	Title string `json:"title,omitempty" doc:"List title"`
}

// AddListInput wraps the add list request for Huma.
type AddListInput struct {
	ID      string `path:"id" doc:"Board ID"`
	IfMatch string `header:"If-Match" doc:"Board version the change is based on"`
	Body    ListTitleRequest
}

// UpdateListInput wraps the rename list request for Huma.
type UpdateListInput struct {
	ID      string `path:"id" doc:"Board ID"`
	ListID  string `path:"listId" doc:"List ID"`
	IfMatch string `header:"If-Match" doc:"Board version the change is based on"`
	Body    ListTitleRequest
}

// ListInput identifies a list.
type ListInput struct {
	ID      string `path:"id" doc:"Board ID"`
	ListID  string `path:"listId" doc:"List ID"`
	IfMatch string `header:"If-Match" doc:"Board version the change is based on"`
}

// MoveListRequest is the request body for moving a list.
type MoveListRequest struct {
	FromIndex int `json:"fromIndex" minimum:"0" doc:"Current position of the list"`
	ToIndex   int `json:"toIndex" minimum:"0" doc:"Target position of the list"`
}

// MoveListInput wraps the move list request for Huma.
type MoveListInput struct {
	ID      string `path:"id" doc:"Board ID"`
	IfMatch string `header:"If-Match" doc:"Board version the change is based on"`
	Body    MoveListRequest
}

// === Handlers ===

func (s *Server) handleAddList(ctx context.Context, input *AddListInput) (*BoardOutput, error) {
	ref, err := boardRef(ctx, input.ID, input.IfMatch)
	if err != nil {
		return nil, err
	}
	board, err := s.services.Board.AddList(ctx, ref, input.Body.Title)
	if err != nil {
		return nil, err
	}
	return boardOutput(board, http.StatusCreated, msgListAdded), nil
}

func (s *Server) handleUpdateList(ctx context.Context, input *UpdateListInput) (*BoardOutput, error) {
	ref, err := boardRef(ctx, input.ID, input.IfMatch)
	if err != nil {
		return nil, err
	}
	board, err := s.services.Board.UpdateList(ctx, ref, input.ListID, input.Body.Title)
	if err != nil {
		return nil, err
	}
	return boardOutput(board, http.StatusOK, msgListUpdated), nil
}

func (s *Server) handleDeleteList(ctx context.Context, input *ListInput) (*BoardOutput, error) {
	ref, err := boardRef(ctx, input.ID, input.IfMatch)
	if err != nil {
		return nil, err
	}
	board, err := s.services.Board.DeleteList(ctx, ref, input.ListID)
	if err != nil {
		return nil, err
	}
	return boardOutput(board, http.StatusOK, msgListDeleted), nil
}

func (s *Server) handleMoveList(ctx context.Context, input *MoveListInput) (*BoardOutput, error) {
	ref, err := boardRef(ctx, input.ID, input.IfMatch)
	if err != nil {
		return nil, err
	}
	board, err := s.services.Board.MoveList(ctx, ref, input.Body.FromIndex, input.Body.ToIndex)
	if err != nil {
		return nil, err
	}
	return boardOutput(board, http.StatusOK, msgListMoved), nil
}
