package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/dto"
	domainerrors "github.com/taskboard/taskboard-server/internal/errors"
	"github.com/taskboard/taskboard-server/internal/service"
)

// ErrInvalidIfMatch is returned for an If-Match header that is not a board version.
var ErrInvalidIfMatch = domainerrors.Validation("If-Match must be a board version")

var bearerSecurity = []map[string][]string{{"bearer": {}}}

func (s *Server) registerBoardRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBoards",
		Method:      http.MethodGet,
		Path:        "/api/board",
		Summary:     "List boards",
		Description: "Returns the boards the user created or is a member of, most recently updated first",
		Tags:        []string{"Boards"},
		Security:    bearerSecurity,
	}, s.handleListBoards)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBoard",
		Method:        http.MethodPost,
		Path:          "/api/board",
		Summary:       "Create board",
		Description:   "Creates a board with the default lists. The caller becomes its owner.",
		Tags:          []string{"Boards"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBoard)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBoard",
		Method:      http.MethodGet,
		Path:        "/api/board/{id}",
		Summary:     "Get board",
		Description: "Returns a board with members and creator resolved",
		Tags:        []string{"Boards"},
		Security:    bearerSecurity,
	}, s.handleGetBoard)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBoard",
		Method:      http.MethodPut,
		Path:        "/api/board/{id}",
		Summary:     "Update board",
		Description: "Updates board fields. Requires owner or admin role.",
		Tags:        []string{"Boards"},
		Security:    bearerSecurity,
	}, s.handleUpdateBoard)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteBoard",
		Method:      http.MethodDelete,
		Path:        "/api/board/{id}",
		Summary:     "Delete board",
		Description: "Deletes a board. Only the owner can delete it.",
		Tags:        []string{"Boards"},
		Security:    bearerSecurity,
	}, s.handleDeleteBoard)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleBoardStar",
		Method:      http.MethodPost,
		Path:        "/api/board/{id}/star",
		Summary:     "Toggle star",
		Description: "Flips the starred flag of a board",
		Tags:        []string{"Boards"},
		Security:    bearerSecurity,
	}, s.handleToggleStar)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBoardLabels",
		Method:      http.MethodGet,
		Path:        "/api/board/{id}/labels",
		Summary:     "Available labels",
		Description: "Returns the distinct labels used on the board's cards",
		Tags:        []string{"Boards"},
		Security:    bearerSecurity,
	}, s.handleListLabels)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchBoardCards",
		Method:      http.MethodGet,
		Path:        "/api/board/{id}/cards",
		Summary:     "Search cards",
		Description: "Finds cards by text and/or label id",
		Tags:        []string{"Boards"},
		Security:    bearerSecurity,
	}, s.handleSearchCards)
}

// === DTOs ===

// BoardInput identifies a board.
type BoardInput struct {
	ID string `path:"id" doc:"Board ID"`
}

// BoardMutationInput identifies a board for a body-less mutation.
type BoardMutationInput struct {
	ID      string `path:"id" doc:"Board ID"`
	IfMatch string `header:"If-Match" doc:"Board version the change is based on"`
}

// CreateBoardRequest is the request body for creating a board.
type CreateBoardRequest struct {
	Title       string `json:"title,omitempty" doc:"Board title"`
	Description string `json:"description,omitempty" doc:"Board description"`
}

// CreateBoardInput wraps the create board request for Huma.
type CreateBoardInput struct {
	Body CreateBoardRequest
}

// UpdateBoardRequest is the request body for updating a board.
type UpdateBoardRequest struct {
	Title       *string `json:"title,omitempty" doc:"New title; blank is ignored"`
	Description *string `json:"description,omitempty" doc:"New description"`
	IsPublic    *bool   `json:"isPublic,omitempty" doc:"Public flag"`
	IsStarred   *bool   `json:"isStarred,omitempty" doc:"Starred flag"`
}

// UpdateBoardInput wraps the update board request for Huma.
type UpdateBoardInput struct {
	ID      string `path:"id" doc:"Board ID"`
	IfMatch string `header:"If-Match" doc:"Board version the change is based on"`
	Body    UpdateBoardRequest
}

// SearchCardsInput contains the card search query.
type SearchCardsInput struct {
	ID    string `path:"id" doc:"Board ID"`
	Q     string `query:"q" doc:"Text to search in titles, descriptions and label texts"`
	Label string `query:"label" doc:"Only cards carrying this label id"`
}

// BoardBody is the data of every board-returning response.
type BoardBody struct {
	Board   *dto.Board `json:"board" doc:"Board with members and creator resolved"`
	message string
}

func (b BoardBody) envelope() APIEnvelope {
	return APIEnvelope{Message: b.message, Data: b}
}

// BoardOutput wraps a board response for Huma.
type BoardOutput struct {
	Status int
	ETag   string `header:"ETag" doc:"Board version"`
	Body   BoardBody
}

// BoardListBody is the data of the board list response.
type BoardListBody struct {
	Boards []*dto.Board `json:"boards"`
}

// BoardListOutput wraps the board list for Huma.
type BoardListOutput struct {
	Body BoardListBody
}

// LabelListBody is the data of the available labels response.
type LabelListBody struct {
	Labels []domain.Label `json:"labels"`
}

// LabelListOutput wraps the labels for Huma.
type LabelListOutput struct {
	Body LabelListBody
}

// CardMatchResponse is a card found by a search and the list holding it.
type CardMatchResponse struct {
	ListID string    `json:"listId"`
	Card   *dto.Card `json:"card"`
}

// CardSearchBody is the data of the card search response.
type CardSearchBody struct {
	Cards []CardMatchResponse `json:"cards"`
}

// CardSearchOutput wraps search results for Huma.
type CardSearchOutput struct {
	Body CardSearchBody
}

// === Handlers ===

func (s *Server) handleListBoards(ctx context.Context, _ *struct{}) (*BoardListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	boards, err := s.services.Board.ListBoards(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &BoardListOutput{Body: BoardListBody{Boards: boards}}, nil
}

func (s *Server) handleCreateBoard(ctx context.Context, input *CreateBoardInput) (*BoardOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	board, err := s.services.Board.CreateBoard(ctx, userID, service.CreateBoardRequest{
		Title:       input.Body.Title,
		Description: input.Body.Description,
	})
	if err != nil {
		return nil, err
	}
	return boardOutput(board, http.StatusCreated, msgBoardCreated), nil
}

func (s *Server) handleGetBoard(ctx context.Context, input *BoardInput) (*BoardOutput, error) {
	ref, err := boardRef(ctx, input.ID, "")
	if err != nil {
		return nil, err
	}
	board, err := s.services.Board.GetBoard(ctx, ref)
	if err != nil {
		return nil, err
	}
	return boardOutput(board, http.StatusOK, ""), nil
}

func (s *Server) handleUpdateBoard(ctx context.Context, input *UpdateBoardInput) (*BoardOutput, error) {
	ref, err := boardRef(ctx, input.ID, input.IfMatch)
	if err != nil {
		return nil, err
	}
	board, err := s.services.Board.UpdateBoard(ctx, ref, service.UpdateBoardRequest{
		Title:       input.Body.Title,
		Description: input.Body.Description,
		IsPublic:    input.Body.IsPublic,
		IsStarred:   input.Body.IsStarred,
	})
	if err != nil {
		return nil, err
	}
	return boardOutput(board, http.StatusOK, msgBoardUpdated), nil
}

func (s *Server) handleDeleteBoard(ctx context.Context, input *BoardMutationInput) (*MessageOutput, error) {
	ref, err := boardRef(ctx, input.ID, input.IfMatch)
	if err != nil {
		return nil, err
	}
	if err := s.services.Board.DeleteBoard(ctx, ref); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageBody{message: msgBoardDeleted}}, nil
}

func (s *Server) handleToggleStar(ctx context.Context, input *BoardMutationInput) (*BoardOutput, error) {
	ref, err := boardRef(ctx, input.ID, input.IfMatch)
	if err != nil {
		return nil, err
	}
	board, err := s.services.Board.ToggleStar(ctx, ref)
	if err != nil {
		return nil, err
	}
	return boardOutput(board, http.StatusOK, msgBoardStarred), nil
}

func (s *Server) handleListLabels(ctx context.Context, input *BoardInput) (*LabelListOutput, error) {
	ref, err := boardRef(ctx, input.ID, "")
	if err != nil {
		return nil, err
	}
	labels, err := s.services.Board.AvailableLabels(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &LabelListOutput{Body: LabelListBody{Labels: labels}}, nil
}

func (s *Server) handleSearchCards(ctx context.Context, input *SearchCardsInput) (*CardSearchOutput, error) {
	ref, err := boardRef(ctx, input.ID, "")
	if err != nil {
		return nil, err
	}
	matches, err := s.services.Board.SearchCards(ctx, ref, service.CardQuery{
		Text:    input.Q,
		LabelID: input.Label,
	})
	if err != nil {
		return nil, err
	}
	cards := make([]CardMatchResponse, 0, len(matches))
	for _, m := range matches {
		cards = append(cards, CardMatchResponse{ListID: m.ListID, Card: dto.NewCard(m.Card)})
	}
	return &CardSearchOutput{Body: CardSearchBody{Cards: cards}}, nil
}

// === Helpers ===

// boardRef builds the service reference for the authenticated user.
func boardRef(ctx context.Context, boardID, ifMatch string) (service.Ref, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return service.Ref{}, err
	}
	version, err := parseIfMatch(ifMatch)
	if err != nil {
		return service.Ref{}, err
	}
	return service.Ref{BoardID: boardID, UserID: userID, IfMatch: version}, nil
}

// parseIfMatch reads a board version from an If-Match header. Empty and "*" mean unpinned.
func parseIfMatch(header string) (int64, error) {
	v := strings.TrimSpace(header)
	if v == "" || v == "*" {
		return 0, nil
	}
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, `"`)
	version, err := strconv.ParseInt(v, 10, 64)
	if err != nil || version < 1 {
		return 0, ErrInvalidIfMatch
	}
	return version, nil
}

// formatETag renders a board version as a strong entity tag.
func formatETag(version int64) string {
	return strconv.Quote(strconv.FormatInt(version, 10))
}

func boardOutput(board *dto.Board, status int, message string) *BoardOutput {
	return &BoardOutput{
		Status: status,
		ETag:   formatETag(board.Version),
		Body:   BoardBody{Board: board, message: message},
	}
}
