package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/service"
)

func (s *Server) registerMemberRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "addBoardMember",
		Method:      http.MethodPost,
		Path:        "/api/board/{id}/members",
		Summary:     "Add member",
		Description: "Adds a registered user to the board. Only the owner can add admins.",
		Tags:        []string{"Members"},
		Security:    bearerSecurity,
	}, s.handleAddMember)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeBoardMember",
		Method:      http.MethodDelete,
		Path:        "/api/board/{id}/members/{userId}",
		Summary:     "Remove member",
		Description: "Removes a member. Members may remove themselves; the owner cannot be removed.",
		Tags:        []string{"Members"},
		Security:    bearerSecurity,
	}, s.handleRemoveMember)
}

// === DTOs ===

// AddMemberRequest is the request body for adding a member.
type AddMemberRequest struct {
	Email string      `json:"email,omitempty" doc:"Email of a registered user"`
	Role  domain.Role `json:"role,omitempty" enum:"admin,member" doc:"Role to grant (default member)"`
}

// AddMemberInput wraps the add member request for Huma.
type AddMemberInput struct {
	ID      string `path:"id" doc:"Board ID"`
	IfMatch string `header:"If-Match" doc:"Board version the change is based on"`
	Body    AddMemberRequest
}

// RemoveMemberInput identifies the member to remove.
type RemoveMemberInput struct {
	ID      string `path:"id" doc:"Board ID"`
	UserID  string `path:"userId" doc:"Member user ID"`
	IfMatch string `header:"If-Match" doc:"Board version the change is based on"`
}

// === Handlers ===

func (s *Server) handleAddMember(ctx context.Context, input *AddMemberInput) (*BoardOutput, error) {
	ref, err := boardRef(ctx, input.ID, input.IfMatch)
	if err != nil {
		return nil, err
	}
	board, err := s.services.Board.AddMember(ctx, ref, service.AddMemberRequest{
		Email: input.Body.Email,
		Role:  input.Body.Role,
	})
	if err != nil {
		return nil, err
	}
	return boardOutput(board, http.StatusOK, msgMemberAdded), nil
}

func (s *Server) handleRemoveMember(ctx context.Context, input *RemoveMemberInput) (*BoardOutput, error) {
	ref, err := boardRef(ctx, input.ID, input.IfMatch)
	if err != nil {
		return nil, err
	}
	board, err := s.services.Board.RemoveMember(ctx, ref, input.UserID)
	if err != nil {
		return nil, err
	}
	return boardOutput(board, http.StatusOK, msgMemberGone), nil
}
