package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskboard/taskboard-server/internal/domain"
	domainerrors "github.com/taskboard/taskboard-server/internal/errors"
)

func TestBoardService_AddMember(t *testing.T) {
	svc, _ := setupBoardTest(t, BoardServiceConfig{})
	board := createBoard(t, svc)
	ctx := context.Background()
	owner := Ref{BoardID: board.ID, UserID: "user-alice"}

	updated, err := svc.AddMember(ctx, owner, AddMemberRequest{Email: " BOB@example.com "})
	require.NoError(t, err)
	require.Len(t, updated.Members, 2)
	assert.Equal(t, "user-bob", updated.Members[1].User.ID)
	assert.Equal(t, "bob", updated.Members[1].User.Name)
	assert.Equal(t, domain.RoleMember, updated.Members[1].Role)

	_, err = svc.AddMember(ctx, owner, AddMemberRequest{Email: "bob@example.com"})
	assertCode(t, err, domainerrors.CodeAlreadyExists)

	_, err = svc.AddMember(ctx, owner, AddMemberRequest{Email: "nobody@example.com"})
	assertCode(t, err, domainerrors.CodeNotFound)
	assert.Equal(t, "User not found", err.Error())

	_, err = svc.AddMember(ctx, owner, AddMemberRequest{Email: "carol@example.com", Role: domain.RoleOwner})
	assertCode(t, err, domainerrors.CodeValidation)
}

func TestBoardService_AddMember_Roles(t *testing.T) {
	svc, _ := setupBoardTest(t, BoardServiceConfig{})
	board := createBoard(t, svc)
	ctx := context.Background()
	addMember(t, svc, board.ID, "bob@example.com", domain.RoleAdmin)

	admin := Ref{BoardID: board.ID, UserID: "user-bob"}
	_, err := svc.AddMember(ctx, admin, AddMemberRequest{Email: "carol@example.com", Role: domain.RoleAdmin})
	assertCode(t, err, domainerrors.CodeForbidden)

	updated, err := svc.AddMember(ctx, admin, AddMemberRequest{Email: "carol@example.com"})
	require.NoError(t, err)
	assert.Len(t, updated.Members, 3)

	member := Ref{BoardID: board.ID, UserID: "user-carol"}
	_, err = svc.AddMember(ctx, member, AddMemberRequest{Email: "alice@example.com"})
	assertCode(t, err, domainerrors.CodeForbidden)
}

func TestBoardService_RemoveMember(t *testing.T) {
	svc, _ := setupBoardTest(t, BoardServiceConfig{})
	board := createBoard(t, svc)
	ctx := context.Background()
	addMember(t, svc, board.ID, "bob@example.com", domain.RoleAdmin)
	addMember(t, svc, board.ID, "carol@example.com", domain.RoleMember)

	// A member cannot remove others but can leave.
	_, err := svc.RemoveMember(ctx, Ref{BoardID: board.ID, UserID: "user-carol"}, "user-bob")
	assertCode(t, err, domainerrors.CodeForbidden)

	updated, err := svc.RemoveMember(ctx, Ref{BoardID: board.ID, UserID: "user-carol"}, "user-carol")
	require.NoError(t, err)
	assert.Len(t, updated.Members, 2)

	_, err = svc.RemoveMember(ctx, Ref{BoardID: board.ID, UserID: "user-bob"}, "user-alice")
	assertCode(t, err, domainerrors.CodeValidation)

	updated, err = svc.RemoveMember(ctx, Ref{BoardID: board.ID, UserID: "user-alice"}, "user-bob")
	require.NoError(t, err)
	assert.Len(t, updated.Members, 1)

	_, err = svc.GetBoard(ctx, Ref{BoardID: board.ID, UserID: "user-bob"})
	assertCode(t, err, domainerrors.CodeForbidden)
}
