package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskboard/taskboard-server/internal/color"
	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/dto"
	domainerrors "github.com/taskboard/taskboard-server/internal/errors"
	"github.com/taskboard/taskboard-server/internal/store"
)

// setupBoardTest creates a board service over an in-memory badger store with
// three users: alice (who creates boards), bob and carol.
func setupBoardTest(t *testing.T, cfg BoardServiceConfig) (*BoardService, *store.Store) {
	t.Helper()

	s, err := store.Open(store.Options{InMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	for _, name := range []string{"alice", "bob", "carol"} {
		u := &domain.User{
			Name:        name,
			Email:       name + "@example.com",
			AvatarColor: color.ForUser("user-" + name),
			IsActive:    true,
		}
		u.ID = "user-" + name
		u.InitTimestamps(time.Now())
		require.NoError(t, s.CreateUser(context.Background(), u))
	}

	return NewBoardService(s, nil, cfg, nil), s
}

func createBoard(t *testing.T, svc *BoardService) *dto.Board {
	t.Helper()
	board, err := svc.CreateBoard(context.Background(), "user-alice", CreateBoardRequest{Title: "Roadmap"})
	require.NoError(t, err)
	return board
}

func addMember(t *testing.T, svc *BoardService, boardID, email string, role domain.Role) {
	t.Helper()
	_, err := svc.AddMember(context.Background(), Ref{BoardID: boardID, UserID: "user-alice"},
		AddMemberRequest{Email: email, Role: role})
	require.NoError(t, err)
}

func assertCode(t *testing.T, err error, code domainerrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, domainerrors.CodeOf(err), "error: %v", err)
}

func TestBoardService_CreateBoard(t *testing.T) {
	svc, _ := setupBoardTest(t, BoardServiceConfig{})

	board, err := svc.CreateBoard(context.Background(), "user-alice", CreateBoardRequest{
		Title:       "  Roadmap  ",
		Description: " Q3 plans ",
	})
	require.NoError(t, err)

	assert.Equal(t, "Roadmap", board.Title)
	assert.Equal(t, "Q3 plans", board.Description)
	assert.Equal(t, int64(1), board.Version)
	require.Len(t, board.Lists, 3)
	for i, title := range domain.DefaultListTitles {
		assert.Equal(t, title, board.Lists[i].Title)
		assert.Equal(t, i, board.Lists[i].Position)
		assert.Empty(t, board.Lists[i].Cards)
	}

	assert.Equal(t, "user-alice", board.CreatedBy.ID)
	assert.Equal(t, "alice", board.CreatedBy.Name)
	assert.Equal(t, "alice@example.com", board.CreatedBy.Email)
	assert.NotEmpty(t, board.CreatedBy.AvatarColor)
	require.Len(t, board.Members, 1)
	assert.Equal(t, domain.RoleOwner, board.Members[0].Role)
}

func TestBoardService_CreateBoard_TitleRequired(t *testing.T) {
	svc, _ := setupBoardTest(t, BoardServiceConfig{})

	_, err := svc.CreateBoard(context.Background(), "user-alice", CreateBoardRequest{Title: "   "})
	assertCode(t, err, domainerrors.CodeValidation)
	assert.Equal(t, "Board title is required", err.Error())
}

func TestBoardService_GetBoard_Access(t *testing.T) {
	svc, _ := setupBoardTest(t, BoardServiceConfig{})
	board := createBoard(t, svc)
	ctx := context.Background()

	_, err := svc.GetBoard(ctx, Ref{BoardID: board.ID, UserID: "user-bob"})
	assertCode(t, err, domainerrors.CodeForbidden)
	assert.Equal(t, "Access denied", err.Error())

	addMember(t, svc, board.ID, "bob@example.com", domain.RoleMember)
	got, err := svc.GetBoard(ctx, Ref{BoardID: board.ID, UserID: "user-bob"})
	require.NoError(t, err)
	assert.Equal(t, board.ID, got.ID)

	_, err = svc.GetBoard(ctx, Ref{BoardID: "board-missing", UserID: "user-alice"})
	assertCode(t, err, domainerrors.CodeNotFound)
	assert.Equal(t, "Board not found", err.Error())
}

func TestBoardService_GetBoard_PublicGrantsNothing(t *testing.T) {
	svc, _ := setupBoardTest(t, BoardServiceConfig{})
	board := createBoard(t, svc)
	ctx := context.Background()

	public := true
	_, err := svc.UpdateBoard(ctx, Ref{BoardID: board.ID, UserID: "user-alice"}, UpdateBoardRequest{IsPublic: &public})
	require.NoError(t, err)

	_, err = svc.GetBoard(ctx, Ref{BoardID: board.ID, UserID: "user-bob"})
	assertCode(t, err, domainerrors.CodeForbidden)
}

func TestBoardService_ListBoards(t *testing.T) {
	svc, _ := setupBoardTest(t, BoardServiceConfig{})
	ctx := context.Background()

	first := createBoard(t, svc)
	second := createBoard(t, svc)
	addMember(t, svc, first.ID, "bob@example.com", domain.RoleMember)

	alice, err := svc.ListBoards(ctx, "user-alice")
	require.NoError(t, err)
	require.Len(t, alice, 2)
	// first was updated last by AddMember.
	assert.Equal(t, first.ID, alice[0].ID)
	assert.Equal(t, second.ID, alice[1].ID)

	bob, err := svc.ListBoards(ctx, "user-bob")
	require.NoError(t, err)
	require.Len(t, bob, 1)
	assert.Equal(t, first.ID, bob[0].ID)

	carol, err := svc.ListBoards(ctx, "user-carol")
	require.NoError(t, err)
	assert.NotNil(t, carol)
	assert.Empty(t, carol)
}

func TestBoardService_ReadsNeverBackfillLists(t *testing.T) {
	svc, _ := setupBoardTest(t, BoardServiceConfig{})
	board := createBoard(t, svc)
	ctx := context.Background()
	ref := Ref{BoardID: board.ID, UserID: "user-alice"}

	for _, l := range board.Lists {
		_, err := svc.DeleteList(ctx, ref, l.ID)
		require.NoError(t, err)
	}

	got, err := svc.GetBoard(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, got.Lists)

	boards, err := svc.ListBoards(ctx, "user-alice")
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.Empty(t, boards[0].Lists)
	assert.Equal(t, got.Version, boards[0].Version)
}

func TestBoardService_UpdateBoard(t *testing.T) {
	svc, _ := setupBoardTest(t, BoardServiceConfig{})
	board := createBoard(t, svc)
	ctx := context.Background()
	ref := Ref{BoardID: board.ID, UserID: "user-alice"}

	title, desc, starred := " Renamed ", "  new description ", true
	updated, err := svc.UpdateBoard(ctx, ref, UpdateBoardRequest{Title: &title, Description: &desc, IsStarred: &starred})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "new description", updated.Description)
	assert.True(t, updated.IsStarred)
	assert.Equal(t, board.Version+1, updated.Version)

	blank := "   "
	updated, err = svc.UpdateBoard(ctx, ref, UpdateBoardRequest{Title: &blank})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title, "blank title is ignored")
}

func TestBoardService_UpdateBoard_Roles(t *testing.T) {
	svc, _ := setupBoardTest(t, BoardServiceConfig{})
	board := createBoard(t, svc)
	ctx := context.Background()
	addMember(t, svc, board.ID, "bob@example.com", domain.RoleAdmin)
	addMember(t, svc, board.ID, "carol@example.com", domain.RoleMember)

	title := "By admin"
	updated, err := svc.UpdateBoard(ctx, Ref{BoardID: board.ID, UserID: "user-bob"}, UpdateBoardRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "By admin", updated.Title)

	_, err = svc.UpdateBoard(ctx, Ref{BoardID: board.ID, UserID: "user-carol"}, UpdateBoardRequest{Title: &title})
	assertCode(t, err, domainerrors.CodeForbidden)
}

func TestBoardService_DeleteBoard(t *testing.T) {
	svc, _ := setupBoardTest(t, BoardServiceConfig{})
	board := createBoard(t, svc)
	ctx := context.Background()
	addMember(t, svc, board.ID, "bob@example.com", domain.RoleAdmin)

	err := svc.DeleteBoard(ctx, Ref{BoardID: board.ID, UserID: "user-bob"})
	assertCode(t, err, domainerrors.CodeForbidden)
	assert.Equal(t, "Only board owner can delete the board", err.Error())

	require.NoError(t, svc.DeleteBoard(ctx, Ref{BoardID: board.ID, UserID: "user-alice"}))

	_, err = svc.GetBoard(ctx, Ref{BoardID: board.ID, UserID: "user-alice"})
	assertCode(t, err, domainerrors.CodeNotFound)
}

func TestBoardService_ToggleStar(t *testing.T) {
	svc, _ := setupBoardTest(t, BoardServiceConfig{})
	board := createBoard(t, svc)
	ref := Ref{BoardID: board.ID, UserID: "user-alice"}

	starred, err := svc.ToggleStar(context.Background(), ref)
	require.NoError(t, err)
	assert.True(t, starred.IsStarred)

	unstarred, err := svc.ToggleStar(context.Background(), ref)
	require.NoError(t, err)
	assert.False(t, unstarred.IsStarred)
}

func TestBoardService_IfMatch(t *testing.T) {
	svc, _ := setupBoardTest(t, BoardServiceConfig{})
	board := createBoard(t, svc)
	ctx := context.Background()

	updated, err := svc.AddList(ctx, Ref{BoardID: board.ID, UserID: "user-alice", IfMatch: board.Version}, "Backlog")
	require.NoError(t, err)
	assert.Equal(t, board.Version+1, updated.Version)

	// The caller still holds the old version.
	_, err = svc.AddList(ctx, Ref{BoardID: board.ID, UserID: "user-alice", IfMatch: board.Version}, "Stale")
	assertCode(t, err, domainerrors.CodeConflict)

	got, err := svc.GetBoard(ctx, Ref{BoardID: board.ID, UserID: "user-alice"})
	require.NoError(t, err)
	assert.Len(t, got.Lists, 4)

	err = svc.DeleteBoard(ctx, Ref{BoardID: board.ID, UserID: "user-alice", IfMatch: board.Version})
	assertCode(t, err, domainerrors.CodeConflict)
}

// conflictingStore fails the first n saves with a version conflict.
type conflictingStore struct {
	*store.Store
	mu        sync.Mutex
	conflicts int
	saves     int
}

func (c *conflictingStore) SaveBoard(ctx context.Context, board *domain.Board, expectedVersion int64) error {
	c.mu.Lock()
	c.saves++
	fail := c.conflicts > 0
	if fail {
		c.conflicts--
	}
	c.mu.Unlock()
	if fail {
		return store.ErrVersionConflict
	}
	return c.Store.SaveBoard(ctx, board, expectedVersion)
}

func TestBoardService_RetriesVersionConflicts(t *testing.T) {
	_, s := setupBoardTest(t, BoardServiceConfig{})
	cs := &conflictingStore{Store: s, conflicts: 2}
	svc := NewBoardService(cs, nil, BoardServiceConfig{MaxSaveAttempts: 3}, nil)
	board := createBoard(t, svc)

	updated, err := svc.AddList(context.Background(), Ref{BoardID: board.ID, UserID: "user-alice"}, "Backlog")
	require.NoError(t, err)
	assert.Len(t, updated.Lists, 4)
	assert.Equal(t, 3, cs.saves)
}

func TestBoardService_GivesUpAfterMaxAttempts(t *testing.T) {
	_, s := setupBoardTest(t, BoardServiceConfig{})
	cs := &conflictingStore{Store: s, conflicts: 10}
	svc := NewBoardService(cs, nil, BoardServiceConfig{MaxSaveAttempts: 2}, nil)
	board := createBoard(t, svc)

	_, err := svc.AddList(context.Background(), Ref{BoardID: board.ID, UserID: "user-alice"}, "Backlog")
	assertCode(t, err, domainerrors.CodeConflict)
	assert.Equal(t, 2, cs.saves)
}

func TestBoardService_IfMatchDoesNotRetry(t *testing.T) {
	_, s := setupBoardTest(t, BoardServiceConfig{})
	cs := &conflictingStore{Store: s, conflicts: 1}
	svc := NewBoardService(cs, nil, BoardServiceConfig{}, nil)
	board := createBoard(t, svc)

	_, err := svc.AddList(context.Background(), Ref{BoardID: board.ID, UserID: "user-alice", IfMatch: board.Version}, "Backlog")
	assertCode(t, err, domainerrors.CodeConflict)
	assert.Equal(t, 1, cs.saves)
}

func TestBoardService_ConcurrentAddCard(t *testing.T) {
	svc, _ := setupBoardTest(t, BoardServiceConfig{MaxSaveAttempts: 100})
	board := createBoard(t, svc)
	listID := board.Lists[0].ID
	ref := Ref{BoardID: board.ID, UserID: "user-alice"}

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddCard(context.Background(), ref, listID, AddCardRequest{Title: fmt.Sprintf("Card %d", i)})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := svc.GetBoard(context.Background(), ref)
	require.NoError(t, err)
	cards := got.Lists[0].Cards
	require.Len(t, cards, n)

	titles := make(map[string]bool)
	for i, c := range cards {
		assert.Equal(t, i, c.Position)
		titles[c.Title] = true
	}
	assert.Len(t, titles, n)
	assert.Equal(t, board.Version+n, got.Version)
}
