package client

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskboard/taskboard-server/internal/api"
	"github.com/taskboard/taskboard-server/internal/auth"
	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/service"
	"github.com/taskboard/taskboard-server/internal/store"
)

// newTestServer starts the API over an in-memory store without a search index.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := store.Open(store.Options{InMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	key, err := auth.LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	services := &api.Services{
		Auth:  service.NewAuthService(st, tokens, nil, logger),
		Board: service.NewBoardService(st, nil, service.BoardServiceConfig{}, logger),
	}
	srv := httptest.NewServer(api.NewServer(st, services, api.Options{}, logger))
	t.Cleanup(srv.Close)
	return srv
}

func registered(t *testing.T, srv *httptest.Server, email string) *Client {
	t.Helper()
	c := New(srv.URL)
	_, err := c.Register(context.Background(), "User "+email, email, "password123")
	require.NoError(t, err)
	return c
}

func TestClient_Auth(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	c := New(srv.URL)
	session, err := c.Register(ctx, "Ada", "ada@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, session.Token, c.Token())

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada", me.Name)

	other := New(srv.URL)
	_, err = other.Login(ctx, "ada@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))

	_, err = other.Me(ctx)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Access denied. No token provided.", apiErr.Message)
}

func TestClient_ValidationFields(t *testing.T) {
	srv := newTestServer(t)

	_, err := New(srv.URL).Register(context.Background(), "Ada", "ada@example.com", "abc")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.NotEmpty(t, apiErr.Fields)
	assert.Equal(t, "password", apiErr.Fields[0].Field)
}

func TestClient_BoardLifecycle(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	c := registered(t, srv, "alice@example.com")

	board, err := c.CreateBoard(ctx, "Roadmap", "Q3")
	require.NoError(t, err)
	require.Len(t, board.Lists, 3)
	assert.Equal(t, int64(1), board.Version)

	boards, err := c.ListBoards(ctx)
	require.NoError(t, err)
	require.Len(t, boards, 1)

	title := "Roadmap 2"
	board, err = c.UpdateBoard(ctx, board.ID, BoardUpdate{Title: &title, IfMatch: board.Version})
	require.NoError(t, err)
	assert.Equal(t, "Roadmap 2", board.Title)

	_, err = c.UpdateBoard(ctx, board.ID, BoardUpdate{Title: &title, IfMatch: 1})
	assert.Equal(t, http.StatusConflict, StatusOf(err))

	board, err = c.ToggleStar(ctx, board.ID)
	require.NoError(t, err)
	assert.True(t, board.IsStarred)

	require.NoError(t, c.DeleteBoard(ctx, board.ID))
	_, err = c.GetBoard(ctx, board.ID)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
}

func TestClient_ListsAndCards(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	c := registered(t, srv, "alice@example.com")

	board, err := c.CreateBoard(ctx, "Work", "")
	require.NoError(t, err)
	todo := board.Lists[0].ID
	done := board.Lists[2].ID

	board, err = c.AddList(ctx, board.ID, "Backlog")
	require.NoError(t, err)
	require.Len(t, board.Lists, 4)

	board, err = c.RenameList(ctx, board.ID, board.Lists[3].ID, "Icebox")
	require.NoError(t, err)
	assert.Equal(t, "Icebox", board.Lists[3].Title)

	board, err = c.MoveList(ctx, board.ID, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, "Icebox", board.Lists[0].Title)

	board, err = c.AddCard(ctx, board.ID, todo, "Write docs", "")
	require.NoError(t, err)
	card := board.FindList(todo).Cards[0]

	due := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)
	board, err = c.UpdateCard(ctx, board.ID, todo, card.ID, domain.CardPatch{
		Description: domain.Some("All of them"),
		DueDate:     domain.Some(due),
	})
	require.NoError(t, err)
	_, updated := board.FindCard(card.ID)
	assert.Equal(t, "All of them", updated.Description)
	require.NotNil(t, updated.DueDate)
	assert.True(t, due.Equal(*updated.DueDate))

	board, err = c.UpdateCard(ctx, board.ID, todo, card.ID, domain.CardPatch{DueDate: domain.Null[time.Time]()})
	require.NoError(t, err)
	_, updated = board.FindCard(card.ID)
	assert.Nil(t, updated.DueDate)
	assert.Equal(t, "All of them", updated.Description)

	_, err = c.UpdateCard(ctx, board.ID, todo, card.ID, domain.CardPatch{Title: domain.Null[string]()})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Card title is required", apiErr.Message)

	board, err = c.AddLabel(ctx, board.ID, todo, card.ID, "docs", "")
	require.NoError(t, err)
	_, updated = board.FindCard(card.ID)
	require.Len(t, updated.Labels, 1)
	labelID := updated.Labels[0].ID

	labels, err := c.AvailableLabels(ctx, board.ID)
	require.NoError(t, err)
	require.Len(t, labels, 1)

	matches, err := c.SearchCards(ctx, board.ID, "", labelID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, todo, matches[0].ListID)

	board, err = c.RemoveLabel(ctx, board.ID, todo, card.ID, labelID)
	require.NoError(t, err)
	_, updated = board.FindCard(card.ID)
	assert.Empty(t, updated.Labels)

	board, err = c.MoveCard(ctx, board.ID, todo, card.ID, done, 0)
	require.NoError(t, err)
	assert.Empty(t, board.FindList(todo).Cards)
	assert.Len(t, board.FindList(done).Cards, 1)

	board, err = c.DeleteCard(ctx, board.ID, done, card.ID)
	require.NoError(t, err)
	assert.Empty(t, board.FindList(done).Cards)

	board, err = c.DeleteList(ctx, board.ID, board.Lists[0].ID)
	require.NoError(t, err)
	assert.Len(t, board.Lists, 3)
}

func TestClient_Members(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	alice := registered(t, srv, "alice@example.com")
	bob := registered(t, srv, "bob@example.com")

	board, err := alice.CreateBoard(ctx, "Shared", "")
	require.NoError(t, err)

	_, err = bob.GetBoard(ctx, board.ID)
	assert.Equal(t, http.StatusForbidden, StatusOf(err))

	board, err = alice.AddMember(ctx, board.ID, "bob@example.com", domain.RoleMember)
	require.NoError(t, err)
	require.Len(t, board.Members, 2)
	bobID := board.Members[1].User.ID

	_, err = bob.GetBoard(ctx, board.ID)
	require.NoError(t, err)

	_, err = alice.RemoveMember(ctx, board.ID, bobID)
	require.NoError(t, err)
	_, err = bob.GetBoard(ctx, board.ID)
	assert.Equal(t, http.StatusForbidden, StatusOf(err))
}

func TestClient_NonEnvelopeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := New(srv.URL).Health(context.Background())
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestPatchBody(t *testing.T) {
	body := patchBody(domain.CardPatch{
		Title:       domain.Some("New"),
		Description: domain.Null[string](),
		DueDate:     domain.Some(time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)),
	})
	assert.Equal(t, map[string]any{
		"title":       "New",
		"description": nil,
		"dueDate":     "2030-01-02T03:04:05.000Z",
	}, body)
}
