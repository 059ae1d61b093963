// Package storetest holds the behavioural tests every store.Backend must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/store"
)

// Factory returns a fresh, empty backend. Cleanup is the factory's job.
type Factory func(t *testing.T) store.Backend

// Run executes the conformance suite against backends produced by newBackend.
func Run(t *testing.T, newBackend Factory) {
	t.Run("BoardRoundTrip", func(t *testing.T) { testBoardRoundTrip(t, newBackend(t)) })
	t.Run("BoardNotFound", func(t *testing.T) { testBoardNotFound(t, newBackend(t)) })
	t.Run("CreateBoardTwice", func(t *testing.T) { testCreateBoardTwice(t, newBackend(t)) })
	t.Run("SaveBoardCAS", func(t *testing.T) { testSaveBoardCAS(t, newBackend(t)) })
	t.Run("SaveBoardConcurrent", func(t *testing.T) { testSaveBoardConcurrent(t, newBackend(t)) })
	t.Run("ListBoardsForUser", func(t *testing.T) { testListBoardsForUser(t, newBackend(t)) })
	t.Run("MembershipFollowsSave", func(t *testing.T) { testMembershipFollowsSave(t, newBackend(t)) })
	t.Run("DeleteBoard", func(t *testing.T) { testDeleteBoard(t, newBackend(t)) })
	t.Run("AllBoards", func(t *testing.T) { testAllBoards(t, newBackend(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newBackend(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, newBackend(t).Ping(context.Background())) })
}

// NewBoard builds a board with default lists for tests.
func NewBoard(id, owner string, updatedAt time.Time) *domain.Board {
	n := 0
	b := domain.NewBoard(id, "Board "+id, "", owner, func() string {
		n++
		return fmt.Sprintf("%s-list-%d", id, n)
	}, updatedAt)
	return b
}

// NewUser builds a user for tests.
func NewUser(id, email string) *domain.User {
	u := &domain.User{Name: "User " + id, Email: email, AvatarColor: "#336699", IsActive: true}
	u.ID = id
	u.InitTimestamps(time.Now().UTC().Truncate(time.Millisecond))
	return u
}

func testBoardRoundTrip(t *testing.T, s store.Backend) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	b := NewBoard("board-1", "user-1", now)
	due := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	card := &domain.Card{
		Title:   "Setup",
		Labels:  []domain.Label{{ID: "l1", Text: "bug", Color: "red"}},
		DueDate: &due,
	}
	card.ID = "card-1"
	require.NoError(t, b.AppendCard(b.Lists[0].ID, card, now))

	require.NoError(t, s.CreateBoard(ctx, b))
	assert.Equal(t, int64(1), b.Version)

	got, err := s.GetBoard(ctx, "board-1")
	require.NoError(t, err)
	assert.Equal(t, "Board board-1", got.Title)
	assert.Equal(t, int64(1), got.Version)
	require.Len(t, got.Lists, 3)
	require.Len(t, got.Lists[0].Cards, 1)
	assert.Equal(t, "Setup", got.Lists[0].Cards[0].Title)
	assert.True(t, due.Equal(*got.Lists[0].Cards[0].DueDate))
	assert.Equal(t, []domain.Label{{ID: "l1", Text: "bug", Color: "red"}}, got.Lists[0].Cards[0].Labels)
	assert.Equal(t, domain.RoleOwner, got.Members[0].Role)
	assert.True(t, now.Equal(got.UpdatedAt))
}

func testAllBoards(t *testing.T, s store.Backend) {
	ctx := context.Background()
	boards, err := s.AllBoards(ctx)
	require.NoError(t, err)
	assert.Empty(t, boards)

	require.NoError(t, s.CreateBoard(ctx, NewBoard("board-1", "user-1", time.Now())))
	require.NoError(t, s.CreateBoard(ctx, NewBoard("board-2", "user-2", time.Now())))

	boards, err = s.AllBoards(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(boards))
	for _, b := range boards {
		ids = append(ids, b.ID)
		assert.Equal(t, int64(1), b.Version)
	}
	assert.ElementsMatch(t, []string{"board-1", "board-2"}, ids)
}

func testBoardNotFound(t *testing.T, s store.Backend) {
	_, err := s.GetBoard(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.SaveBoard(context.Background(), NewBoard("missing", "user-1", time.Now()), 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testCreateBoardTwice(t *testing.T, s store.Backend) {
	ctx := context.Background()
	require.NoError(t, s.CreateBoard(ctx, NewBoard("board-1", "user-1", time.Now())))

	err := s.CreateBoard(ctx, NewBoard("board-1", "user-1", time.Now()))
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func testSaveBoardCAS(t *testing.T, s store.Backend) {
	ctx := context.Background()
	require.NoError(t, s.CreateBoard(ctx, NewBoard("board-1", "user-1", time.Now())))

	first, err := s.GetBoard(ctx, "board-1")
	require.NoError(t, err)
	second, err := s.GetBoard(ctx, "board-1")
	require.NoError(t, err)

	first.Title = "first"
	require.NoError(t, s.SaveBoard(ctx, first, 1))
	assert.Equal(t, int64(2), first.Version)

	second.Title = "second"
	err = s.SaveBoard(ctx, second, 1)
	assert.ErrorIs(t, err, store.ErrVersionConflict)
	assert.Equal(t, int64(1), second.Version)

	got, err := s.GetBoard(ctx, "board-1")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)
	assert.Equal(t, int64(2), got.Version)
}

func testSaveBoardConcurrent(t *testing.T, s store.Backend) {
	ctx := context.Background()
	require.NoError(t, s.CreateBoard(ctx, NewBoard("board-1", "user-1", time.Now())))

	const writers = 8
	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := s.GetBoard(ctx, "board-1")
			if err != nil {
				results <- err
				return
			}
			b.Title = fmt.Sprintf("writer %d", i)
			results <- s.SaveBoard(ctx, b, 1)
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, store.ErrVersionConflict)
	}
	assert.Equal(t, 1, succeeded, "exactly one writer may win a version")

	got, err := s.GetBoard(ctx, "board-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
}

func testListBoardsForUser(t *testing.T, s store.Backend) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	older := NewBoard("board-old", "user-1", base.Add(-time.Hour))
	newer := NewBoard("board-new", "user-2", base)
	require.NoError(t, newer.AddMember("user-1", domain.RoleMember, base))
	other := NewBoard("board-other", "user-2", base)
	for _, b := range []*domain.Board{older, newer, other} {
		require.NoError(t, s.CreateBoard(ctx, b))
	}

	boards, err := s.ListBoardsForUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, boards, 2)
	assert.Equal(t, "board-new", boards[0].ID)
	assert.Equal(t, "board-old", boards[1].ID)

	boards, err = s.ListBoardsForUser(ctx, "user-nobody")
	require.NoError(t, err)
	assert.Empty(t, boards)
}

func testMembershipFollowsSave(t *testing.T, s store.Backend) {
	ctx := context.Background()
	b := NewBoard("board-1", "user-1", time.Now())
	require.NoError(t, s.CreateBoard(ctx, b))

	require.NoError(t, b.AddMember("user-2", domain.RoleAdmin, time.Now()))
	require.NoError(t, s.SaveBoard(ctx, b, 1))
	boards, err := s.ListBoardsForUser(ctx, "user-2")
	require.NoError(t, err)
	assert.Len(t, boards, 1)

	require.NoError(t, b.RemoveMember("user-2"))
	require.NoError(t, s.SaveBoard(ctx, b, 2))
	boards, err = s.ListBoardsForUser(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, boards)
}

func testDeleteBoard(t *testing.T, s store.Backend) {
	ctx := context.Background()
	require.NoError(t, s.CreateBoard(ctx, NewBoard("board-1", "user-1", time.Now())))

	require.NoError(t, s.DeleteBoard(ctx, "board-1"))
	require.NoError(t, s.DeleteBoard(ctx, "board-1"))

	_, err := s.GetBoard(ctx, "board-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	boards, err := s.ListBoardsForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, boards)
}

func testUsers(t *testing.T, s store.Backend) {
	ctx := context.Background()
	u := NewUser("user-1", "Ada@Example.com")
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Equal(t, "User user-1", got.Name)

	got, err = s.GetUserByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.ID)

	err = s.CreateUser(ctx, NewUser("user-2", "ada@example.com"))
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	require.NoError(t, s.CreateUser(ctx, NewUser("user-3", "grace@example.com")))
	users, err := s.GetUsersByIDs(ctx, []string{"user-3", "user-missing", "user-1"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "user-3", users[0].ID)
	assert.Equal(t, "user-1", users[1].ID)

	got.Name = "Ada Lovelace"
	got.LastLoginAt = time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, s.UpdateUser(ctx, got))
	got, err = s.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Name)
	assert.False(t, got.LastLoginAt.IsZero())

	all, err := s.AllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = s.GetUser(ctx, "user-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.UpdateUser(ctx, NewUser("user-missing", "x@example.com")), store.ErrNotFound)
}
