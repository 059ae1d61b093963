package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/dto"
	"github.com/taskboard/taskboard-server/internal/id"
)

func newLoaded(t *testing.T, persist PersistConfig) (*Container, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	c := New(Options{API: api, Persist: persist, Now: func() time.Time { return testNow }})
	require.NoError(t, c.Load(context.Background(), "board-1"))
	return c, api
}

func wait(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case r, ok := <-ch:
		require.True(t, ok, "channel closed without a result")
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for result")
		return Result{}
	}
}

func onlyCard(t *testing.T, b *dto.Board, listIdx int) *domain.Card {
	t.Helper()
	require.Len(t, b.Lists[listIdx].Cards, 1)
	return b.Lists[listIdx].Cards[0]
}

func TestDo_AppliedThenConfirmed(t *testing.T) {
	c, api := newLoaded(t, PersistConfig{})
	release := api.holdOp("add_card")

	first, ch := c.Do(context.Background(), &AddCard{ListID: api.listID(0), Title: "  Write docs "})
	assert.Equal(t, AppliedLocally, first.Status)
	assert.False(t, first.Terminal())

	st := c.State()
	assert.Equal(t, 1, st.Pending)
	local := onlyCard(t, st.Board, 0)
	assert.True(t, id.IsTemp(local.ID))
	assert.Equal(t, "Write docs", local.Title)
	assert.Equal(t, []domain.Label{}, local.Labels)

	close(release)
	res := wait(t, ch)
	assert.Equal(t, Confirmed, res.Status)
	assert.False(t, res.Stale)
	assert.Equal(t, int64(2), res.Version)

	_, open := <-ch
	assert.False(t, open, "channel closed after the terminal result")

	st = c.State()
	assert.Equal(t, 0, st.Pending)
	assert.Equal(t, int64(2), st.Board.Version)
	card := onlyCard(t, st.Board, 0)
	assert.False(t, id.IsTemp(card.ID))
	assert.Empty(t, st.Notifications)
}

func TestDo_FailedDangling(t *testing.T) {
	c, api := newLoaded(t, PersistConfig{})
	api.setErr(errors.New("connection refused"))

	res := c.Apply(context.Background(), &AddList{Title: "Backlog"})
	assert.Equal(t, FailedDangling, res.Status)
	assert.EqualError(t, res.Err, "connection refused")

	st := c.State()
	require.Len(t, st.Board.Lists, 4, "optimistic change stays")
	assert.True(t, id.IsTemp(st.Board.Lists[3].ID))
	assert.Equal(t, 0, st.Pending)

	require.Len(t, st.Notifications, 1)
	n := st.Notifications[0]
	assert.Equal(t, NotifyError, n.Type)
	assert.Equal(t, "Error", n.Title)
	assert.Equal(t, "No se pudo sincronizar la lista con el servidor", n.Message)
	assert.Equal(t, 1, st.Unread)
}

func TestDo_FailureMessages(t *testing.T) {
	tests := []struct {
		m    Mutation
		want string
	}{
		{&AddList{}, msgSyncList},
		{&AddCard{}, msgSyncCard},
		{&MoveCard{}, msgSyncCard},
		{&UpdateCard{}, msgSyncChanges},
		{&DeleteCard{}, msgDeleteCard},
	}
	for _, tt := range tests {
		t.Run(tt.m.Name(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.m.FailureMessage())
		})
	}
}

func TestDo_Rejected(t *testing.T) {
	c := New(Options{API: newFakeAPI()})
	res, ch := c.Do(context.Background(), &AddList{Title: "Backlog"})
	assert.Equal(t, Rejected, res.Status)
	assert.ErrorIs(t, res.Err, ErrNoBoard)
	_, open := <-ch
	assert.False(t, open)

	c, api := newLoaded(t, PersistConfig{})
	before := c.Board()

	res = c.Apply(context.Background(), &AddCard{ListID: api.listID(0), Title: "   "})
	assert.Equal(t, Rejected, res.Status)
	require.Error(t, res.Err)

	res = c.Apply(context.Background(), &DeleteCard{ListID: api.listID(0), CardID: "card-missing"})
	assert.Equal(t, Rejected, res.Status)
	assert.ErrorIs(t, res.Err, domain.ErrCardNotFound)

	assert.Equal(t, before, c.Board(), "rejected mutations leave state untouched")
	assert.Equal(t, 0, c.State().Pending)
}

func TestSettle_StaleVersion(t *testing.T) {
	c, api := newLoaded(t, PersistConfig{})
	newer := c.Board()
	newer.Version = 10
	c.SetBoard(newer)

	res := c.Apply(context.Background(), &RenameList{ListID: api.listID(0), Title: "Pendiente"})
	assert.Equal(t, Confirmed, res.Status)
	assert.True(t, res.Stale)
	assert.Equal(t, int64(2), res.Version)

	assert.Equal(t, newer, c.Board(), "older server board is not applied; newest server board wins")
	assert.Equal(t, 0, c.State().Pending)
}

func TestSettle_OutOfOrderConverges(t *testing.T) {
	tests := []struct {
		name  string
		op    string
		first func(api *fakeAPI) Mutation
	}{
		{
			name:  "toggle star",
			op:    "toggle_star",
			first: func(*fakeAPI) Mutation { return &ToggleStar{} },
		},
		{
			name: "add card",
			op:   "add_card",
			first: func(api *fakeAPI) Mutation {
				return &AddCard{ListID: api.listID(0), Title: "Early"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, api := newLoaded(t, PersistConfig{})
			release := api.delayResponse(tt.op)

			first, firstCh := c.Do(context.Background(), tt.first(api))
			require.Equal(t, AppliedLocally, first.Status)
			require.Eventually(t, func() bool { return api.snapshot().Version == 2 },
				5*time.Second, time.Millisecond, "server applies before responding")

			res := c.Apply(context.Background(), &RenameList{ListID: api.listID(1), Title: "Doing"})
			require.Equal(t, Confirmed, res.Status)
			require.False(t, res.Stale)

			close(release)
			res = wait(t, firstCh)
			assert.Equal(t, Confirmed, res.Status)
			assert.True(t, res.Stale)
			assert.Equal(t, int64(2), res.Version)

			assert.Equal(t, 0, c.State().Pending)
			assert.Equal(t, api.snapshot(), c.Board(), "local state equals the server once everything settled")
		})
	}
}

func TestSettle_OutOfOrderKeepsLaterPending(t *testing.T) {
	c, api := newLoaded(t, PersistConfig{})
	listID := api.listID(0)
	lateStar := api.delayResponse("toggle_star")
	heldCard := api.holdOp("add_card")

	_, starCh := c.Do(context.Background(), &ToggleStar{})
	require.Eventually(t, func() bool { return api.snapshot().Version == 2 },
		5*time.Second, time.Millisecond)
	_, cardCh := c.Do(context.Background(), &AddCard{ListID: listID, Title: "Queued"})

	res := c.Apply(context.Background(), &RenameList{ListID: listID, Title: "Pendiente"})
	require.Equal(t, Confirmed, res.Status)

	close(lateStar)
	res = wait(t, starCh)
	require.True(t, res.Stale)

	b := c.Board()
	assert.True(t, b.IsStarred)
	assert.Equal(t, "Pendiente", b.Lists[0].Title)
	card := onlyCard(t, b, 0)
	assert.True(t, id.IsTemp(card.ID), "unsent card stays replayed")
	assert.Equal(t, 1, c.State().Pending)

	close(heldCard)
	res = wait(t, cardCh)
	require.Equal(t, Confirmed, res.Status)
	require.False(t, res.Stale)
	assert.Equal(t, api.snapshot(), c.Board())
}

func TestSettle_OtherBoard(t *testing.T) {
	c, api := newLoaded(t, PersistConfig{})
	release := api.holdOp("add_card")

	_, ch := c.Do(context.Background(), &AddCard{ListID: api.listID(0), Title: "Lost"})
	other := &dto.Board{ID: "board-2", Title: "Other", Version: 1}
	c.SetBoard(other)
	close(release)

	res := wait(t, ch)
	assert.Equal(t, Confirmed, res.Status)
	assert.True(t, res.Stale)
	b := c.Board()
	assert.Equal(t, "board-2", b.ID)
	assert.Empty(t, b.Lists)
}

func TestRebase_ReplaysPending(t *testing.T) {
	c, api := newLoaded(t, PersistConfig{})
	listID := api.listID(0)
	release := api.holdOp("add_card")

	_, cardCh := c.Do(context.Background(), &AddCard{ListID: listID, Title: "Held"})
	tempID := onlyCard(t, c.Board(), 0).ID

	res := c.Apply(context.Background(), &RenameList{ListID: listID, Title: "Pendiente"})
	require.Equal(t, Confirmed, res.Status)
	require.False(t, res.Stale)

	b := c.Board()
	assert.Equal(t, "Pendiente", b.Lists[0].Title, "server state applied")
	assert.Equal(t, tempID, onlyCard(t, b, 0).ID, "pending card replayed with its temp id")
	assert.Equal(t, 1, c.State().Pending)

	close(release)
	res = wait(t, cardCh)
	require.Equal(t, Confirmed, res.Status)
	b = c.Board()
	assert.Equal(t, int64(3), b.Version)
	card := onlyCard(t, b, 0)
	assert.NotEqual(t, tempID, card.ID)
	assert.Equal(t, "Held", card.Title)
}

func TestRebase_DropsInapplicablePending(t *testing.T) {
	c, api := newLoaded(t, PersistConfig{})
	listID := api.listID(1)
	release := api.holdOp("rename_list")

	_, renameCh := c.Do(context.Background(), &RenameList{ListID: listID, Title: "Doing"})
	res := c.Apply(context.Background(), &DeleteList{ListID: listID})
	require.Equal(t, Confirmed, res.Status)
	assert.Len(t, c.Board().Lists, 2, "rename of a deleted list is ignored on replay")

	close(release)
	res = wait(t, renameCh)
	assert.Equal(t, FailedDangling, res.Status)
	assert.ErrorIs(t, res.Err, domain.ErrListNotFound)
}

func TestOpenCard_FollowsAndCloses(t *testing.T) {
	c, api := newLoaded(t, PersistConfig{})
	res := c.Apply(context.Background(), &AddCard{ListID: api.listID(0), Title: "Follow me"})
	require.Equal(t, Confirmed, res.Status)
	cardID := onlyCard(t, c.Board(), 0).ID

	assert.False(t, c.OpenCardByID("card-missing"))
	require.True(t, c.OpenCardByID(cardID))
	assert.Equal(t, api.listID(0), c.State().OpenCard.ListID)

	res = c.Apply(context.Background(), &MoveCard{FromListID: api.listID(0), CardID: cardID, ToListID: api.listID(2), ToIndex: 0})
	require.Equal(t, Confirmed, res.Status)
	open := c.State().OpenCard
	require.NotNil(t, open)
	assert.Equal(t, api.listID(2), open.ListID)

	res = c.Apply(context.Background(), &UpdateCard{ListID: api.listID(2), CardID: cardID, Patch: domain.CardPatch{Title: domain.Some("Renamed")}})
	require.Equal(t, Confirmed, res.Status)
	assert.Equal(t, "Renamed", c.State().OpenCard.Card.Title)

	res = c.Apply(context.Background(), &DeleteCard{ListID: api.listID(2), CardID: cardID})
	require.Equal(t, Confirmed, res.Status)
	assert.Nil(t, c.State().OpenCard)
}

func TestLabels_StableAcrossReplay(t *testing.T) {
	c, api := newLoaded(t, PersistConfig{})
	listID := api.listID(0)
	require.Equal(t, Confirmed, c.Apply(context.Background(), &AddCard{ListID: listID, Title: "Tag me"}).Status)
	cardID := onlyCard(t, c.Board(), 0).ID

	release := api.holdOp("add_label")
	add := &AddLabel{ListID: listID, CardID: cardID, Text: "urgente"}
	_, ch := c.Do(context.Background(), add)
	local := onlyCard(t, c.Board(), 0).Labels
	require.Len(t, local, 1)
	assert.NotEmpty(t, local[0].Color)

	require.Equal(t, Confirmed, c.Apply(context.Background(), &ToggleStar{}).Status)
	replayed := onlyCard(t, c.Board(), 0).Labels
	require.Len(t, replayed, 1)
	assert.Equal(t, local[0].ID, replayed[0].ID)

	close(release)
	require.Equal(t, Confirmed, wait(t, ch).Status)
	labels := onlyCard(t, c.Board(), 0).Labels
	require.Len(t, labels, 1)

	res := c.Apply(context.Background(), &RemoveLabel{ListID: listID, CardID: cardID, LabelID: labels[0].ID})
	require.Equal(t, Confirmed, res.Status)
	assert.Empty(t, onlyCard(t, c.Board(), 0).Labels)
}

func TestUpdateBoardAndStar(t *testing.T) {
	c, _ := newLoaded(t, PersistConfig{})
	title := "Sprint 12"

	res := c.Apply(context.Background(), &UpdateBoard{Title: &title})
	require.Equal(t, Confirmed, res.Status)
	assert.Equal(t, "Sprint 12", c.Board().Title)

	res = c.Apply(context.Background(), &ToggleStar{})
	require.Equal(t, Confirmed, res.Status)
	assert.True(t, c.Board().IsStarred)

	empty := ""
	res = c.Apply(context.Background(), &UpdateBoard{Title: &empty})
	assert.Equal(t, Rejected, res.Status)
}

func TestMoveList(t *testing.T) {
	c, api := newLoaded(t, PersistConfig{})
	first := api.listID(0)

	res := c.Apply(context.Background(), &MoveList{From: 0, To: 2})
	require.Equal(t, Confirmed, res.Status)
	b := c.Board()
	assert.Equal(t, first, b.Lists[2].ID)
	assert.True(t, b.IsDense())

	res = c.Apply(context.Background(), &MoveList{From: 0, To: 5})
	assert.Equal(t, Rejected, res.Status)
	assert.ErrorIs(t, res.Err, domain.ErrPositionOutOfRange)
}

func TestLoad_Error(t *testing.T) {
	c := New(Options{API: newFakeAPI()})
	err := c.Load(context.Background(), "board-missing")
	require.Error(t, err)
	assert.Nil(t, c.Board())
}

func TestQueryAndMatches(t *testing.T) {
	c, api := newLoaded(t, PersistConfig{})
	for _, title := range []string{"Write docs", "Fix bug"} {
		require.Equal(t, Confirmed, c.Apply(context.Background(), &AddCard{ListID: api.listID(0), Title: title}).Status)
	}

	assert.Len(t, c.Matches(), 2)
	c.SetQuery("docs")
	matches := c.Matches()
	require.Len(t, matches, 1)
	assert.Equal(t, "Write docs", matches[0].Title)

	c.SetBoard(&dto.Board{ID: "board-2", Version: 1})
	assert.Empty(t, c.State().Query, "switching boards clears the query")
}

func TestNotifications(t *testing.T) {
	c := New(Options{Now: func() time.Time { return testNow }})
	for i := range MaxNotifications + 10 {
		c.Notify(NotifyInfo, "Info", fmt.Sprintf("n%d", i))
	}

	st := c.State()
	require.Len(t, st.Notifications, MaxNotifications)
	assert.Equal(t, "n59", st.Notifications[0].Message, "newest first")
	assert.Equal(t, "n10", st.Notifications[MaxNotifications-1].Message)
	assert.Equal(t, MaxNotifications, st.Unread)

	first := st.Notifications[0].ID
	assert.True(t, c.MarkRead(first))
	assert.False(t, c.MarkRead("missing"))
	assert.Equal(t, MaxNotifications-1, c.State().Unread)

	assert.True(t, c.RemoveNotification(first))
	assert.Len(t, c.State().Notifications, MaxNotifications-1)

	c.MarkAllRead()
	assert.Equal(t, 0, c.State().Unread)

	c.ClearNotifications()
	assert.Empty(t, c.State().Notifications)
}

func TestReset(t *testing.T) {
	c, _ := newLoaded(t, PersistConfig{})
	c.Notify(NotifyError, "Error", "boom")

	c.Reset()
	st := c.State()
	assert.Nil(t, st.Board)
	require.Len(t, st.Notifications, 1)
	assert.Equal(t, NotifySuccess, st.Notifications[0].Type)
	assert.Equal(t, "Sesión cerrada", st.Notifications[0].Title)
	assert.Equal(t, "Has cerrado sesión exitosamente", st.Notifications[0].Message)
}

func TestSubscribe(t *testing.T) {
	c, _ := newLoaded(t, PersistConfig{})
	var calls atomic.Int32
	var last atomic.Pointer[State]
	unsubscribe := c.Subscribe(func(st State) {
		calls.Add(1)
		last.Store(&st)
	})

	res := c.Apply(context.Background(), &AddList{Title: "Backlog"})
	require.Equal(t, Confirmed, res.Status)
	assert.Equal(t, int32(2), calls.Load(), "applied and confirmed")
	assert.Len(t, last.Load().Board.Lists, 4)

	unsubscribe()
	c.Notify(NotifyInfo, "Info", "ignored")
	assert.Equal(t, int32(2), calls.Load())
}

func TestSubscribe_CanReadState(t *testing.T) {
	c, _ := newLoaded(t, PersistConfig{})
	done := make(chan int, 1)
	c.Subscribe(func(State) {
		// Calling back into the container must not deadlock.
		done <- len(c.State().Notifications)
	})
	c.Notify(NotifyInfo, "Info", "hello")
	assert.Equal(t, 1, <-done)
}

func TestPersist_Scope(t *testing.T) {
	tests := []struct {
		name              string
		scope             PersistScope
		wantBoard         bool
		wantNotifications bool
	}{
		{"board only", PersistBoard, true, false},
		{"notifications only", PersistNotifications, false, true},
		{"all", PersistAll, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state", "board.json")
			cfg := PersistConfig{Path: path, Scope: tt.scope}
			c, _ := newLoaded(t, cfg)
			c.Notify(NotifyWarning, "Aviso", "persist me")
			c.SetQuery("secret")

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			var saved map[string]any
			require.NoError(t, sonic.Unmarshal(raw, &saved))
			assert.Equal(t, tt.wantBoard, saved["board"] != nil)
			assert.Equal(t, tt.wantNotifications, saved["notifications"] != nil)
			assert.NotContains(t, string(raw), "secret", "query is session state")

			restored := New(Options{Persist: cfg})
			require.NoError(t, restored.Restore())
			st := restored.State()
			if tt.wantBoard {
				require.NotNil(t, st.Board)
				assert.Equal(t, "board-1", st.Board.ID)
				assert.Len(t, st.Board.Lists, 3)
			} else {
				assert.Nil(t, st.Board)
			}
			if tt.wantNotifications {
				require.Len(t, st.Notifications, 1)
				assert.Equal(t, "persist me", st.Notifications[0].Message)
			} else {
				assert.Empty(t, st.Notifications)
			}
			assert.Empty(t, st.Query)
			assert.Nil(t, st.OpenCard)
		})
	}
}

func TestPersist_Disabled(t *testing.T) {
	dir := t.TempDir()
	c, _ := newLoaded(t, PersistConfig{Path: filepath.Join(dir, "state.json"), Scope: PersistNone})
	c.Notify(NotifyInfo, "Info", "x")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, c.Restore())
}

func TestRestore_MissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	c := New(Options{Persist: PersistConfig{Path: path, Scope: PersistAll}})
	require.NoError(t, c.Restore(), "missing file is not an error")
	assert.Nil(t, c.Board())

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	assert.Error(t, c.Restore())
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "applied_locally", AppliedLocally.String())
	assert.Equal(t, "confirmed", Confirmed.String())
	assert.Equal(t, "failed_dangling", FailedDangling.String())
	assert.Equal(t, "rejected", Rejected.String())
	assert.Equal(t, "status(9)", Status(9).String())
}
