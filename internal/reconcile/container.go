// Package reconcile holds client-side board state and applies mutations
// optimistically, reconciling them with the server's responses.
//
// A mutation is applied to local state at once and sent in the background.
// When the server confirms it, local state becomes the returned board with
// every still-pending mutation replayed on top. A confirmation older than the
// newest server board rebuilds from that board instead, since the server has
// already folded the mutation into it. When the server rejects it,
// the optimistic change is left in place and an error notification is added;
// the next confirmed response or reload replaces it.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/dto"
)

// ErrNoBoard is returned for mutations issued before a board is loaded.
var ErrNoBoard = errors.New("no board loaded")

// OpenCard is the card currently shown in detail.
type OpenCard struct {
	ListID string
	Card   *domain.Card
}

// State is a consistent copy of the container's state.
type State struct {
	Board         *dto.Board
	Pending       int
	OpenCard      *OpenCard
	Query         string
	Notifications []Notification
	Unread        int

	rev uint64
}

// Options configures a Container.
type Options struct {
	API     API
	Persist PersistConfig
	Logger  *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type pendingOp struct {
	seq uint64
	m   Mutation
}

// Container is the client's board state. It is safe for concurrent use.
type Container struct {
	api     API
	persist PersistConfig
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	board    *dto.Board
	server   *dto.Board
	version  int64
	pending  []pendingOp
	seq      uint64
	openCard *OpenCard
	query    string
	feed     feed

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int

	rev       uint64
	persistMu sync.Mutex
	savedRev  uint64
}

// New creates an empty container.
func New(opts Options) *Container {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Container{
		api:     opts.API,
		persist: opts.Persist,
		logger:  opts.Logger.With("component", "reconcile"),
		now:     opts.Now,
		subs:    make(map[int]func(State)),
	}
}

// Subscribe registers fn to receive the state after every change.
// fn is called without the container lock held. The returned func unsubscribes.
func (c *Container) Subscribe(fn func(State)) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// State returns a copy of the current state.
func (c *Container) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Board returns a copy of the local board, or nil.
func (c *Container) Board() *dto.Board {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.board.Clone()
}

// Load fetches a board from the server and makes it the local state.
func (c *Container) Load(ctx context.Context, boardID string) error {
	b, err := c.api.GetBoard(ctx, boardID)
	if err != nil {
		c.logger.Warn("board load failed", "board_id", boardID, "error", err)
		return err
	}
	c.SetBoard(b)
	return nil
}

// SetBoard replaces local state with b and drops pending mutations.
// Responses to dropped mutations are still checked against b's version.
func (c *Container) SetBoard(b *dto.Board) {
	c.mu.Lock()
	if c.board == nil || b == nil || c.board.ID != b.ID {
		c.openCard = nil
		c.query = ""
	}
	c.board = b.Clone()
	c.server = b.Clone()
	c.version = 0
	if b != nil {
		c.version = b.Version
	}
	c.pending = nil
	c.refreshOpenCardLocked()
	st := c.snapshotLocked()
	c.mu.Unlock()

	c.changed(st)
}

// Do applies m locally and sends it to the server.
//
// The first result is returned directly: AppliedLocally, or Rejected when m
// could not be applied. After AppliedLocally, exactly one terminal result
// (Confirmed or FailedDangling) is delivered on the channel, which is then
// closed. A Rejected result comes with a closed channel.
func (c *Container) Do(ctx context.Context, m Mutation) (Result, <-chan Result) {
	done := make(chan Result, 1)

	c.mu.Lock()
	if c.board == nil {
		c.mu.Unlock()
		close(done)
		return Result{Status: Rejected, Mutation: m.Name(), Err: ErrNoBoard}, done
	}
	next := c.board.Clone()
	if err := m.Apply(next, c.now()); err != nil {
		c.mu.Unlock()
		close(done)
		return Result{Status: Rejected, Mutation: m.Name(), Err: err}, done
	}
	c.board = next
	c.seq++
	op := pendingOp{seq: c.seq, m: m}
	c.pending = append(c.pending, op)
	boardID := next.ID
	c.refreshOpenCardLocked()
	st := c.snapshotLocked()
	c.mu.Unlock()

	c.changed(st)

	go func() {
		defer close(done)
		b, err := m.Send(ctx, c.api, boardID)
		done <- c.settle(op, boardID, b, err)
	}()

	return Result{Status: AppliedLocally, Mutation: m.Name(), Version: st.Board.Version}, done
}

// Apply runs m and waits for its terminal result.
func (c *Container) Apply(ctx context.Context, m Mutation) Result {
	first, ch := c.Do(ctx, m)
	if first.Terminal() {
		return first
	}
	return <-ch
}

func (c *Container) settle(op pendingOp, boardID string, b *dto.Board, sendErr error) Result {
	c.mu.Lock()
	wasPending := c.removePendingLocked(op.seq)

	if sendErr != nil {
		c.feed.add(NotifyError, "Error", op.m.FailureMessage(), c.now())
		st := c.snapshotLocked()
		c.mu.Unlock()
		c.logger.Warn("mutation failed", "mutation", op.m.Name(), "board_id", boardID, "error", sendErr)
		c.changed(st)
		return Result{Status: FailedDangling, Mutation: op.m.Name(), Err: sendErr}
	}

	res := Result{Status: Confirmed, Mutation: op.m.Name()}
	if b != nil {
		res.Version = b.Version
	}
	if b == nil || c.board == nil || b.ID != c.board.ID || b.Version < c.version {
		res.Stale = true
		// The newer server board already contains this mutation; replaying it
		// again from pending would apply it twice.
		if wasPending && c.board != nil && c.server != nil && c.server.ID == c.board.ID {
			c.rebaseLocked(c.server)
		}
		st := c.snapshotLocked()
		c.mu.Unlock()
		c.logger.Debug("stale confirmation ignored",
			"mutation", op.m.Name(), "version", res.Version, "was_pending", wasPending)
		c.changed(st)
		return res
	}

	c.rebaseLocked(b)
	st := c.snapshotLocked()
	c.mu.Unlock()

	c.changed(st)
	return res
}

// rebaseLocked records b as the newest server board, then makes it the local
// state with pending mutations replayed on top.
func (c *Container) rebaseLocked(b *dto.Board) {
	c.server = b.Clone()
	next := b.Clone()
	now := c.now()
	for _, p := range c.pending {
		if err := p.m.Apply(next, now); err != nil {
			c.logger.Debug("pending mutation no longer applies", "mutation", p.m.Name(), "error", err)
		}
	}
	c.board = next
	c.version = b.Version
	c.refreshOpenCardLocked()
}

func (c *Container) removePendingLocked(seq uint64) bool {
	i := slices.IndexFunc(c.pending, func(p pendingOp) bool { return p.seq == seq })
	if i < 0 {
		return false
	}
	c.pending = slices.Delete(c.pending, i, i+1)
	return true
}

// OpenCardByID shows a card in detail. It returns false if the card is not on the board.
func (c *Container) OpenCardByID(cardID string) bool {
	c.mu.Lock()
	ok := false
	if c.board != nil {
		if list, card := c.board.FindCard(cardID); card != nil {
			c.openCard = &OpenCard{ListID: list.ID, Card: card.Clone()}
			ok = true
		}
	}
	st := c.snapshotLocked()
	c.mu.Unlock()

	if ok {
		c.changed(st)
	}
	return ok
}

// CloseCard clears the open card.
func (c *Container) CloseCard() {
	c.mu.Lock()
	c.openCard = nil
	st := c.snapshotLocked()
	c.mu.Unlock()
	c.changed(st)
}

// refreshOpenCardLocked follows the open card to its current list, or closes
// it when the card is gone.
func (c *Container) refreshOpenCardLocked() {
	if c.openCard == nil {
		return
	}
	if c.board == nil {
		c.openCard = nil
		return
	}
	list, card := c.board.FindCard(c.openCard.Card.ID)
	if card == nil {
		c.openCard = nil
		return
	}
	c.openCard = &OpenCard{ListID: list.ID, Card: card.Clone()}
}

// SetQuery sets the card filter.
func (c *Container) SetQuery(q string) {
	c.mu.Lock()
	c.query = q
	st := c.snapshotLocked()
	c.mu.Unlock()
	c.changed(st)
}

// Matches returns copies of the cards matching the current query, or all
// cards when the query is empty.
func (c *Container) Matches() []*domain.Card {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.board == nil {
		return nil
	}
	var cards []*domain.Card
	if c.query == "" {
		for _, l := range c.board.Lists {
			cards = append(cards, l.Cards...)
		}
	} else {
		cards = c.board.SearchCards(c.query)
	}
	out := make([]*domain.Card, len(cards))
	for i, card := range cards {
		out[i] = card.Clone()
	}
	return out
}

// Notify adds a notification.
func (c *Container) Notify(typ NotificationType, title, message string) Notification {
	c.mu.Lock()
	n := c.feed.add(typ, title, message, c.now())
	st := c.snapshotLocked()
	c.mu.Unlock()
	c.changed(st)
	return n
}

// MarkRead marks one notification read.
func (c *Container) MarkRead(id string) bool {
	return c.updateFeed(func(f *feed) bool { return f.markRead(id) })
}

// MarkAllRead marks every notification read.
func (c *Container) MarkAllRead() {
	c.updateFeed(func(f *feed) bool { f.markAllRead(); return true })
}

// RemoveNotification deletes one notification.
func (c *Container) RemoveNotification(id string) bool {
	return c.updateFeed(func(f *feed) bool { return f.remove(id) })
}

// ClearNotifications empties the feed.
func (c *Container) ClearNotifications() {
	c.updateFeed(func(f *feed) bool { f.clear(); return true })
}

func (c *Container) updateFeed(fn func(*feed) bool) bool {
	c.mu.Lock()
	ok := fn(&c.feed)
	st := c.snapshotLocked()
	c.mu.Unlock()
	if ok {
		c.changed(st)
	}
	return ok
}

// Reset clears all state, as on logout, and records the logout notification.
func (c *Container) Reset() {
	c.mu.Lock()
	c.board = nil
	c.server = nil
	c.version = 0
	c.pending = nil
	c.openCard = nil
	c.query = ""
	c.feed.clear()
	c.feed.add(NotifySuccess, "Sesión cerrada", "Has cerrado sesión exitosamente", c.now())
	st := c.snapshotLocked()
	c.mu.Unlock()
	c.changed(st)
}

// Restore loads persisted state within the configured scope.
func (c *Container) Restore() error {
	if !c.persist.enabled() {
		return nil
	}
	saved, err := readState(c.persist.Path)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.persist.Scope.Has(PersistBoard) && saved.Board != nil {
		c.board = saved.Board
		c.server = saved.Board.Clone()
		c.version = saved.Board.Version
		c.pending = nil
	}
	if c.persist.Scope.Has(PersistNotifications) {
		c.feed.restore(saved.Notifications)
	}
	st := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Debug("state restored", "path", c.persist.Path, "board", st.Board != nil, "notifications", len(st.Notifications))
	c.notifySubscribers(st)
	return nil
}

func (c *Container) snapshotLocked() State {
	c.rev++
	st := State{
		rev:           c.rev,
		Board:         c.board.Clone(),
		Pending:       len(c.pending),
		Query:         c.query,
		Notifications: c.feed.snapshot(),
		Unread:        c.feed.unread(),
	}
	if c.openCard != nil {
		st.OpenCard = &OpenCard{ListID: c.openCard.ListID, Card: c.openCard.Card.Clone()}
	}
	return st
}

// changed persists st and hands it to subscribers.
func (c *Container) changed(st State) {
	c.save(st)
	c.notifySubscribers(st)
}

func (c *Container) save(st State) {
	if !c.persist.enabled() {
		return
	}
	out := persistedState{SavedAt: c.now()}
	if c.persist.Scope.Has(PersistBoard) {
		out.Board = st.Board
	}
	if c.persist.Scope.Has(PersistNotifications) {
		out.Notifications = st.Notifications
	}

	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	// Writers may arrive out of order; never replace newer state with older.
	if st.rev <= c.savedRev {
		return
	}
	c.savedRev = st.rev
	if err := writeState(c.persist.Path, out); err != nil {
		c.logger.Warn("failed to persist state", "path", c.persist.Path, "error", err)
	}
}

func (c *Container) notifySubscribers(st State) {
	c.subMu.Lock()
	fns := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
