// Package cache decorates a store.Backend with a redis read-through cache for
// single board and user lookups. Writes go to the backend first and then evict.
//
// Fills only set absent keys, and deleted boards leave a tombstone for one
// ttl, so a reader that loaded a board before it was deleted cannot put it
// back into the cache.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/store"
)

// tombstone marks a board deleted from the backend.
const tombstone = "\x00deleted"

// Store wraps a backend with redis-backed caching for GetBoard and GetUser.
type Store struct {
	store.Backend
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ store.Backend = (*Store)(nil)

// New creates a caching wrapper. A nil client or a zero ttl disables caching.
func New(base store.Backend, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Store {
	if base == nil {
		panic("cache.New: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Store{
		Backend: base,
		redis:   client,
		ttl:     ttl,
		logger:  logger,
	}
}

// GetBoard returns the cached board or loads and caches it.
func (c *Store) GetBoard(ctx context.Context, id string) (*domain.Board, error) {
	var b domain.Board
	if c.load(ctx, boardKey(id), &b) {
		return &b, nil
	}

	board, err := c.Backend.GetBoard(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(ctx, boardKey(id), board)
	return board, nil
}

// CreateBoard writes through and evicts any stale entry under the same id.
func (c *Store) CreateBoard(ctx context.Context, board *domain.Board) error {
	if err := c.Backend.CreateBoard(ctx, board); err != nil {
		return err
	}
	c.evict(ctx, boardKey(board.ID))
	return nil
}

// SaveBoard writes through. The entry is evicted after success and after a
// version conflict, so a retry reads the current version. A board that no
// longer exists is buried.
func (c *Store) SaveBoard(ctx context.Context, board *domain.Board, expectedVersion int64) error {
	err := c.Backend.SaveBoard(ctx, board, expectedVersion)
	switch {
	case err == nil, errors.Is(err, store.ErrVersionConflict):
		c.evict(ctx, boardKey(board.ID))
	case errors.Is(err, store.ErrNotFound):
		c.bury(ctx, boardKey(board.ID))
	}
	return err
}

// DeleteBoard deletes and buries the entry.
func (c *Store) DeleteBoard(ctx context.Context, id string) error {
	err := c.Backend.DeleteBoard(ctx, id)
	if err == nil || errors.Is(err, store.ErrNotFound) {
		c.bury(ctx, boardKey(id))
	}
	return err
}

// GetUser returns the cached user or loads and caches it.
func (c *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	if c.load(ctx, userKey(id), &u) {
		return &u, nil
	}

	user, err := c.Backend.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(ctx, userKey(id), user)
	return user, nil
}

// UpdateUser writes through and evicts.
func (c *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	if err := c.Backend.UpdateUser(ctx, user); err != nil {
		return err
	}
	c.evict(ctx, userKey(user.ID))
	return nil
}

// Ping checks the backend and, when configured, redis.
func (c *Store) Ping(ctx context.Context) error {
	if err := c.Backend.Ping(ctx); err != nil {
		return err
	}
	if c.redis == nil {
		return nil
	}
	return c.redis.Ping(ctx).Err()
}

// Close closes the redis client and the backend.
func (c *Store) Close() error {
	var redisErr error
	if c.redis != nil {
		redisErr = c.redis.Close()
	}
	return errors.Join(c.Backend.Close(), redisErr)
}

func (c *Store) load(ctx context.Context, key string, dest any) bool {
	if c.redis == nil || c.ttl == 0 {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// On redis errors fall back to the backing store without failing.
			c.warn("cache read failed", key, err)
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if string(data) == tombstone {
		return false
	}
	if err := store.Unmarshal(data, dest); err != nil {
		c.warn("cache entry corrupt", key, err)
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Store) put(ctx context.Context, key string, value any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := store.Marshal(value)
	if err != nil {
		return
	}
	// SetNX never replaces a tombstone.
	if err := c.redis.SetNX(ctx, key, data, c.ttl).Err(); err != nil {
		c.warn("cache write failed", key, err)
	}
}

// bury replaces key with a tombstone for one ttl.
func (c *Store) bury(ctx context.Context, key string) {
	if c.redis == nil {
		return
	}
	if c.ttl == 0 {
		c.evict(ctx, key)
		return
	}
	if err := c.redis.Set(ctx, key, tombstone, c.ttl).Err(); err != nil {
		c.warn("cache evict failed", key, err)
	}
}

func (c *Store) evict(ctx context.Context, keys ...string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.warn("cache evict failed", keys[0], err)
	}
}

func (c *Store) warn(msg, key string, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, "key", key, "error", err)
	}
}

func boardKey(id string) string {
	return "taskboard:board:" + id
}

func userKey(id string) string {
	return "taskboard:user:" + id
}
