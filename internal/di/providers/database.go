package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do/v2"

	"github.com/taskboard/taskboard-server/internal/config"
	"github.com/taskboard/taskboard-server/internal/logger"
	"github.com/taskboard/taskboard-server/internal/store"
	"github.com/taskboard/taskboard-server/internal/store/cache"
	"github.com/taskboard/taskboard-server/internal/store/sqlite"
)

// StoreHandle wraps the configured backend with shutdown capability.
type StoreHandle struct {
	store.Backend
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured backend and, when redis is configured,
// wraps it in the read-through cache.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	backend, err := openBackend(cfg.Store, log)
	if err != nil {
		return nil, err
	}

	if cfg.Cache.RedisAddr == "" {
		return &StoreHandle{Backend: backend}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), startupPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		// The cache is optional; run uncached rather than refuse to start.
		log.Warn("Redis unavailable, board cache disabled", "addr", cfg.Cache.RedisAddr, "error", err)
		_ = client.Close()
		return &StoreHandle{Backend: backend}, nil
	}

	log.Info("Board cache enabled", "addr", cfg.Cache.RedisAddr, "ttl", cfg.Cache.TTL)
	return &StoreHandle{Backend: cache.New(backend, client, cfg.Cache.TTL, log.Logger)}, nil
}

func openBackend(cfg config.StoreConfig, log *logger.Logger) (store.Backend, error) {
	switch cfg.Driver {
	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		db, err := sqlite.Open(cfg.Path, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("Database initialized", "driver", cfg.Driver, "path", cfg.Path)
		return db, nil
	default:
		db, err := store.New(cfg.Path, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("Database initialized", "driver", cfg.Driver, "path", cfg.Path)
		return db, nil
	}
}
