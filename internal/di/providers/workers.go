package providers

import (
	"github.com/samber/do/v2"

	"github.com/taskboard/taskboard-server/internal/config"
	"github.com/taskboard/taskboard-server/internal/logger"
	"github.com/taskboard/taskboard-server/internal/ratelimit"
)

// RateLimiterHandle stops the limiter's idle-entry sweeper on shutdown.
type RateLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideRateLimiter provides the per-IP request limiter.
func ProvideRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	limiter := ratelimit.NewWindow(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	log.Info("Rate limiter started",
		"requests", cfg.RateLimit.Requests,
		"window", cfg.RateLimit.Window,
	)

	return &RateLimiterHandle{KeyedRateLimiter: limiter}, nil
}
