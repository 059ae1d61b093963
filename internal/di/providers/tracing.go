package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/taskboard/taskboard-server/internal/config"
	"github.com/taskboard/taskboard-server/internal/logger"
	"github.com/taskboard/taskboard-server/internal/telemetry"
)

// TracerProviderHandle flushes pending spans on shutdown.
type TracerProviderHandle struct {
	telemetry.Provider
}

// Shutdown implements do.Shutdownable.
func (h *TracerProviderHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Provider.Shutdown(ctx)
}

// ProvideTracerProvider provides the OpenTelemetry tracer provider.
func ProvideTracerProvider(i do.Injector) (*TracerProviderHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	tp := telemetry.NewTracerProvider(telemetry.Options{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Logger:      log.Logger,
	})
	if cfg.Tracing.Enabled {
		log.Info("Tracing enabled", "service_name", cfg.Tracing.ServiceName)
	}

	return &TracerProviderHandle{Provider: tp}, nil
}
