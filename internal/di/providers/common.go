package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// startupPingTimeout bounds connectivity checks against optional dependencies.
	startupPingTimeout = 3 * time.Second
)

// Version is the server version, set at build time with
// -ldflags "-X github.com/taskboard/taskboard-server/internal/di/providers.Version=...".
var Version = "dev"
