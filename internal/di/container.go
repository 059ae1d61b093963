// Package di provides dependency injection configuration for the taskboard server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/taskboard/taskboard-server/internal/api"
	"github.com/taskboard/taskboard-server/internal/auth"
	"github.com/taskboard/taskboard-server/internal/config"
	"github.com/taskboard/taskboard-server/internal/di/providers"
	"github.com/taskboard/taskboard-server/internal/logger"
	"github.com/taskboard/taskboard-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideTracerProvider)

	// Persistence
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Auth layer
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideAuthenticator)

	// Business services
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideBoardService)

	// Server
	do.Provide(injector, providers.ProvideRateLimiter)
	do.Provide(injector, providers.ProvideAPIServer)
	do.Provide(injector, providers.ProvideHTTPServer)
	do.Provide(injector, providers.ProvideMDNSService)

	return injector
}

// Bootstrap initializes all services and starts the HTTP server.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	invokers := []func(do.Injector) error{
		invoke[*config.Config],
		invoke[*logger.Logger],
		invoke[*providers.TracerProviderHandle],
		invoke[*providers.StoreHandle],
		invoke[*providers.SearchIndexHandle],
		invoke[providers.AuthKey],
		invoke[*auth.TokenService],
		invoke[*providers.AuthenticatorHandle],
		invoke[*service.AuthService],
		invoke[*service.BoardService],
		invoke[*providers.RateLimiterHandle],
		invoke[*api.Server],
	}
	for _, fn := range invokers {
		if err := fn(injector); err != nil {
			return err
		}
	}

	// Index boards written while search was disabled or before a mapping change.
	providers.TriggerSearchReindexIfNeeded(injector)

	if err := invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}

	// Advertise only once the listener is up.
	return invoke[*providers.MDNSServiceHandle](injector)
}

func invoke[T any](i do.Injector) error {
	_, err := do.Invoke[T](i)
	return err
}
