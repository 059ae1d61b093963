package providers

import (
	"github.com/samber/do/v2"

	"github.com/taskboard/taskboard-server/internal/auth"
	"github.com/taskboard/taskboard-server/internal/config"
	"github.com/taskboard/taskboard-server/internal/logger"
	"github.com/taskboard/taskboard-server/internal/service"
)

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	authenticator := do.MustInvoke[*AuthenticatorHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle, tokenService, authenticator.Authenticator, log.Logger), nil
}

// ProvideBoardService provides the board service.
func ProvideBoardService(i do.Injector) (*service.BoardService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	tracer := do.MustInvoke[*TracerProviderHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Board.RelaxedCardAccess {
		log.Warn("Relaxed card access enabled: any authenticated user can update cards on any board")
	}

	// Assign through the interface only when present so a disabled index stays a nil CardIndex.
	var index service.CardIndex
	if indexHandle.SearchIndex != nil {
		index = indexHandle.SearchIndex
	}

	return service.NewBoardService(storeHandle, index, service.BoardServiceConfig{
		RelaxedCardAccess: cfg.Board.RelaxedCardAccess,
		MaxSaveAttempts:   cfg.Board.MaxSaveAttempts,
		TracerProvider:    tracer.Provider,
	}, log.Logger), nil
}
