package providers

import (
	"context"

	"github.com/MicahParks/keyfunc"
	"github.com/samber/do/v2"

	"github.com/taskboard/taskboard-server/internal/auth"
	"github.com/taskboard/taskboard-server/internal/config"
	"github.com/taskboard/taskboard-server/internal/logger"
)

// AuthKey wraps the authentication key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the authentication key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Metadata.BasePath)
	if err != nil {
		return nil, err
	}

	// Update config with the loaded key
	cfg.Auth.AccessTokenKey = key

	log.Info("Authentication key loaded",
		"access_token_duration", cfg.Auth.AccessTokenDuration,
		"legacy_jwt", cfg.Auth.LegacyJWTSecret != "",
		"jwks", cfg.Auth.JWKSURL != "",
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService([]byte(authKey), cfg.Auth.AccessTokenDuration)
}

// AuthenticatorHandle owns the authenticator and the JWKS refresh goroutine.
type AuthenticatorHandle struct {
	*auth.Authenticator
	jwks   *keyfunc.JWKS
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *AuthenticatorHandle) Shutdown() error {
	h.cancel()
	if h.jwks != nil {
		h.jwks.EndBackground()
	}
	return nil
}

// ProvideAuthenticator provides the bearer token verifier. Legacy HS256 and
// JWKS-signed RS256 tokens are accepted only when configured.
func ProvideAuthenticator(i do.Injector) (*AuthenticatorHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	tokens := do.MustInvoke[*auth.TokenService](i)

	ctx, cancel := context.WithCancel(context.Background())
	opts := []auth.Option{auth.WithLegacySecret(cfg.Auth.LegacyJWTSecret)}

	var jwks *keyfunc.JWKS
	if cfg.Auth.JWKSURL != "" {
		var err error
		jwks, err = auth.FetchJWKS(ctx, cfg.Auth.JWKSURL, auth.JWKSOptions{
			OnRefreshError: func(err error) {
				log.Warn("JWKS refresh failed", "url", cfg.Auth.JWKSURL, "error", err)
			},
		})
		if err != nil {
			cancel()
			return nil, err
		}
		opts = append(opts, auth.WithJWKS(jwks))
		log.Info("JWKS loaded", "url", cfg.Auth.JWKSURL, "keys", jwks.Len())
	}

	return &AuthenticatorHandle{
		Authenticator: auth.NewAuthenticator(tokens, opts...),
		jwks:          jwks,
		cancel:        cancel,
	}, nil
}
