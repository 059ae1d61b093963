package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

// Authenticator verifies every bearer token format the API accepts.
type Authenticator struct {
	tokens       *TokenService
	legacySecret []byte
	jwks         *keyfunc.JWKS
	parser       *jwt.Parser
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithLegacySecret accepts HS256 JWTs signed with secret whose payload carries
// userId, as issued by the previous backend.
func WithLegacySecret(secret string) Option {
	return func(a *Authenticator) {
		if secret != "" {
			a.legacySecret = []byte(secret)
		}
	}
}

// WithJWKS accepts RS256 JWTs signed by a key in jwks.
func WithJWKS(jwks *keyfunc.JWKS) Option {
	return func(a *Authenticator) {
		a.jwks = jwks
	}
}

// NewAuthenticator creates an Authenticator. Without options only PASETO
// tokens from tokens are accepted.
func NewAuthenticator(tokens *TokenService, opts ...Option) *Authenticator {
	a := &Authenticator{tokens: tokens}
	for _, opt := range opts {
		opt(a)
	}

	methods := make([]string, 0, 2)
	if a.legacySecret != nil {
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if a.jwks != nil {
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}
	a.parser = jwt.NewParser(jwt.WithValidMethods(methods))

	return a
}

// Verify returns the claims of a valid token, ErrTokenExpired for a token that
// has expired, or ErrTokenInvalid otherwise.
func (a *Authenticator) Verify(token string) (*AccessClaims, error) {
	if isPaseto(token) {
		return a.tokens.VerifyAccessToken(token)
	}
	if a.legacySecret == nil && a.jwks == nil {
		return nil, ErrTokenInvalid
	}
	return a.verifyJWT(token)
}

func (a *Authenticator) verifyJWT(token string) (*AccessClaims, error) {
	source := SourceLegacy
	parsed, err := a.parser.Parse(token, func(t *jwt.Token) (any, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodHMAC:
			if a.legacySecret == nil {
				return nil, errors.New("legacy tokens not accepted")
			}
			return a.legacySecret, nil
		case *jwt.SigningMethodRSA:
			if a.jwks == nil {
				return nil, errors.New("jwks not configured")
			}
			source = SourceJWKS
			return a.jwks.Keyfunc(t)
		default:
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims", ErrTokenInvalid)
	}

	claims := &AccessClaims{Source: source}
	claims.Subject, _ = mc["sub"].(string)
	claims.Issuer, _ = mc["iss"].(string)
	claims.Email, _ = mc["email"].(string)
	claims.TokenID, _ = mc["jti"].(string)
	claims.UserID, _ = mc["userId"].(string)
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing userId", ErrTokenInvalid)
	}
	if exp, ok := mc["exp"].(float64); ok {
		claims.Expiration = time.Unix(int64(exp), 0)
	}
	if iat, ok := mc["iat"].(float64); ok {
		claims.IssuedAt = time.Unix(int64(iat), 0)
	}

	return claims, nil
}

// JWKSOptions configures background refresh of a remote key set.
type JWKSOptions struct {
	RefreshInterval time.Duration
	OnRefreshError  func(error)
}

// FetchJWKS downloads the key set at url and keeps it fresh until ctx is done.
func FetchJWKS(ctx context.Context, url string, opts JWKSOptions) (*keyfunc.JWKS, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("jwks url is empty")
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = time.Hour
	}

	jwks, err := keyfunc.Get(url, keyfunc.Options{
		Ctx:                 ctx,
		RefreshInterval:     opts.RefreshInterval,
		RefreshRateLimit:    5 * time.Minute,
		RefreshTimeout:      10 * time.Second,
		RefreshUnknownKID:   true,
		RefreshErrorHandler: opts.OnRefreshError,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	return jwks, nil
}
