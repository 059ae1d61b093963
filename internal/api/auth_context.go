package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/logger"
	"github.com/taskboard/taskboard-server/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

const (
	// userKey is the context key for the authenticated user.
	userKey ctxKey = "user"
	// authErrKey holds the reason a presented token was rejected.
	authErrKey ctxKey = "authErr"
)

// GetUser returns the authenticated user from context.
// Returns a 401 error naming why the request is not authenticated.
func GetUser(ctx context.Context) (*domain.User, error) {
	if user, ok := ctx.Value(userKey).(*domain.User); ok && user != nil {
		return user, nil
	}
	if err, ok := ctx.Value(authErrKey).(error); ok {
		return nil, err
	}
	return nil, service.ErrNoToken
}

// GetUserID returns the authenticated user ID from context.
func GetUserID(ctx context.Context) (string, error) {
	user, err := GetUser(ctx)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// setUser stores the user in context.
func setUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// authMiddleware returns a middleware that validates Bearer tokens and stores the user in context.
// If no token is present or it is invalid, continues without a user and records the reason.
// Handlers use GetUser to check authentication.
func authMiddleware(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			user, _, err := auth.VerifyToken(ctx, token)
			if err != nil {
				next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, authErrKey, err)))
				return
			}

			ctx = setUser(ctx, user)
			if l := logger.FromContext(ctx, nil); l != nil {
				ctx = logger.NewContext(ctx, l.WithField("user_id", user.ID))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
