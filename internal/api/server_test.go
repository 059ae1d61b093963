package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskboard/taskboard-server/internal/auth"
	"github.com/taskboard/taskboard-server/internal/ratelimit"
	"github.com/taskboard/taskboard-server/internal/search"
	"github.com/taskboard/taskboard-server/internal/service"
	"github.com/taskboard/taskboard-server/internal/store"
)

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api   humatest.TestAPI
	store *store.Store
}

// setupTestServer creates a server over an in-memory store with a search index.
func setupTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()

	st, err := store.Open(store.Options{InMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	index, err := search.NewSearchIndex(search.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	authKey, err := auth.LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)
	tokenService, err := auth.NewTokenService(authKey, time.Hour)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	services := &Services{
		Auth:   service.NewAuthService(st, tokenService, nil, logger),
		Board:  service.NewBoardService(st, index, service.BoardServiceConfig{}, logger),
		Search: index,
	}

	s := NewServer(st, services, opts, logger)
	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.api),
		store:  st,
	}
}

// registerUser creates an account and returns its id and bearer header.
func (ts *testServer) registerUser(t *testing.T, name, email string) (string, string) {
	t.Helper()
	resp, err := ts.services.Auth.Register(context.Background(), service.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: "password123",
	})
	require.NoError(t, err)
	return resp.User.ID, "Authorization: Bearer " + resp.Token
}

// envelope decodes a response body.
func envelope(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, sonic.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return out
}

// data returns the data object of a response envelope.
func data(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	env := envelope(t, resp)
	d, ok := env["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %s", resp.Body.String())
	return d
}

// assertFailure checks an error envelope.
func assertFailure(t *testing.T, resp *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	require.Equal(t, status, resp.Code, resp.Body.String())
	env := envelope(t, resp)
	assert.Equal(t, false, env["success"])
	assert.Equal(t, message, env["message"])
	assert.NotContains(t, env, "data")
}

func TestServer_RouteNotFound(t *testing.T) {
	ts := setupTestServer(t, Options{})

	w := httptest.NewRecorder()
	ts.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	assertFailure(t, w, http.StatusNotFound, "Route not found")
}

func TestServer_HealthCheck(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Get("/api/health")
	require.Equal(t, http.StatusOK, resp.Code)

	env := envelope(t, resp)
	assert.Equal(t, true, env["success"])
	d := data(t, resp)
	assert.Equal(t, "OK", d["status"])
	assert.NotEmpty(t, d["timestamp"])
	assert.GreaterOrEqual(t, d["uptime"], float64(0))

	components, ok := d["components"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "healthy", components["database"].(map[string]any)["status"])
	assert.Equal(t, "healthy", components["search"].(map[string]any)["status"])
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestServer_HealthCheck_DatabaseDown(t *testing.T) {
	s := NewServer(failingPinger{}, &Services{}, Options{}, nil)
	api := humatest.Wrap(t, s.api)

	resp := api.Get("/api/health")
	require.Equal(t, http.StatusOK, resp.Code)
	d := data(t, resp)
	assert.Equal(t, "DEGRADED", d["status"])
	components := d["components"].(map[string]any)
	assert.Equal(t, "unhealthy", components["database"].(map[string]any)["status"])
	assert.Equal(t, "degraded", components["search"].(map[string]any)["status"])
}

func TestServer_CORS(t *testing.T) {
	ts := setupTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodOptions, "/api/board", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	w := httptest.NewRecorder()
	ts.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestServer_RateLimit(t *testing.T) {
	limiter := ratelimit.NewWindow(2, time.Minute)
	t.Cleanup(limiter.Stop)
	ts := setupTestServer(t, Options{RateLimiter: limiter})

	for range 2 {
		resp := ts.api.Get("/api/health", "X-Forwarded-For: 203.0.113.7")
		require.Equal(t, http.StatusOK, resp.Code)
	}

	resp := ts.api.Get("/api/health", "X-Forwarded-For: 203.0.113.7")
	assertFailure(t, resp, http.StatusTooManyRequests, "Too many requests from this IP, please try again later.")
	assert.NotEmpty(t, resp.Header().Get("Retry-After"))

	// Other clients keep their own budget.
	resp = ts.api.Get("/api/health", "X-Forwarded-For: 198.51.100.1")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:1234", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.1"}, "10.0.0.2:1234", "198.51.100.1"},
		{"remote addr", nil, "192.0.2.5:5000", "192.0.2.5"},
		{"remote ipv6", nil, "[::1]:5000", "::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}

func TestServer_OpenAPI(t *testing.T) {
	ts := setupTestServer(t, Options{})

	spec := ts.API().OpenAPI()
	require.NotNil(t, spec.Paths)
	for _, path := range []string{
		"/api/board",
		"/api/board/{id}",
		"/api/board/{id}/lists",
		"/api/board/{id}/lists/{listId}/cards/{cardId}",
		"/api/auth/login",
	} {
		assert.Contains(t, spec.Paths, path)
	}
	assert.Contains(t, spec.Components.SecuritySchemes, "bearer")
}
