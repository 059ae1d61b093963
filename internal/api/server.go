// Package api provides the HTTP API server and handlers for the taskboard application.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/taskboard/taskboard-server/internal/http/response"
	"github.com/taskboard/taskboard-server/internal/ratelimit"
)

// APIVersion is reported in the OpenAPI document.
const APIVersion = "1.0.0" //nolint:revive // API prefix is intentional for clarity

// Options configures the HTTP server.
type Options struct {
	// Name is the OpenAPI title.
	Name string
	// Development exposes the cause of 500 responses to clients.
	Development bool
	// CORSOrigins lists allowed origins. Empty or "*" reflects any origin.
	CORSOrigins []string
	// RateLimiter limits requests per client IP. Nil disables limiting.
	RateLimiter *ratelimit.KeyedRateLimiter
	// MaxBodyBytes bounds request bodies. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store     Pinger
	services  *Services
	router    *chi.Mux
	api       huma.API
	logger    *slog.Logger
	opts      Options
	startedAt time.Time
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(store Pinger, services *Services, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Name == "" {
		opts.Name = "Taskboard API"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	router := chi.NewRouter()
	s := &Server{
		store:     store,
		services:  services,
		router:    router,
		logger:    logger,
		opts:      opts,
		startedAt: time.Now(),
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig(opts.Name, APIVersion)
	humaConfig.OpenAPIPath = "/api/openapi"
	humaConfig.DocsPath = "/api/docs"
	humaConfig.SchemasPath = "/api/schemas"
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler(ErrorOptions{ExposeDetails: opts.Development, Logger: logger})

	s.registerRoutes()

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "Route not found", s.logger)
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, s.logger)
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, for OpenAPI generation.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(recoverer(s.logger))
	s.router.Use(cors.Handler(corsOptions(s.opts.CORSOrigins)))
	if s.opts.RateLimiter != nil {
		s.router.Use(RateLimitMiddleware(s.opts.RateLimiter, s.logger))
	}
	s.router.Use(middleware.RequestSize(s.opts.MaxBodyBytes))
	if s.services != nil && s.services.Auth != nil {
		s.router.Use(authMiddleware(s.services.Auth))
	}
}

// registerRoutes registers every huma operation.
func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerBoardRoutes()
	s.registerMemberRoutes()
	s.registerListRoutes()
	s.registerCardRoutes()
}

// corsOptions allows credentials from the configured origins, reflecting any
// origin when none are configured.
func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "If-Match"},
		ExposedHeaders:   []string{"ETag", "Retry-After", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		opts.AllowOriginFunc = func(_ *http.Request, _ string) bool { return true }
	} else {
		opts.AllowedOrigins = origins
	}
	return opts
}
