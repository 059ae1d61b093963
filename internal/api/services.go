package api

import (
	"context"

	"github.com/taskboard/taskboard-server/internal/service"
)

// Services holds every service the handlers call.
type Services struct {
	Auth  *service.AuthService
	Board *service.BoardService
	// Search is optional; health reports it as degraded when nil.
	Search SearchStatus
}

// Pinger is the persistence health probe. store.Backend implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SearchStatus is the search index health probe. *search.SearchIndex implements it.
type SearchStatus interface {
	DocumentCount() (uint64, error)
}
