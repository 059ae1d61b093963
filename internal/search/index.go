package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/taskboard/taskboard-server/internal/domain"
)

// SearchIndex wraps a Bleve index of cards.
//
// Thread safety: All public methods are safe for concurrent use.
// The mutex protects against index corruption during rebuild operations.
type SearchIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex // Protects index operations during rebuild
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage; empty keeps the index in memory
	Logger   *slog.Logger // Logger for operations (uses discard if nil)
}

// mappingVersion is incremented whenever the index mapping changes.
// This triggers an automatic rebuild on startup when the version doesn't match.
const mappingVersion = "1"

// pageSize bounds result pages when listing a board's documents.
const pageSize = 1000

// NewSearchIndex creates or opens a search index.
// An existing index with an outdated mapping or that fails to open is removed
// and recreated empty; callers reindex boards afterwards.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if opts.DataPath == "" {
		index, err := newIndex("")
		if err != nil {
			return nil, err
		}
		return &SearchIndex{index: index, logger: logger}, nil
	}

	indexPath := filepath.Join(opts.DataPath, "search.bleve")
	versionPath := filepath.Join(opts.DataPath, "search.version")

	var index bleve.Index
	if _, statErr := os.Stat(indexPath); statErr == nil {
		existingVersion, readErr := os.ReadFile(versionPath) //#nosec G304 -- path derived from the data directory
		switch {
		case readErr != nil || string(existingVersion) != mappingVersion:
			logger.Info("search index mapping version changed, will rebuild",
				"old_version", string(existingVersion),
				"new_version", mappingVersion,
			)
		default:
			opened, err := bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open existing index, will recreate", "path", indexPath, "error", err)
			} else {
				index = opened
			}
		}

		if index == nil {
			if err := os.RemoveAll(indexPath); err != nil {
				return nil, fmt.Errorf("remove old index: %w", err)
			}
		}
	}

	if index == nil {
		created, err := newIndex(indexPath)
		if err != nil {
			return nil, err
		}
		index = created
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil { //nolint:gosec // not sensitive
			logger.Warn("failed to write search version file", "error", err)
		}
		logger.Info("created new search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened existing search index", "path", indexPath)
	}

	return &SearchIndex{
		index:  index,
		path:   indexPath,
		logger: logger,
	}, nil
}

func newIndex(path string) (bleve.Index, error) {
	indexMapping, err := buildIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("build mapping: %w", err)
	}
	var index bleve.Index
	if path == "" {
		index, err = bleve.NewMemOnly(indexMapping)
	} else {
		index, err = bleve.New(path, indexMapping)
	}
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return index, nil
}

// Close closes the index and releases resources.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexBoard makes the index reflect the board's current cards: new and
// changed cards are (re)indexed and cards no longer on the board are removed.
func (s *SearchIndex) IndexBoard(ctx context.Context, board *domain.Board) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing, err := s.boardDocIDs(ctx, board.ID)
	if err != nil {
		return err
	}

	batch := s.index.NewBatch()
	for _, doc := range BoardToSearchDocuments(board) {
		delete(existing, doc.ID)
		if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
			return fmt.Errorf("batch index %s: %w", doc.ID, err)
		}
	}
	for id := range existing {
		batch.Delete(id)
	}

	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("commit board %s: %w", board.ID, err)
	}
	return nil
}

// RemoveBoard deletes every document of a board.
func (s *SearchIndex) RemoveBoard(ctx context.Context, boardID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, err := s.boardDocIDs(ctx, boardID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	batch := s.index.NewBatch()
	for id := range ids {
		batch.Delete(id)
	}
	return s.index.Batch(batch)
}

// boardDocIDs returns the ids of every document on a board. Callers hold mu.
func (s *SearchIndex) boardDocIDs(ctx context.Context, boardID string) (map[string]struct{}, error) {
	q := bleve.NewTermQuery(boardID)
	q.SetField("board_id")

	ids := make(map[string]struct{})
	for from := 0; ; from += pageSize {
		req := bleve.NewSearchRequestOptions(q, pageSize, from, false)
		res, err := s.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("list board documents: %w", err)
		}
		for _, hit := range res.Hits {
			ids[hit.ID] = struct{}{}
		}
		if len(res.Hits) < pageSize {
			return ids, nil
		}
	}
}

// DocumentCount returns the total number of indexed documents.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops the index and indexes the given boards from scratch.
//
// IMPORTANT: This acquires an exclusive lock and blocks all other operations.
func (s *SearchIndex) Rebuild(ctx context.Context, boards []*domain.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if s.path != "" {
		if err := os.RemoveAll(s.path); err != nil {
			return fmt.Errorf("remove index: %w", err)
		}
	}

	index, err := newIndex(s.path)
	if err != nil {
		return err
	}
	s.index = index

	const batchSize = 500
	batch := s.index.NewBatch()
	for _, b := range boards {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, doc := range BoardToSearchDocuments(b) {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
			if batch.Size() >= batchSize {
				if err := s.index.Batch(batch); err != nil {
					return fmt.Errorf("commit batch: %w", err)
				}
				batch.Reset()
			}
		}
	}
	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	s.logger.Info("rebuilt search index", "path", s.path, "boards", len(boards))
	return nil
}
