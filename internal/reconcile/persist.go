package reconcile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"

	"github.com/taskboard/taskboard-server/internal/dto"
)

// PersistScope selects which parts of the state are written to disk.
// Selection, the open card and the search query are session state and are
// never persisted.
type PersistScope uint8

const (
	PersistBoard PersistScope = 1 << iota
	PersistNotifications

	PersistNone PersistScope = 0
	PersistAll               = PersistBoard | PersistNotifications
)

// Has reports whether s includes part.
func (s PersistScope) Has(part PersistScope) bool {
	return s&part != 0
}

// PersistConfig configures state persistence. An empty Path disables it.
type PersistConfig struct {
	Path  string
	Scope PersistScope
}

func (c PersistConfig) enabled() bool {
	return c.Path != "" && c.Scope != PersistNone
}

type persistedState struct {
	Board         *dto.Board     `json:"board,omitempty"`
	Notifications []Notification `json:"notifications,omitempty"`
	SavedAt       time.Time      `json:"savedAt"`
}

// writeState atomically replaces the file at path.
func writeState(path string, st persistedState) error {
	data, err := sonic.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// readState loads the file at path. A missing file yields a zero state.
func readState(path string) (persistedState, error) {
	var st persistedState
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("read state: %w", err)
	}
	if err := sonic.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("decode state: %w", err)
	}
	return st, nil
}
