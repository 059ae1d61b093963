package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/taskboard/taskboard-server/internal/reconcile"
)

// DefaultServer is used when neither the config file nor the environment name one.
const DefaultServer = "http://localhost:5000"

// Config is the boardctl configuration file.
type Config struct {
	Server  string        `yaml:"server"`
	Token   string        `yaml:"token,omitempty"`
	Email   string        `yaml:"email,omitempty"`
	Persist PersistConfig `yaml:"persist"`
}

// PersistConfig selects what the terminal UI keeps between runs.
type PersistConfig struct {
	Board         bool   `yaml:"board"`
	Notifications bool   `yaml:"notifications"`
	Dir           string `yaml:"dir,omitempty"` // default: <config dir>/state
}

// Scope converts the settings to a reconcile scope.
func (p PersistConfig) Scope() reconcile.PersistScope {
	scope := reconcile.PersistNone
	if p.Board {
		scope |= reconcile.PersistBoard
	}
	if p.Notifications {
		scope |= reconcile.PersistNotifications
	}
	return scope
}

// StateFile returns the state file for a board, relative to the config file when Dir is unset.
func (p PersistConfig) StateFile(configPath, boardID string) string {
	dir := p.Dir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(configPath), "state")
	}
	return filepath.Join(dir, boardID+".json")
}

// DefaultConfigPath returns ~/.config/boardctl/config.yaml or the platform equivalent.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "boardctl", "config.yaml")
}

// LoadConfig reads the config file. A missing file yields defaults.
// BOARDCTL_SERVER and BOARDCTL_TOKEN override the file.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Server:  DefaultServer,
		Persist: PersistConfig{Notifications: true},
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("BOARDCTL_SERVER"); v != "" {
		cfg.Server = v
	}
	if v := os.Getenv("BOARDCTL_TOKEN"); v != "" {
		cfg.Token = v
	}
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	return cfg, nil
}

// SaveConfig writes cfg to path, readable by the owner only since it holds the token.
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
