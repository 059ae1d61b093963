// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	StoreBadger = "badger"
	StoreSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Metadata  MetadataConfig
	Server    ServerConfig
	Auth      AuthConfig
	Board     BoardConfig
	Store     StoreConfig
	Cache     CacheConfig
	Search    SearchConfig
	Tracing   TracingConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// IsDevelopment reports whether error details may be exposed to clients.
func (a AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// MetadataConfig holds the data directory (auth key, database files).
type MetadataConfig struct {
	BasePath string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Name         string
	Port         string        // Server port (default: 5000)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string      // Allowed origins (default: *)

	AdvertiseMDNS bool // Advertise via mDNS/Zeroconf (default: false)
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key for access tokens (32 bytes)
	AccessTokenKey []byte
	// Access token lifetime, matches the 7 day JWTs previously issued.
	AccessTokenDuration time.Duration
	// HS256 secret for tokens issued before the PASETO migration. Empty disables them.
	LegacyJWTSecret string
	// JWKS endpoint for RS256 tokens from an external identity provider. Empty disables them.
	JWKSURL string
}

// BoardConfig holds board access policy.
type BoardConfig struct {
	// RelaxedCardAccess lets any authenticated user update cards on any board.
	RelaxedCardAccess bool
	// MaxSaveAttempts bounds the load-apply-save retry loop on version conflicts.
	MaxSaveAttempts int
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string // badger or sqlite
	Path   string // default: {metadata}/db or {metadata}/taskboard.db
}

// CacheConfig configures the redis read-through cache. Empty Addr disables it.
type CacheConfig struct {
	RedisAddr string
	TTL       time.Duration
}

// SearchConfig configures the card search index.
type SearchConfig struct {
	Enabled bool
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
}

// RateLimitConfig bounds requests per client IP.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// LoadConfig loads configuration from the process arguments and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("taskboard", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	metadataPath := fs.String("metadata-path", "", "Base path for data storage")
	serverName := fs.String("server-name", "", "Name for the server")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 5000)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma separated allowed origins (default: *)")
	advertiseMDNS := fs.String("advertise-mdns", "", "Advertise via mDNS/Zeroconf (default: false)")

	// Auth flags
	accessTokenDuration := fs.String("access-token-duration", "", "Access token lifetime (default: 168h)")
	relaxedCardAccess := fs.String("relaxed-card-access", "", "Let any authenticated user update cards (default: false)")

	// Store flags
	storeDriver := fs.String("store", "", "Store driver: badger or sqlite (default: badger)")
	storePath := fs.String("store-path", "", "Database path")
	redisAddr := fs.String("redis-addr", "", "Redis address for the board cache (default: disabled)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Metadata: MetadataConfig{
			BasePath: getConfigValue(*metadataPath, "METADATA_PATH", ""),
		},
		Server: ServerConfig{
			Name:        getConfigValue(*serverName, "SERVER_NAME", "Taskboard Server"),
			Port:        getConfigValue(*serverPort, "PORT", "5000"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),

			AdvertiseMDNS: getBoolConfigValue(*advertiseMDNS, "ADVERTISE_MDNS", false),
		},
		Auth: AuthConfig{
			AccessTokenKey:  nil, // Will be set by auth.LoadOrGenerateKey in main
			LegacyJWTSecret: getConfigValue("", "AUTH_LEGACY_JWT_SECRET", ""),
			JWKSURL:         getConfigValue("", "AUTH_JWKS_URL", ""),
		},
		Board: BoardConfig{
			RelaxedCardAccess: getBoolConfigValue(*relaxedCardAccess, "BOARD_RELAXED_CARD_ACCESS", false),
			MaxSaveAttempts:   getIntConfigValue("", "BOARD_MAX_SAVE_ATTEMPTS", 5),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getConfigValue(*storeDriver, "STORE_DRIVER", StoreBadger)),
			Path:   getConfigValue(*storePath, "STORE_PATH", ""),
		},
		Cache: CacheConfig{
			RedisAddr: getConfigValue(*redisAddr, "REDIS_ADDR", ""),
		},
		Search: SearchConfig{
			Enabled: getBoolConfigValue("", "SEARCH_ENABLED", true),
		},
		Tracing: TracingConfig{
			Enabled:     getBoolConfigValue("", "TRACING_ENABLED", false),
			ServiceName: getConfigValue("", "OTEL_SERVICE_NAME", "taskboard-server"),
		},
	}

	durations := []struct {
		target   *time.Duration
		flag     string
		envKey   string
		fallback string
	}{
		{&cfg.Auth.AccessTokenDuration, *accessTokenDuration, "ACCESS_TOKEN_DURATION", "168h"},
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Cache.TTL, "", "CACHE_TTL", "5m"},
		{&cfg.RateLimit.Window, "", "RATE_LIMIT_WINDOW", "15m"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.envKey, d.fallback)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.envKey), raw, err)
		}
		*d.target = parsed
	}

	// Development gets a generous limit so local clients never trip it.
	defaultRequests := 100
	if cfg.App.IsDevelopment() {
		defaultRequests = 1000
	}
	cfg.RateLimit.Requests = getIntConfigValue("", "RATE_LIMIT_REQUESTS", defaultRequests)

	if err := cfg.expandMetadataPath(); err != nil {
		return nil, fmt.Errorf("invalid metadata path: %w", err)
	}

	if err := cfg.expandStorePath(); err != nil {
		return nil, fmt.Errorf("invalid store path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Metadata.BasePath == "" {
		return errors.New("metadata base path cannot be empty after expansion")
	}

	switch c.Store.Driver {
	case StoreBadger, StoreSQLite:
	default:
		return fmt.Errorf("invalid store driver: %s (must be badger or sqlite)", c.Store.Driver)
	}

	if c.Board.MaxSaveAttempts < 1 {
		return fmt.Errorf("board max save attempts must be at least 1, got %d", c.Board.MaxSaveAttempts)
	}

	if c.Cache.RedisAddr != "" && c.Cache.TTL <= 0 {
		return errors.New("cache TTL must be positive when redis is configured")
	}

	if c.RateLimit.Requests < 1 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("invalid rate limit: %d requests per %s", c.RateLimit.Requests, c.RateLimit.Window)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandMetadataPath defaults the data directory to ~/Taskboard/data.
func (c *Config) expandMetadataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Taskboard", "data")

	expanded, err := expandPath(c.Metadata.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Metadata.BasePath = expanded
	return nil
}

// expandStorePath defaults the database location inside the metadata directory.
func (c *Config) expandStorePath() error {
	defaultPath := filepath.Join(c.Metadata.BasePath, "db")
	if c.Store.Driver == StoreSQLite {
		defaultPath = filepath.Join(c.Metadata.BasePath, "taskboard.db")
	}

	expanded, err := expandPath(c.Store.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Store.Path = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue
	}
	return result
}

// splitList splits a comma separated value, dropping blanks.
func splitList(value string) []string {
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
