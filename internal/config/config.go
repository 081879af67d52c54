// Package config provides centralized configuration management for talkshelf.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Storage backend names accepted by LOCAL_BACKEND and SYNC_BACKEND.
const (
	BackendMemory   = "memory"
	BackendBadger   = "badger"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Import     ImportConfig
	Sessionize SessionizeConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// StorageConfig selects and configures the two storage buckets.
//
// The local bucket holds talks, the popup selection and import history.
// The synced bucket holds the Sessionize URL and custom fields. When both
// buckets use the same backend they share one connection.
type StorageConfig struct {
	// LocalBackend is one of memory, badger, sqlite, postgres (default: badger)
	LocalBackend string `env:"LOCAL_BACKEND" default:"badger"`

	// SyncBackend is one of memory, badger, sqlite, postgres, redis (default: badger)
	SyncBackend string `env:"SYNC_BACKEND" default:"badger"`

	// BadgerDir is the badger data directory (default: data/badger)
	BadgerDir string `env:"BADGER_DIR" default:"data/badger"`

	// SQLitePath is the sqlite database file (default: data/talkshelf.db)
	SQLitePath string `env:"SQLITE_PATH" default:"data/talkshelf.db"`

	// DatabaseURL is the PostgreSQL connection string (required for postgres)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// DBMaxConns is the maximum number of connections in the pool (default: 10)
	DBMaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// DBMinConns is the minimum number of connections to keep open (default: 1)
	DBMinConns int `env:"DB_MIN_CONNS" default:"1"`

	// DBMaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	DBMaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// DBMaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	DBMaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// RedisAddr is the redis server address (default: localhost:6379)
	RedisAddr string `env:"REDIS_ADDR" default:"localhost:6379"`

	// RedisPassword is the redis password (optional)
	RedisPassword string `env:"REDIS_PASSWORD"`

	// RedisDB is the redis database number (default: 0)
	RedisDB int `env:"REDIS_DB" default:"0"`

	// KeyPrefix namespaces bucket keys in shared backends (default: talkshelf)
	KeyPrefix string `env:"STORAGE_KEY_PREFIX" default:"talkshelf"`
}

// ImportConfig holds CSV/JSON import settings.
type ImportConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 10MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the maximum number of parallel imports (default: 4)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for an import slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single import (default: 2m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"2m"`

	// HistoryLimit is how many import records are kept, 0 disables (default: 50)
	HistoryLimit int `env:"IMPORT_HISTORY_LIMIT" default:"50"`

	// InboxDir is a drop directory watched for CSV/JSON files (empty disables)
	InboxDir string `env:"IMPORT_INBOX_DIR"`

	// InboxDebounce delays processing after the last file event (default: 500ms)
	InboxDebounce time.Duration `env:"IMPORT_INBOX_DEBOUNCE" default:"500ms"`

	// InboxRetryDelay is the first wait before retrying a file whose import failed (default: 5s)
	InboxRetryDelay time.Duration `env:"IMPORT_INBOX_RETRY_DELAY" default:"5s"`
}

// SessionizeConfig holds settings for the remote talk source.
type SessionizeConfig struct {
	// Timeout is the HTTP client timeout (default: 15s)
	Timeout time.Duration `env:"SESSIONIZE_TIMEOUT" default:"15s"`

	// Retries is how many times a 429/5xx response is retried (default: 3)
	Retries int `env:"SESSIONIZE_RETRIES" default:"3"`

	// UserAgent is sent with every request (default: talkshelf/1.0)
	UserAgent string `env:"SESSIONIZE_USER_AGENT" default:"talkshelf/1.0"`

	// SyncInterval refetches the configured URL periodically (default: 0, disabled)
	SyncInterval time.Duration `env:"SESSIONIZE_SYNC_INTERVAL" default:"0s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for import and fetch endpoints (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAPIKey rejects /api requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// TrustedProxies lists CIDRs whose X-Real-IP / X-Forwarded-For headers are honored
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Backends returns the distinct backends in use, local first.
func (c *StorageConfig) Backends() []string {
	if c.LocalBackend == c.SyncBackend {
		return []string{c.LocalBackend}
	}
	return []string{c.LocalBackend, c.SyncBackend}
}

// Uses reports whether either bucket is served by backend.
func (c *StorageConfig) Uses(backend string) bool {
	return c.LocalBackend == backend || c.SyncBackend == backend
}
