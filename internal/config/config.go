// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	CORS     CORSConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests. Imports carry their
	// own IMPORT_TIMEOUT, so keep this above it.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"11m"`
}

// DatabaseConfig holds catalog store connection settings.
type DatabaseConfig struct {
	// URL selects the catalog backend by scheme:
	//   postgres://... or postgresql://...  PostgreSQL via pgx
	//   sqlite:<path> or file:<path>        SQLite via modernc.org/sqlite
	//   memory:                             in-process store (demos and tests)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// EnsureSchema creates the shelves, shelf_tiers and books tables when missing.
	EnsureSchema bool `env:"DB_ENSURE_SCHEMA" default:"true"`
}

// Database drivers recognised by Driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Driver returns the catalog backend implied by the URL scheme,
// or "" if the scheme is not recognised.
func (d DatabaseConfig) Driver() string {
	u := strings.ToLower(d.URL)
	switch {
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(u, "sqlite:"), strings.HasPrefix(u, "file:"):
		return DriverSQLite
	case strings.HasPrefix(u, "memory:"):
		return DriverMemory
	default:
		return ""
	}
}

// ImportConfig holds CSV import pipeline settings.
type ImportConfig struct {
	// MaxFileSize is the maximum accepted CSV size in bytes (default: 10MB).
	// Files are buffered whole, so this also bounds per-request memory.
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the maximum number of import runs in flight (default: 4)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for an import slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// BatchSize is the default upsert batch size, 1-500 (default: 200)
	BatchSize int `env:"IMPORT_BATCH_SIZE" default:"200"`

	// OnDuplicate is the default ISBN conflict policy: skip or update (default: skip)
	OnDuplicate string `env:"IMPORT_ON_DUPLICATE" default:"skip"`

	// PreviewLimit is the default number of rows projected by preview (default: 50)
	PreviewLimit int `env:"IMPORT_PREVIEW_LIMIT" default:"50"`

	// TitleCase enables title-casing of book titles during preparation (default: true)
	TitleCase bool `env:"IMPORT_TITLE_CASE" default:"true"`

	// Timeout bounds a single import run (default: 10m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"10m"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for import endpoints (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// CORSConfig holds cross-origin settings for the dashboard front end.
type CORSConfig struct {
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS"`
	MaxAge         time.Duration `env:"CORS_MAX_AGE" default:"5m"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey rejects /api requests without a valid X-API-Key header.
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`
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
