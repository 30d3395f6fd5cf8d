// Package store opens the catalog backend selected by DATABASE_URL.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/shelfimport/internal/config"
	"github.com/JonMunkholm/shelfimport/internal/core"
	"github.com/JonMunkholm/shelfimport/internal/store/memory"
	"github.com/JonMunkholm/shelfimport/internal/store/postgres"
	"github.com/JonMunkholm/shelfimport/internal/store/sqlite"
)

// Catalog is a core.Catalog that can be health-checked and closed.
type Catalog interface {
	core.Catalog
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the backend implied by the URL scheme.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (Catalog, error) {
	switch cfg.Driver() {
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverSQLite:
		s, err := sqlite.Open(SQLitePath(cfg.URL), cfg.EnsureSchema, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverMemory:
		return memory.New(), nil
	default:
		scheme, _, _ := strings.Cut(cfg.URL, ":")
		return nil, fmt.Errorf("unsupported database URL scheme %q", scheme)
	}
}

// SQLitePath turns a sqlite: URL into a path for the driver. file: URIs are
// passed through since the driver understands them.
func SQLitePath(url string) string {
	lower := strings.ToLower(url)
	switch {
	case strings.HasPrefix(lower, "sqlite://"):
		return url[len("sqlite://"):]
	case strings.HasPrefix(lower, "sqlite:"):
		return url[len("sqlite:"):]
	default:
		return url
	}
}
