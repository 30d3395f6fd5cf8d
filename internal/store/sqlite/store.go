// Package sqlite implements core.Catalog on an embedded SQLite database
// using the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/shelfimport/internal/core"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store is a SQLite-backed catalog.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ core.Catalog = (*Store)(nil)

// Open opens (or creates) the database at path, applies pragmas and, when
// ensureSchema is set, creates missing tables.
func Open(path string, ensureSchema bool, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection serialises writers and keeps pragmas applied.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if ensureSchema {
		if _, err := db.Exec(schemaSQL); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec schema: %w", err)
		}
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// FindShelfByName looks a shelf up by exact name.
func (s *Store) FindShelfByName(ctx context.Context, name string) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM shelves WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find shelf %q: %w", name, err)
	}
	return id, true, nil
}

// CreateShelf inserts a shelf, returning the existing id if another import
// created it first.
func (s *Store) CreateShelf(ctx context.Context, name string) (string, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shelves (id, name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		uuid.NewString(), name, formatTime(time.Now()))
	if err != nil {
		return "", fmt.Errorf("create shelf %q: %w", name, err)
	}

	id, found, err := s.FindShelfByName(ctx, name)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("create shelf %q: row not visible after insert", name)
	}
	return id, nil
}

// FindTier looks a tier up by shelf and exact tier name.
func (s *Store) FindTier(ctx context.Context, shelfID, tierName string) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM shelf_tiers WHERE shelf_id = ? AND tier_name = ?`,
		shelfID, tierName).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find tier %q: %w", tierName, err)
	}
	return id, true, nil
}

// CreateTier appends a tier to the end of the shelf's tier order.
func (s *Store) CreateTier(ctx context.Context, shelfID, tierName string) (string, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shelf_tiers (id, shelf_id, tier_name, position, created_at)
		 SELECT ?, ?, ?, COALESCE(MAX(position), -1) + 1, ?
		 FROM shelf_tiers WHERE shelf_id = ?
		 ON CONFLICT(shelf_id, tier_name) DO NOTHING`,
		uuid.NewString(), shelfID, tierName, formatTime(time.Now()), shelfID)
	if err != nil {
		return "", fmt.Errorf("create tier %q: %w", tierName, err)
	}

	id, found, err := s.FindTier(ctx, shelfID, tierName)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("create tier %q: row not visible after insert", tierName)
	}
	return id, nil
}

const bookColumns = 10

// UpsertBooks writes the batch in one INSERT statement keyed on isbn.
func (s *Store) UpsertBooks(ctx context.Context, books []core.BookPayload, skipOnConflict bool) error {
	if len(books) == 0 {
		return nil
	}

	var q strings.Builder
	q.WriteString(`INSERT INTO books (id, title, author, isbn, cover_url, shelf_id, tier_id, note, created_at, updated_at) VALUES `)

	now := formatTime(time.Now())
	args := make([]any, 0, len(books)*bookColumns)
	for i, b := range books {
		if i > 0 {
			q.WriteString(", ")
		}
		q.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			uuid.NewString(),
			b.Title,
			nullString(b.Author),
			nullString(b.ISBN),
			nullString(b.CoverURL),
			nullString(b.ShelfID),
			nullString(b.TierID),
			nullString(b.Note),
			now,
			now,
		)
	}

	if skipOnConflict {
		q.WriteString(` ON CONFLICT(isbn) DO NOTHING`)
	} else {
		q.WriteString(` ON CONFLICT(isbn) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			cover_url = excluded.cover_url,
			note = excluded.note,
			shelf_id = excluded.shelf_id,
			tier_id = excluded.tier_id,
			updated_at = excluded.updated_at`)
	}

	if _, err := s.db.ExecContext(ctx, q.String(), args...); err != nil {
		return fmt.Errorf("upsert %d books: %w", len(books), err)
	}

	s.logger.Debug("upserted books", "count", len(books), "skip_on_conflict", skipOnConflict)
	return nil
}

// nullString maps nil and empty strings to SQL NULL so that blank isbns do
// not collide on the unique index.
func nullString(p *string) sql.NullString {
	if p == nil || *p == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
