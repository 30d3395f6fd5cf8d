// Package postgres implements core.Catalog on PostgreSQL using pgx.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/shelfimport/internal/config"
	"github.com/JonMunkholm/shelfimport/internal/core"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store is a PostgreSQL-backed catalog.
type Store struct {
	db     DBTX
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ core.Catalog = (*Store)(nil)

// New wraps an existing connection, pool or transaction.
func New(db DBTX, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{db: db, logger: logger}
	if pool, ok := db.(*pgxpool.Pool); ok {
		s.pool = pool
	}
	return s
}

// Open builds a connection pool from cfg, verifies it and, when
// cfg.EnsureSchema is set, creates missing tables.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := New(pool, logger)
	if cfg.EnsureSchema {
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

// EnsureSchema creates the catalog tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	return nil
}

// Close releases the pool, if the store owns one.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

// FindShelfByName looks a shelf up by exact name.
func (s *Store) FindShelfByName(ctx context.Context, name string) (string, bool, error) {
	var id pgtype.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM shelves WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, describe(fmt.Sprintf("find shelf %q", name), err)
	}
	return uuidString(id), true, nil
}

// CreateShelf inserts a shelf, returning the existing id if another import
// created it first.
func (s *Store) CreateShelf(ctx context.Context, name string) (string, error) {
	if _, err := s.db.Exec(ctx,
		`INSERT INTO shelves (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name); err != nil {
		return "", describe(fmt.Sprintf("create shelf %q", name), err)
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
	var id pgtype.UUID
	err := s.db.QueryRow(ctx,
		`SELECT id FROM shelf_tiers WHERE shelf_id = $1 AND tier_name = $2`,
		toUUID(shelfID), tierName).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, describe(fmt.Sprintf("find tier %q", tierName), err)
	}
	return uuidString(id), true, nil
}

// CreateTier appends a tier to the end of the shelf's tier order.
func (s *Store) CreateTier(ctx context.Context, shelfID, tierName string) (string, error) {
	if _, err := s.db.Exec(ctx,
		`INSERT INTO shelf_tiers (shelf_id, tier_name, position)
		 SELECT $1, $2, COALESCE(MAX(position), -1) + 1
		 FROM shelf_tiers WHERE shelf_id = $1
		 ON CONFLICT (shelf_id, tier_name) DO NOTHING`,
		toUUID(shelfID), tierName); err != nil {
		return "", describe(fmt.Sprintf("create tier %q", tierName), err)
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

const (
	upsertSkipSQL = `
INSERT INTO books (title, author, isbn, cover_url, shelf_id, tier_id, note)
SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::text[], $5::uuid[], $6::uuid[], $7::text[])
ON CONFLICT (isbn) DO NOTHING`

	upsertUpdateSQL = `
INSERT INTO books (title, author, isbn, cover_url, shelf_id, tier_id, note)
SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::text[], $5::uuid[], $6::uuid[], $7::text[])
ON CONFLICT (isbn) DO UPDATE SET
    title = EXCLUDED.title,
    author = EXCLUDED.author,
    cover_url = EXCLUDED.cover_url,
    note = EXCLUDED.note,
    shelf_id = EXCLUDED.shelf_id,
    tier_id = EXCLUDED.tier_id,
    updated_at = now()`
)

// bookColumns holds one batch in column-major form for unnest.
type bookColumns struct {
	titles  []string
	authors []pgtype.Text
	isbns   []pgtype.Text
	covers  []pgtype.Text
	shelves []pgtype.UUID
	tiers   []pgtype.UUID
	notes   []pgtype.Text
}

func columnsOf(books []core.BookPayload) bookColumns {
	n := len(books)
	c := bookColumns{
		titles:  make([]string, 0, n),
		authors: make([]pgtype.Text, 0, n),
		isbns:   make([]pgtype.Text, 0, n),
		covers:  make([]pgtype.Text, 0, n),
		shelves: make([]pgtype.UUID, 0, n),
		tiers:   make([]pgtype.UUID, 0, n),
		notes:   make([]pgtype.Text, 0, n),
	}
	for _, b := range books {
		c.titles = append(c.titles, b.Title)
		c.authors = append(c.authors, toText(b.Author))
		c.isbns = append(c.isbns, toText(b.ISBN))
		c.covers = append(c.covers, toText(b.CoverURL))
		c.shelves = append(c.shelves, toUUIDPtr(b.ShelfID))
		c.tiers = append(c.tiers, toUUIDPtr(b.TierID))
		c.notes = append(c.notes, toText(b.Note))
	}
	return c
}

// lastPerISBN keeps the last occurrence of each isbn. PostgreSQL rejects a
// DO UPDATE statement that touches the same row twice.
func lastPerISBN(books []core.BookPayload) []core.BookPayload {
	last := make(map[string]int, len(books))
	for i, b := range books {
		if b.ISBN != nil && *b.ISBN != "" {
			last[*b.ISBN] = i
		}
	}
	if len(last) == 0 {
		return books
	}

	out := make([]core.BookPayload, 0, len(books))
	for i, b := range books {
		if b.ISBN != nil && *b.ISBN != "" && last[*b.ISBN] != i {
			continue
		}
		out = append(out, b)
	}
	return out
}

// UpsertBooks writes the batch in one INSERT ... SELECT FROM unnest statement.
func (s *Store) UpsertBooks(ctx context.Context, books []core.BookPayload, skipOnConflict bool) error {
	if len(books) == 0 {
		return nil
	}

	query := upsertSkipSQL
	if !skipOnConflict {
		query = upsertUpdateSQL
		books = lastPerISBN(books)
	}

	c := columnsOf(books)
	tag, err := s.db.Exec(ctx, query,
		c.titles, c.authors, c.isbns, c.covers, c.shelves, c.tiers, c.notes)
	if err != nil {
		return describe(fmt.Sprintf("upsert %d books", len(books)), err)
	}

	s.logger.Debug("upserted books",
		"count", len(books),
		"affected", tag.RowsAffected(),
		"skip_on_conflict", skipOnConflict,
	)
	return nil
}
