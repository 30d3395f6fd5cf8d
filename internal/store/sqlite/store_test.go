package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/shelfimport/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, true, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

type bookRow struct {
	Title    string
	Author   sql.NullString
	ShelfID  sql.NullString
	TierID   sql.NullString
	CoverURL sql.NullString
}

func getBook(t *testing.T, s *Store, isbn string) bookRow {
	t.Helper()
	var b bookRow
	err := s.db.QueryRow(
		`SELECT title, author, shelf_id, tier_id, cover_url FROM books WHERE isbn = ?`, isbn,
	).Scan(&b.Title, &b.Author, &b.ShelfID, &b.TierID, &b.CoverURL)
	require.NoError(t, err)
	return b
}

func countBooks(t *testing.T, s *Store) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM books`).Scan(&n))
	return n
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var fk int
	require.NoError(t, s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	for _, table := range []string{"shelves", "shelf_tiers", "books"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}

	assert.NoError(t, s.Ping(context.Background()))
}

func TestShelves(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, found, err := s.FindShelfByName(ctx, "Fiction")
	require.NoError(t, err)
	assert.False(t, found)

	id, err := s.CreateShelf(ctx, "Fiction")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, found, err := s.FindShelfByName(ctx, "Fiction")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, id, got)

	// Lookups are exact, not case-folded.
	_, found, err = s.FindShelfByName(ctx, "fiction")
	require.NoError(t, err)
	assert.False(t, found)

	again, err := s.CreateShelf(ctx, "Fiction")
	require.NoError(t, err)
	assert.Equal(t, id, again, "creating an existing shelf returns its id")
}

func TestTiers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	shelfA, err := s.CreateShelf(ctx, "A")
	require.NoError(t, err)
	shelfB, err := s.CreateShelf(ctx, "B")
	require.NoError(t, err)

	top, err := s.CreateTier(ctx, shelfA, "Top")
	require.NoError(t, err)
	bottom, err := s.CreateTier(ctx, shelfA, "Bottom")
	require.NoError(t, err)
	otherTop, err := s.CreateTier(ctx, shelfB, "Top")
	require.NoError(t, err)
	assert.NotEqual(t, top, otherTop, "tier names are scoped to their shelf")

	got, found, err := s.FindTier(ctx, shelfA, "Top")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, top, got)

	_, found, err = s.FindTier(ctx, shelfB, "Bottom")
	require.NoError(t, err)
	assert.False(t, found)

	again, err := s.CreateTier(ctx, shelfA, "Top")
	require.NoError(t, err)
	assert.Equal(t, top, again)

	var pos int
	require.NoError(t, s.db.QueryRow(`SELECT position FROM shelf_tiers WHERE id = ?`, bottom).Scan(&pos))
	assert.Equal(t, 1, pos)
}

func TestUpsertBooks_Skip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertBooks(ctx, []core.BookPayload{
		{Title: "Dune", Author: strPtr("Herbert"), ISBN: strPtr("111")},
		{Title: "No ISBN"},
		{Title: "Also no ISBN", ISBN: strPtr("")},
	}, true))
	assert.Equal(t, 3, countBooks(t, s))

	require.NoError(t, s.UpsertBooks(ctx, []core.BookPayload{
		{Title: "Dune Messiah", ISBN: strPtr("111")},
		{Title: "Emma", ISBN: strPtr("222")},
	}, true))
	assert.Equal(t, 4, countBooks(t, s))

	b := getBook(t, s, "111")
	assert.Equal(t, "Dune", b.Title, "skip leaves the existing row untouched")
	assert.Equal(t, "Herbert", b.Author.String)
}

func TestUpsertBooks_Update(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	shelf, err := s.CreateShelf(ctx, "Fiction")
	require.NoError(t, err)
	tier, err := s.CreateTier(ctx, shelf, "Top")
	require.NoError(t, err)

	require.NoError(t, s.UpsertBooks(ctx, []core.BookPayload{
		{Title: "Dune", Author: strPtr("Herbert"), ISBN: strPtr("111"), CoverURL: strPtr("http://x/old.jpg")},
	}, false))

	require.NoError(t, s.UpsertBooks(ctx, []core.BookPayload{
		{Title: "Dune (Deluxe)", ISBN: strPtr("111"), ShelfID: &shelf, TierID: &tier},
	}, false))

	assert.Equal(t, 1, countBooks(t, s))
	b := getBook(t, s, "111")
	assert.Equal(t, "Dune (Deluxe)", b.Title)
	assert.False(t, b.Author.Valid, "update overwrites author with the new value")
	assert.False(t, b.CoverURL.Valid)
	assert.Equal(t, shelf, b.ShelfID.String)
	assert.Equal(t, tier, b.TierID.String)
}

func TestUpsertBooks_UnknownShelfFails(t *testing.T) {
	s := newTestStore(t)

	err := s.UpsertBooks(context.Background(), []core.BookPayload{
		{Title: "Orphan", ShelfID: strPtr("missing")},
	}, true)
	assert.Error(t, err)
	assert.Equal(t, 0, countBooks(t, s), "a failed batch writes nothing")
}

func TestUpsertBooks_Empty(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.UpsertBooks(context.Background(), nil, true))
}

func TestBulkInsertAgainstSQLite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rows := []core.PreparedBookRow{
		{Title: "Dune", ISBN: strPtr("111"), Shelf: strPtr("Fiction"), Level: strPtr("Top"), Tier: strPtr("Top")},
		{Title: "Emma", ISBN: strPtr("222"), Shelf: strPtr("Fiction"), Level: strPtr("Top"), Tier: strPtr("Top")},
		{Title: "Loose", Shelf: strPtr("Fiction")},
	}

	result, err := core.BulkInsert(ctx, s, rows, core.ImportOptions{BatchSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, result.OKCount)
	assert.Empty(t, result.ErrorRows)

	var shelves, tiers int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM shelves`).Scan(&shelves))
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM shelf_tiers`).Scan(&tiers))
	assert.Equal(t, 1, shelves)
	assert.Equal(t, 1, tiers)

	b := getBook(t, s, "111")
	assert.True(t, b.ShelfID.Valid)
	assert.True(t, b.TierID.Valid)
}
