package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/shelfimport/internal/core"
)

func strPtr(s string) *string { return &s }

func TestShelvesAndTiers(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, found, err := s.FindShelfByName(ctx, "Fiction")
	require.NoError(t, err)
	assert.False(t, found)

	shelf, err := s.CreateShelf(ctx, "Fiction")
	require.NoError(t, err)
	again, err := s.CreateShelf(ctx, "Fiction")
	require.NoError(t, err)
	assert.Equal(t, shelf, again)

	top, err := s.CreateTier(ctx, shelf, "Top")
	require.NoError(t, err)
	_, err = s.CreateTier(ctx, shelf, "Bottom")
	require.NoError(t, err)

	got, found, err := s.FindTier(ctx, shelf, "Top")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, top, got)

	tiers := s.Tiers(shelf)
	require.Len(t, tiers, 2)
	assert.Equal(t, "Top", tiers[0].Name)
	assert.Equal(t, "Bottom", tiers[1].Name)
	assert.Equal(t, 1, tiers[1].Position)

	_, err = s.CreateTier(ctx, "missing", "Top")
	assert.Error(t, err)

	assert.Equal(t, []string{"Fiction"}, s.ShelfNames())
}

func TestUpsertBooks(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.UpsertBooks(ctx, []core.BookPayload{
		{Title: "Dune", Author: strPtr("Herbert"), ISBN: strPtr("111")},
		{Title: "Untracked", ISBN: strPtr("")},
		{Title: "Untracked too"},
	}, true))
	assert.Len(t, s.Books(), 3)

	require.NoError(t, s.UpsertBooks(ctx, []core.BookPayload{{Title: "Ignored", ISBN: strPtr("111")}}, true))
	b, ok := s.BookByISBN("111")
	require.True(t, ok)
	assert.Equal(t, "Dune", b.Title)

	require.NoError(t, s.UpsertBooks(ctx, []core.BookPayload{{Title: "Dune (2nd ed)", ISBN: strPtr("111")}}, false))
	b, _ = s.BookByISBN("111")
	assert.Equal(t, "Dune (2nd ed)", b.Title)
	assert.Nil(t, b.Author)
	assert.Len(t, s.Books(), 3)
}

func TestUpsertBooks_BadReferenceWritesNothing(t *testing.T) {
	s := New()

	err := s.UpsertBooks(context.Background(), []core.BookPayload{
		{Title: "Fine"},
		{Title: "Orphan", TierID: strPtr("nope")},
	}, true)
	assert.Error(t, err)
	assert.Empty(t, s.Books())
}

func TestCanceledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.CreateShelf(ctx, "Fiction")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImportEndToEnd(t *testing.T) {
	s := New()
	csv := "Title,Author,ISBN,Shelf,Level\n" +
		"dune,Herbert,111,Fiction,Top\n" +
		"emma,Austen,222,Fiction,Top\n"

	rows, err := core.PrepareRows(csv, nil, core.PrepareOptions{TitleCaseValues: true})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	rows = append(rows, core.PreparedBookRow{Title: "   ", ISBN: strPtr("333")})

	result, err := core.BulkInsert(context.Background(), s, rows, core.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.OKCount)
	require.Len(t, result.ErrorRows, 1)
	assert.Equal(t, 2, result.ErrorRows[0].Index)

	b, ok := s.BookByISBN("111")
	require.True(t, ok)
	assert.Equal(t, "Dune", b.Title)
	require.NotNil(t, b.ShelfID)
	require.NotNil(t, b.TierID)

	tiers := s.Tiers(*b.ShelfID)
	require.Len(t, tiers, 1)
	assert.Equal(t, "Top", tiers[0].Name)
}
