package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/shelfimport/internal/config"
	"github.com/JonMunkholm/shelfimport/internal/store/memory"
	"github.com/JonMunkholm/shelfimport/internal/store/sqlite"
)

func TestSQLitePath(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"sqlite:/var/lib/books.db", "/var/lib/books.db"},
		{"sqlite://books.db", "books.db"},
		{"SQLite:books.db", "books.db"},
		{"file:books.db?cache=shared", "file:books.db?cache=shared"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, SQLitePath(tt.url))
		})
	}
}

func TestOpen_Memory(t *testing.T) {
	c, err := Open(context.Background(), config.DatabaseConfig{URL: "memory:"}, nil)
	require.NoError(t, err)
	defer c.Close()

	assert.IsType(t, &memory.Store{}, c)
	assert.NoError(t, c.Ping(context.Background()))
}

func TestOpen_SQLite(t *testing.T) {
	url := "sqlite:" + filepath.Join(t.TempDir(), "books.db")
	c, err := Open(context.Background(), config.DatabaseConfig{URL: url, EnsureSchema: true}, nil)
	require.NoError(t, err)
	defer c.Close()

	assert.IsType(t, &sqlite.Store{}, c)

	id, err := c.CreateShelf(context.Background(), "Fiction")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestOpen_UnknownScheme(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{URL: "mysql://user:pw@host/db"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"mysql"`)
	assert.NotContains(t, err.Error(), "pw")
}
