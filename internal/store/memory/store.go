// Package memory is an in-process core.Catalog for local demos and tests.
// It applies the same uniqueness and conflict rules as the SQL stores.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/shelfimport/internal/core"
)

// Book is a stored book row.
type Book struct {
	ID        string
	Title     string
	Author    *string
	ISBN      *string
	CoverURL  *string
	ShelfID   *string
	TierID    *string
	Note      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tier is a stored shelf tier.
type Tier struct {
	ID       string
	ShelfID  string
	Name     string
	Position int
}

type tierKey struct {
	shelfID string
	name    string
}

// Store keeps the catalog in maps guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	shelves map[string]string // name -> id
	tiers   map[tierKey]*Tier
	books   []*Book
	byISBN  map[string]*Book
}

var _ core.Catalog = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		shelves: make(map[string]string),
		tiers:   make(map[tierKey]*Tier),
		byISBN:  make(map[string]*Book),
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) FindShelfByName(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.shelves[name]
	return id, ok, nil
}

func (s *Store) CreateShelf(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.shelves[name]; ok {
		return id, nil
	}
	id := uuid.NewString()
	s.shelves[name] = id
	return id, nil
}

func (s *Store) FindTier(ctx context.Context, shelfID, tierName string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tiers[tierKey{shelfID, tierName}]
	if !ok {
		return "", false, nil
	}
	return t.ID, true, nil
}

func (s *Store) CreateTier(ctx context.Context, shelfID, tierName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasShelfLocked(shelfID) {
		return "", fmt.Errorf("create tier %q: shelf %s does not exist", tierName, shelfID)
	}

	key := tierKey{shelfID, tierName}
	if t, ok := s.tiers[key]; ok {
		return t.ID, nil
	}

	pos := 0
	for k, t := range s.tiers {
		if k.shelfID == shelfID && t.Position >= pos {
			pos = t.Position + 1
		}
	}
	t := &Tier{ID: uuid.NewString(), ShelfID: shelfID, Name: tierName, Position: pos}
	s.tiers[key] = t
	return t.ID, nil
}

// UpsertBooks validates the whole batch before applying any of it, so a
// failing batch leaves the store unchanged.
func (s *Store) UpsertBooks(ctx context.Context, books []core.BookPayload, skipOnConflict bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range books {
		if err := s.checkRefsLocked(b); err != nil {
			return fmt.Errorf("upsert %d books: %w", len(books), err)
		}
	}

	now := time.Now()
	for _, b := range books {
		isbn := nonEmpty(b.ISBN)
		if isbn != nil {
			if existing, ok := s.byISBN[*isbn]; ok {
				if skipOnConflict {
					continue
				}
				existing.Title = b.Title
				existing.Author = b.Author
				existing.CoverURL = b.CoverURL
				existing.Note = b.Note
				existing.ShelfID = nonEmpty(b.ShelfID)
				existing.TierID = nonEmpty(b.TierID)
				existing.UpdatedAt = now
				continue
			}
		}

		book := &Book{
			ID:        uuid.NewString(),
			Title:     b.Title,
			Author:    b.Author,
			ISBN:      isbn,
			CoverURL:  b.CoverURL,
			ShelfID:   nonEmpty(b.ShelfID),
			TierID:    nonEmpty(b.TierID),
			Note:      b.Note,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.books = append(s.books, book)
		if isbn != nil {
			s.byISBN[*isbn] = book
		}
	}
	return nil
}

func (s *Store) checkRefsLocked(b core.BookPayload) error {
	if b.ShelfID != nil && *b.ShelfID != "" && !s.hasShelfLocked(*b.ShelfID) {
		return fmt.Errorf("shelf %s does not exist", *b.ShelfID)
	}
	if b.TierID != nil && *b.TierID != "" && !s.hasTierLocked(*b.TierID) {
		return fmt.Errorf("tier %s does not exist", *b.TierID)
	}
	return nil
}

func (s *Store) hasShelfLocked(id string) bool {
	for _, sid := range s.shelves {
		if sid == id {
			return true
		}
	}
	return false
}

func (s *Store) hasTierLocked(id string) bool {
	for _, t := range s.tiers {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Books returns copies of all stored books in insertion order.
func (s *Store) Books() []Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Book, len(s.books))
	for i, b := range s.books {
		out[i] = *b
	}
	return out
}

// BookByISBN returns the book stored under isbn.
func (s *Store) BookByISBN(isbn string) (Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.byISBN[isbn]
	if !ok {
		return Book{}, false
	}
	return *b, true
}

// ShelfNames returns all shelf names, sorted.
func (s *Store) ShelfNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.shelves))
	for name := range s.shelves {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tiers returns the tiers of a shelf ordered by position.
func (s *Store) Tiers(shelfID string) []Tier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Tier
	for _, t := range s.tiers {
		if t.ShelfID == shelfID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func nonEmpty(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	return p
}
