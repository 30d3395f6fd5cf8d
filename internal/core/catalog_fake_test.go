package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// fakeCatalog is an in-memory Catalog that records calls and can be told to
// fail for specific shelves or upsert calls.
type fakeCatalog struct {
	mu sync.Mutex

	shelves map[string]string // name -> id
	tiers   map[string]string // shelfID + "/" + name -> id
	books   map[string]BookPayload
	noISBN  []BookPayload

	createShelfCalls int
	createTierCalls  int
	findShelfCalls   int
	upsertCalls      [][]BookPayload

	failShelf  map[string]error // FindShelfByName fails for these names
	failUpsert map[int]error    // 1-based upsert call number -> error
	onUpsert   func(call int)
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		shelves:    make(map[string]string),
		tiers:      make(map[string]string),
		books:      make(map[string]BookPayload),
		failShelf:  make(map[string]error),
		failUpsert: make(map[int]error),
	}
}

func (f *fakeCatalog) FindShelfByName(_ context.Context, name string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findShelfCalls++
	if err, ok := f.failShelf[name]; ok {
		return "", false, err
	}
	id, ok := f.shelves[name]
	return id, ok, nil
}

func (f *fakeCatalog) CreateShelf(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createShelfCalls++
	id := fmt.Sprintf("shelf-%d", len(f.shelves)+1)
	f.shelves[name] = id
	return id, nil
}

func (f *fakeCatalog) FindTier(_ context.Context, shelfID, tierName string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.tiers[shelfID+"/"+tierName]
	return id, ok, nil
}

func (f *fakeCatalog) CreateTier(_ context.Context, shelfID, tierName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createTierCalls++
	id := fmt.Sprintf("tier-%d", len(f.tiers)+1)
	f.tiers[shelfID+"/"+tierName] = id
	return id, nil
}

func (f *fakeCatalog) UpsertBooks(ctx context.Context, books []BookPayload, skipOnConflict bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.upsertCalls = append(f.upsertCalls, append([]BookPayload(nil), books...))
	call := len(f.upsertCalls)
	if f.onUpsert != nil {
		f.onUpsert(call)
	}
	if err, ok := f.failUpsert[call]; ok {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, b := range books {
		if b.ISBN == nil || strings.TrimSpace(*b.ISBN) == "" {
			f.noISBN = append(f.noISBN, b)
			continue
		}
		if _, exists := f.books[*b.ISBN]; exists && skipOnConflict {
			continue
		}
		f.books[*b.ISBN] = b
	}
	return nil
}

func (f *fakeCatalog) bookCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.books) + len(f.noISBN)
}

func strPtr(s string) *string { return &s }
