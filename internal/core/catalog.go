package core

import "context"

// Catalog is the store the importer reads shelves and tiers from and writes
// books to. Implementations live under internal/store.
//
// Find* report a missing entity with found == false and a nil error.
// Create* may race with a concurrent import creating the same name;
// implementations enforce uniqueness of shelves(name) and
// shelf_tiers(shelf_id, tier_name) and return the existing id in that case.
type Catalog interface {
	FindShelfByName(ctx context.Context, name string) (id string, found bool, err error)
	CreateShelf(ctx context.Context, name string) (string, error)
	FindTier(ctx context.Context, shelfID, tierName string) (id string, found bool, err error)
	CreateTier(ctx context.Context, shelfID, tierName string) (string, error)

	// UpsertBooks writes books in a single statement keyed on isbn. With
	// skipOnConflict an existing isbn is left untouched; otherwise its title,
	// author, cover_url, note, shelf_id and tier_id are overwritten. Books
	// without an isbn are always inserted.
	UpsertBooks(ctx context.Context, books []BookPayload, skipOnConflict bool) error
}
