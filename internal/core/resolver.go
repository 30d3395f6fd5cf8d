package core

import (
	"context"
	"strings"
)

// Resolver finds or creates the shelf and tier rows referenced by imported
// books. It memoizes every resolution, so one Resolver must not outlive the
// import run that created it. It is not safe for concurrent use.
//
// Lookup-then-create is not atomic: two runs resolving the same new shelf can
// both reach Create*, and the store's unique constraints decide the winner.
type Resolver struct {
	catalog Catalog
	cache   map[string]ShelfTierResolution

	hits        int
	shelvesMade int
	tiersMade   int
}

// NewResolver returns a Resolver with an empty cache.
func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{
		catalog: catalog,
		cache:   make(map[string]ShelfTierResolution),
	}
}

func resolutionKey(shelf, tier string) string {
	return strings.ToLower(shelf) + "::" + strings.ToLower(tier)
}

// Resolve returns ids for shelf and, when tier is non-empty, for the tier
// inside it, creating either one when the store has no exact-name match.
// Store errors are returned unwrapped so their message reaches the row error.
func (r *Resolver) Resolve(ctx context.Context, shelf, tier string) (ShelfTierResolution, error) {
	key := resolutionKey(shelf, tier)
	if res, ok := r.cache[key]; ok {
		r.hits++
		return res, nil
	}

	shelfID, found, err := r.catalog.FindShelfByName(ctx, shelf)
	if err != nil {
		return ShelfTierResolution{}, err
	}
	if !found {
		shelfID, err = r.catalog.CreateShelf(ctx, shelf)
		if err != nil {
			return ShelfTierResolution{}, err
		}
		r.shelvesMade++
	}

	res := ShelfTierResolution{ShelfID: shelfID}
	if tier == "" {
		r.cache[key] = res
		return res, nil
	}

	tierID, found, err := r.catalog.FindTier(ctx, shelfID, tier)
	if err != nil {
		return ShelfTierResolution{}, err
	}
	if !found {
		tierID, err = r.catalog.CreateTier(ctx, shelfID, tier)
		if err != nil {
			return ShelfTierResolution{}, err
		}
		r.tiersMade++
	}

	res.TierID = &tierID
	r.cache[key] = res
	return res, nil
}

// ResolverStats counts what a Resolver did during its run.
type ResolverStats struct {
	CacheHits      int `json:"cache_hits"`
	ShelvesCreated int `json:"shelves_created"`
	TiersCreated   int `json:"tiers_created"`
}

// Stats reports cache hits and entities created so far.
func (r *Resolver) Stats() ResolverStats {
	return ResolverStats{
		CacheHits:      r.hits,
		ShelvesCreated: r.shelvesMade,
		TiersCreated:   r.tiersMade,
	}
}
