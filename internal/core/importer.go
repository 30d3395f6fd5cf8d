package core

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/JonMunkholm/shelfimport/internal/logging"
	"github.com/JonMunkholm/shelfimport/internal/validation"
)

// Validate checks the options against their bounds. Zero values are valid
// and select the defaults.
func (o ImportOptions) Validate() error {
	if err := validation.Struct(o); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	return nil
}

func (o ImportOptions) withDefaults() ImportOptions {
	if o.BatchSize == 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.OnDuplicate == "" {
		o.OnDuplicate = DuplicateSkip
	}
	return o
}

// BulkInsert writes rows to catalog in contiguous batches of opts.BatchSize,
// one batch at a time.
//
// A row without a title, or whose shelf or tier cannot be resolved, is
// recorded in ErrorRows and left out of its batch. A batch whose upsert fails
// records every row it carried with the store's message; later batches still
// run. RowError.Index is always the row's position in rows.
//
// Rows skipped by the store as existing isbns under DuplicateSkip are counted
// in OKCount: the store reports no per-row outcome for them.
//
// Invalid options and a nil catalog are returned as errors before any write.
// If ctx ends between batches the partial result is returned with ctx.Err().
func BulkInsert(ctx context.Context, catalog Catalog, rows []PreparedBookRow, opts ImportOptions) (ImportResult, error) {
	result := ImportResult{ErrorRows: []RowError{}}
	if catalog == nil {
		return result, ErrNoCatalog
	}
	if err := opts.Validate(); err != nil {
		return result, err
	}
	opts = opts.withDefaults()
	skip := opts.OnDuplicate == DuplicateSkip

	logger := logging.FromContext(ctx)
	resolver := NewResolver(catalog)

	for start := 0; start < len(rows); start += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			logger.Warn("import stopped", "next_row", start, "error", err)
			sortRowErrors(result.ErrorRows)
			return result, err
		}

		end := min(start+opts.BatchSize, len(rows))
		payload := make([]BookPayload, 0, end-start)
		indices := make([]int, 0, end-start)

		for i := start; i < end; i++ {
			row := rows[i]
			if strings.TrimSpace(row.Title) == "" {
				result.ErrorRows = append(result.ErrorRows, RowError{Index: i, Message: "Missing title"})
				continue
			}

			book := BookPayload{
				Title:    row.Title,
				Author:   row.Author,
				ISBN:     row.ISBN,
				CoverURL: row.CoverURL,
				Note:     row.Note,
			}
			if row.Shelf != nil && *row.Shelf != "" {
				res, err := resolver.Resolve(ctx, *row.Shelf, row.TierName())
				if err != nil {
					result.ErrorRows = append(result.ErrorRows, RowError{Index: i, Message: err.Error()})
					continue
				}
				book.ShelfID = &res.ShelfID
				book.TierID = res.TierID
			}

			payload = append(payload, book)
			indices = append(indices, i)
		}

		if len(payload) == 0 {
			continue
		}

		if err := catalog.UpsertBooks(ctx, payload, skip); err != nil {
			logger.Warn("batch upsert failed", "first_row", start, "rows", len(payload), "error", err)
			for _, idx := range indices {
				result.ErrorRows = append(result.ErrorRows, RowError{Index: idx, Message: err.Error()})
			}
			continue
		}

		result.OKCount += len(payload)
		logger.Debug("batch imported", "first_row", start, "rows", len(payload), "ok_total", result.OKCount)
	}

	sortRowErrors(result.ErrorRows)

	stats := resolver.Stats()
	logger.Info("import finished",
		"rows", len(rows),
		"ok", result.OKCount,
		"failed", len(result.ErrorRows),
		"shelves_created", stats.ShelvesCreated,
		"tiers_created", stats.TiersCreated,
		"cache_hits", stats.CacheHits,
	)

	return result, nil
}

// sortRowErrors orders errors by input index. Upsert failures are recorded
// after the row-level errors of the same batch.
func sortRowErrors(errs []RowError) {
	slices.SortStableFunc(errs, func(a, b RowError) int {
		return cmp.Compare(a.Index, b.Index)
	})
}
