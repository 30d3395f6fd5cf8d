// Package core implements the CSV book import pipeline.
//
// The pipeline runs leaf-first:
//
//  1. [ParseCSV] tokenizes raw text into a [RawGrid].
//  2. [InferMapping] guesses a [HeaderMapping] from the headers. The caller
//     may edit it before going further.
//  3. [BuildPreview] projects a bounded number of rows through the mapping
//     and flags rows without a title.
//  4. [PrepareRows] projects every row into a [PreparedBookRow], failing the
//     whole call if any title is missing.
//  5. [BulkInsert] writes prepared rows to a [Catalog] in batches, creating
//     shelves and tiers on the way through a run-scoped [Resolver].
//
// Everything up to BulkInsert is pure: the mapping is always an explicit
// argument. [Service] wraps the pipeline for transports with configured
// defaults, an [ImportLimiter] and a per-run timeout.
//
// Technical errors are mapped to user-facing messages with codes by
// [MapError]; see error_messages.go for the code table.
package core
