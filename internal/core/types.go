package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by the pipeline. Callers match them with errors.Is.
var (
	// ErrMissingTitle is returned by PrepareRows when any row has an empty
	// title after normalization. No rows are returned alongside it.
	ErrMissingTitle = errors.New("CSV row is missing a title")

	// ErrInvalidOptions is returned when ImportOptions fail validation.
	ErrInvalidOptions = errors.New("invalid import options")

	// ErrNoCatalog is returned when an import is attempted without a store.
	ErrNoCatalog = errors.New("catalog store is not configured")

	// ErrUnknownField is returned when a mapping names a field outside the closed set.
	ErrUnknownField = errors.New("unknown field")
)

// Field is a canonical book attribute a CSV column can be mapped to.
// The zero value means the column is ignored.
type Field string

const (
	FieldIgnored  Field = ""
	FieldTitle    Field = "title"
	FieldAuthor   Field = "author"
	FieldISBN     Field = "isbn"
	FieldCoverURL Field = "cover_url"
	FieldShelf    Field = "shelf"
	FieldLevel    Field = "level"
	FieldTier     Field = "tier"
	FieldNote     Field = "note"
)

// Fields lists every canonical field in display order.
var Fields = []Field{
	FieldTitle, FieldAuthor, FieldISBN, FieldCoverURL,
	FieldShelf, FieldLevel, FieldTier, FieldNote,
}

// ParseField converts a field name to a Field. The empty string and "ignored"
// (any case) yield FieldIgnored.
func ParseField(s string) (Field, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "", "ignored", "ignore", "none", "null":
		return FieldIgnored, nil
	default:
		for _, f := range Fields {
			if v == string(f) {
				return f, nil
			}
		}
		return FieldIgnored, fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
}

// Valid reports whether f is FieldIgnored or one of Fields.
func (f Field) Valid() bool {
	if f == FieldIgnored {
		return true
	}
	for _, x := range Fields {
		if f == x {
			return true
		}
	}
	return false
}

// UnmarshalJSON accepts a field name or null.
func (f *Field) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = FieldIgnored
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseField(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// MarshalJSON writes FieldIgnored as null.
func (f Field) MarshalJSON() ([]byte, error) {
	if f == FieldIgnored {
		return []byte("null"), nil
	}
	return json.Marshal(string(f))
}

// HeaderMapping maps a raw CSV header to the field it fills.
// Headers absent from the mapping are ignored.
type HeaderMapping map[string]Field

// Clone returns an independent copy of m.
func (m HeaderMapping) Clone() HeaderMapping {
	if m == nil {
		return nil
	}
	out := make(HeaderMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// RawGrid is the tokenized CSV: the first physical row as headers, and one
// map per data row keyed by header. Cells missing from short rows are "".
type RawGrid struct {
	Headers []string
	Rows    []map[string]string
}

// CanonicalRow is one previewed row.
type CanonicalRow struct {
	Raw    map[string]string `json:"raw"`
	Mapped map[Field]string  `json:"mapped"`
	Error  string            `json:"error,omitempty"`
}

// PreviewResult is the bounded projection returned by BuildPreview.
type PreviewResult struct {
	Headers []string       `json:"headers"`
	Mapping HeaderMapping  `json:"mapping"`
	Rows    []CanonicalRow `json:"rows"`
	Errors  []string       `json:"errors"`
	Total   int            `json:"total"`
}

// PreparedBookRow is an import-ready row. Title is never empty when produced
// by PrepareRows, and Level and Tier always carry the same value.
type PreparedBookRow struct {
	Title    string  `json:"title" validate:"max=1000"`
	Author   *string `json:"author,omitempty"`
	ISBN     *string `json:"isbn,omitempty" validate:"omitempty,max=32"`
	CoverURL *string `json:"cover_url,omitempty"`
	Shelf    *string `json:"shelf,omitempty" validate:"omitempty,max=200"`
	Level    *string `json:"level,omitempty" validate:"omitempty,max=200"`
	Tier     *string `json:"tier,omitempty" validate:"omitempty,max=200"`
	Note     *string `json:"note,omitempty"`
}

// TierName returns the tier, falling back to the level alias.
func (r PreparedBookRow) TierName() string {
	if r.Tier != nil && *r.Tier != "" {
		return *r.Tier
	}
	if r.Level != nil {
		return *r.Level
	}
	return ""
}

// ShelfTierResolution is the materialized identity of a shelf/tier pair.
type ShelfTierResolution struct {
	ShelfID string
	TierID  *string
}

// BookPayload is one row of an upsert, as handed to the Catalog.
type BookPayload struct {
	Title    string
	Author   *string
	ISBN     *string
	CoverURL *string
	ShelfID  *string
	TierID   *string
	Note     *string
}

// RowError records a row that did not make it into the catalog.
// Index is the row's 0-based position in the input passed to BulkInsert.
type RowError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// ImportResult summarizes a BulkInsert run.
type ImportResult struct {
	OKCount   int        `json:"ok_count"`
	ErrorRows []RowError `json:"error_rows"`
}

// DuplicatePolicy selects what the catalog does with an existing ISBN.
type DuplicatePolicy string

const (
	DuplicateSkip   DuplicatePolicy = "skip"
	DuplicateUpdate DuplicatePolicy = "update"
)

// Import option defaults and bounds.
const (
	DefaultBatchSize    = 200
	MaxBatchSize        = 500
	DefaultPreviewLimit = 50
)

// ImportOptions controls BulkInsert. Zero values select the defaults.
type ImportOptions struct {
	BatchSize   int             `json:"batch_size" validate:"gte=0,lte=500"`
	OnDuplicate DuplicatePolicy `json:"on_duplicate" validate:"omitempty,oneof=skip update"`
}

// PrepareOptions controls PrepareRows.
type PrepareOptions struct {
	// TitleCaseValues title-cases the title field only.
	TitleCaseValues bool `json:"title_case_values"`

	// DefaultShelf is assigned to rows without a shelf.
	DefaultShelf string `json:"default_shelf,omitempty" validate:"omitempty,max=200"`

	// DefaultTier is assigned to rows without a tier or level.
	DefaultTier string `json:"default_tier,omitempty" validate:"omitempty,max=200"`
}
