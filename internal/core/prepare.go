package core

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)
)

// PrepareRows turns every data row of text into an import-ready row.
//
// Empty values are treated as absent. Level and Tier are two names for one
// value: the level column when filled, else the tier column, else
// opts.DefaultTier. Both fields always carry it.
//
// If any row ends up without a title PrepareRows returns no rows and an
// error wrapping ErrMissingTitle that names the first such line.
func PrepareRows(text string, mapping HeaderMapping, opts PrepareOptions) ([]PreparedBookRow, error) {
	grid := ParseCSV(text)
	if mapping == nil {
		mapping = InferMapping(grid.Headers)
	}

	defaultShelf := NormalizeWhitespace(opts.DefaultShelf)
	defaultTier := NormalizeWhitespace(opts.DefaultTier)

	rows := make([]PreparedBookRow, 0, len(grid.Rows))
	for i, raw := range grid.Rows {
		mapped := projectRow(grid.Headers, raw, mapping)

		title := mapped[FieldTitle]
		if title == "" {
			return nil, fmt.Errorf("row %d: %w", i+2, ErrMissingTitle)
		}
		if opts.TitleCaseValues {
			title = TitleCase(title)
		}

		tier := firstNonEmpty(mapped[FieldLevel], mapped[FieldTier], defaultTier)

		rows = append(rows, PreparedBookRow{
			Title:    title,
			Author:   optional(mapped[FieldAuthor]),
			ISBN:     optional(mapped[FieldISBN]),
			CoverURL: optional(mapped[FieldCoverURL]),
			Shelf:    optional(firstNonEmpty(mapped[FieldShelf], defaultShelf)),
			Level:    optional(tier),
			Tier:     optional(tier),
			Note:     optional(mapped[FieldNote]),
		})
	}

	return rows, nil
}

// TitleCase capitalizes each space-separated segment longer than two
// characters and lowercases the rest of it. Segments of one or two
// characters are lowercased entirely.
func TitleCase(s string) string {
	segments := strings.Split(s, " ")
	for i, seg := range segments {
		if utf8.RuneCountInString(seg) <= 2 {
			segments[i] = lower.String(seg)
			continue
		}
		_, size := utf8.DecodeRuneInString(seg)
		segments[i] = upper.String(seg[:size]) + lower.String(seg[size:])
	}
	return strings.Join(segments, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
