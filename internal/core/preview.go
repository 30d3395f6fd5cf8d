package core

import "fmt"

// BuildPreview parses text and projects at most limit data rows through
// mapping. A nil mapping is inferred from the headers; limit <= 0 selects
// DefaultPreviewLimit.
//
// Rows without a title are kept and carry "Row N: Missing title", where N is
// the physical line number counting the header as line 1. The same messages
// are collected in Errors.
func BuildPreview(text string, mapping HeaderMapping, limit int) PreviewResult {
	grid := ParseCSV(text)
	if mapping == nil {
		mapping = InferMapping(grid.Headers)
	}
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}

	n := min(limit, len(grid.Rows))
	result := PreviewResult{
		Headers: grid.Headers,
		Mapping: mapping,
		Rows:    make([]CanonicalRow, 0, n),
		Errors:  []string{},
		Total:   len(grid.Rows),
	}

	for i, raw := range grid.Rows[:n] {
		row := CanonicalRow{
			Raw:    raw,
			Mapped: projectRow(grid.Headers, raw, mapping),
		}
		if row.Mapped[FieldTitle] == "" {
			row.Error = fmt.Sprintf("Row %d: Missing title", i+2)
			result.Errors = append(result.Errors, row.Error)
		}
		result.Rows = append(result.Rows, row)
	}

	return result
}

// projectRow applies mapping in header order, whitespace-normalizing each
// value. When several headers feed one field the later header wins.
func projectRow(headers []string, raw map[string]string, mapping HeaderMapping) map[Field]string {
	mapped := make(map[Field]string)
	for _, h := range headers {
		field := mapping[h]
		if field == FieldIgnored {
			continue
		}
		mapped[field] = NormalizeWhitespace(raw[h])
	}
	return mapped
}
