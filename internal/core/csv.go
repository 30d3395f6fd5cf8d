package core

import "strings"

// Line terminators recognised outside quoted fields, besides '\n'.
const (
	lineSeparator      = '\u2028'
	paragraphSeparator = '\u2029'
)

// ParseCSV tokenizes comma-separated text into a RawGrid.
//
// Fields may be quoted with '"', with "" as an escaped quote; quoted fields
// may contain commas and line breaks. Rows end at '\n', U+2028 or U+2029.
// '\r' is dropped wherever it appears, so CRLF input parses like LF input.
// An unterminated quote runs to the end of the input.
//
// The first row is the header. Data rows consisting of a single empty cell
// (blank lines) are skipped. Short rows are padded with "" and cells past
// the last header are dropped. Malformed input never produces an error.
func ParseCSV(text string) RawGrid {
	records := tokenize(text)
	if len(records) == 0 {
		return RawGrid{Headers: []string{}, Rows: []map[string]string{}}
	}

	headers := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) == 1 && rec[0] == "" {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}

	return RawGrid{Headers: headers, Rows: rows}
}

func tokenize(text string) [][]string {
	var (
		records [][]string
		record  []string
		field   strings.Builder
		inQuote bool
	)

	endField := func() {
		record = append(record, field.String())
		field.Reset()
	}
	endRecord := func() {
		endField()
		records = append(records, record)
		record = nil
	}

	text = strings.ReplaceAll(text, "\r", "")
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '"':
			if inQuote && i+1 < len(runes) && runes[i+1] == '"' {
				field.WriteRune('"')
				i++
				continue
			}
			inQuote = !inQuote
		case c == ',' && !inQuote:
			endField()
		case (c == '\n' || c == lineSeparator || c == paragraphSeparator) && !inQuote:
			endRecord()
		default:
			field.WriteRune(c)
		}
	}

	if field.Len() > 0 || inQuote || len(record) > 0 {
		endRecord()
	}

	return records
}

// Records returns the grid as header row plus data rows in header order.
func (g RawGrid) Records() [][]string {
	out := make([][]string, 0, len(g.Rows)+1)
	out = append(out, append([]string(nil), g.Headers...))
	for _, row := range g.Rows {
		rec := make([]string, len(g.Headers))
		for i, h := range g.Headers {
			rec[i] = row[h]
		}
		out = append(out, rec)
	}
	return out
}

// FormatCSV serializes records as comma-separated text with '\n' line
// endings, quoting cells that contain a delimiter, quote, or line break.
func FormatCSV(records [][]string) string {
	var b strings.Builder
	for _, rec := range records {
		for i, cell := range rec {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCell(&b, cell)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func writeCell(b *strings.Builder, cell string) {
	if !needsQuotes(cell) {
		b.WriteString(cell)
		return
	}
	b.WriteByte('"')
	b.WriteString(strings.ReplaceAll(cell, `"`, `""`))
	b.WriteByte('"')
}

func needsQuotes(cell string) bool {
	return strings.ContainsAny(cell, ",\"\n\r\u2028\u2029")
}
