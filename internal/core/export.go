package core

import "strconv"

// failedRowsHeader is the header of the failed-rows download. The data columns
// reuse the canonical field names so the file can be re-imported unchanged
// once fixed.
var failedRowsHeader = []string{
	"record", "error",
	string(FieldTitle), string(FieldAuthor), string(FieldISBN), string(FieldCoverURL),
	string(FieldShelf), string(FieldLevel), string(FieldTier), string(FieldNote),
}

// FailedRowsCSV renders the rows named in result.ErrorRows as CSV, one line
// per error in result order. "record" is the 1-based position in rows. Errors
// whose index is out of range are written without book values.
func FailedRowsCSV(rows []PreparedBookRow, result ImportResult) string {
	records := make([][]string, 0, len(result.ErrorRows)+1)
	records = append(records, failedRowsHeader)

	for _, re := range result.ErrorRows {
		rec := make([]string, 2, len(failedRowsHeader))
		rec[0] = strconv.Itoa(re.Index + 1)
		rec[1] = re.Message

		var row PreparedBookRow
		if re.Index >= 0 && re.Index < len(rows) {
			row = rows[re.Index]
		}
		rec = append(rec,
			row.Title, deref(row.Author), deref(row.ISBN), deref(row.CoverURL),
			deref(row.Shelf), deref(row.Level), deref(row.Tier), deref(row.Note),
		)
		records = append(records, rec)
	}

	return FormatCSV(records)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
