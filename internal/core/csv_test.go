package core

import (
	"reflect"
	"testing"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantHeaders []string
		wantRows    []map[string]string
	}{
		{
			name:        "empty input",
			input:       "",
			wantHeaders: []string{},
			wantRows:    []map[string]string{},
		},
		{
			name:        "header only",
			input:       "Title,Author\n",
			wantHeaders: []string{"Title", "Author"},
			wantRows:    []map[string]string{},
		},
		{
			name:        "simple rows",
			input:       "Title,Author\nDune,Herbert\nEmma,Austen",
			wantHeaders: []string{"Title", "Author"},
			wantRows: []map[string]string{
				{"Title": "Dune", "Author": "Herbert"},
				{"Title": "Emma", "Author": "Austen"},
			},
		},
		{
			name:        "crlf line endings",
			input:       "Title,Author\r\nDune,Herbert\r\n",
			wantHeaders: []string{"Title", "Author"},
			wantRows:    []map[string]string{{"Title": "Dune", "Author": "Herbert"}},
		},
		{
			name:        "lone carriage return is dropped",
			input:       "Title\nDu\rne\n",
			wantHeaders: []string{"Title"},
			wantRows:    []map[string]string{{"Title": "Dune"}},
		},
		{
			name:        "quoted comma and escaped quote",
			input:       "Title,Note\n\"Hello, World\",\"She said \"\"hi\"\"\"\n",
			wantHeaders: []string{"Title", "Note"},
			wantRows:    []map[string]string{{"Title": "Hello, World", "Note": `She said "hi"`}},
		},
		{
			name:        "quoted newline",
			input:       "Title,Note\nDune,\"line one\nline two\"\n",
			wantHeaders: []string{"Title", "Note"},
			wantRows:    []map[string]string{{"Title": "Dune", "Note": "line one\nline two"}},
		},
		{
			name:        "unicode line and paragraph separators",
			input:       "Title\u2028Dune\u2029Emma",
			wantHeaders: []string{"Title"},
			wantRows:    []map[string]string{{"Title": "Dune"}, {"Title": "Emma"}},
		},
		{
			name:        "quoted unicode separator stays in field",
			input:       "Title\n\"a\u2028b\"\n",
			wantHeaders: []string{"Title"},
			wantRows:    []map[string]string{{"Title": "a\u2028b"}},
		},
		{
			name:        "blank lines skipped",
			input:       "Title,Shelf\nHobbit,Fiction\n\n,Sci-Fi\n\n",
			wantHeaders: []string{"Title", "Shelf"},
			wantRows: []map[string]string{
				{"Title": "Hobbit", "Shelf": "Fiction"},
				{"Title": "", "Shelf": "Sci-Fi"},
			},
		},
		{
			name:        "short row padded",
			input:       "Title,Author,ISBN\nDune\n",
			wantHeaders: []string{"Title", "Author", "ISBN"},
			wantRows:    []map[string]string{{"Title": "Dune", "Author": "", "ISBN": ""}},
		},
		{
			name:        "long row truncated",
			input:       "Title\nDune,extra,more\n",
			wantHeaders: []string{"Title"},
			wantRows:    []map[string]string{{"Title": "Dune"}},
		},
		{
			name:        "unterminated quote runs to end",
			input:       "Title,Note\nDune,\"never closed\nstill note",
			wantHeaders: []string{"Title", "Note"},
			wantRows:    []map[string]string{{"Title": "Dune", "Note": "never closed\nstill note"}},
		},
		{
			name:        "duplicate header keeps later cell",
			input:       "Title,Title\nfirst,second\n",
			wantHeaders: []string{"Title", "Title"},
			wantRows:    []map[string]string{{"Title": "second"}},
		},
		{
			name:        "trailing comma yields empty cell",
			input:       "Title,Note\nDune,\n",
			wantHeaders: []string{"Title", "Note"},
			wantRows:    []map[string]string{{"Title": "Dune", "Note": ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCSV(tt.input)
			if !reflect.DeepEqual(got.Headers, tt.wantHeaders) {
				t.Errorf("Headers = %q, want %q", got.Headers, tt.wantHeaders)
			}
			if !reflect.DeepEqual(got.Rows, tt.wantRows) {
				t.Errorf("Rows = %q, want %q", got.Rows, tt.wantRows)
			}
		})
	}
}

func TestFormatCSV_RoundTrip(t *testing.T) {
	grids := []RawGrid{
		{
			Headers: []string{"Title", "Note"},
			Rows: []map[string]string{
				{"Title": "Hello, World", "Note": `She said "hi"`},
				{"Title": "Multi\nline", "Note": ""},
				{"Title": "Sep\u2028arated", "Note": "para\u2029graph"},
				{"Title": "", "Note": "no title"},
			},
		},
		{
			Headers: []string{"a,b", `c"d`},
			Rows:    []map[string]string{{"a,b": "1", `c"d`: "2"}},
		},
	}

	for _, g := range grids {
		text := FormatCSV(g.Records())
		got := ParseCSV(text)
		if !reflect.DeepEqual(got.Headers, g.Headers) {
			t.Errorf("Headers = %q, want %q (text %q)", got.Headers, g.Headers, text)
		}
		if !reflect.DeepEqual(got.Rows, g.Rows) {
			t.Errorf("Rows = %q, want %q (text %q)", got.Rows, g.Rows, text)
		}
	}
}

func TestFormatCSV_Quoting(t *testing.T) {
	got := FormatCSV([][]string{{"plain", "with,comma", `with"quote`, "with\nnewline", ""}})
	want := "plain,\"with,comma\",\"with\"\"quote\",\"with\nnewline\",\n"
	if got != want {
		t.Errorf("FormatCSV() = %q, want %q", got, want)
	}
}
