package web

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/shelfimport/internal/core"
)

// ErrorAlert renders the error box swapped into the page by HTMX callers.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="alert alert-error" role="alert"><p class="alert-message">%s</p>`,
			templ.EscapeString(message))
		if err != nil {
			return err
		}
		if action != "" {
			if _, err := fmt.Fprintf(w, `<p class="alert-action">%s</p>`, templ.EscapeString(action)); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(w, `<p class="alert-code">Code: %s</p></div>`, templ.EscapeString(code))
		return err
	})
}

// ImportSummary renders the outcome of an import run, listing failed rows by
// their 1-based data row number.
func ImportSummary(run core.ImportRun) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		res := run.Result
		if _, err := fmt.Fprintf(w,
			`<div class="import-summary" data-run-id="%s"><p>Imported %d books, %d failed.</p>`,
			templ.EscapeString(run.ID), res.OKCount, len(res.ErrorRows)); err != nil {
			return err
		}
		if len(res.ErrorRows) > 0 {
			if _, err := io.WriteString(w, `<ul class="import-errors">`); err != nil {
				return err
			}
			for _, e := range res.ErrorRows {
				if _, err := fmt.Fprintf(w, `<li>Row %d: %s</li>`, e.Index+1, templ.EscapeString(e.Message)); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, `</ul>`); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

// PreviewTable renders preview rows under the canonical field names.
func PreviewTable(p core.PreviewResult) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<table class="preview"><thead><tr>`); err != nil {
			return err
		}
		for _, f := range core.Fields {
			if _, err := fmt.Fprintf(w, `<th>%s</th>`, templ.EscapeString(string(f))); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `<th></th></tr></thead><tbody>`); err != nil {
			return err
		}
		for _, row := range p.Rows {
			class := ""
			if row.Error != "" {
				class = ` class="row-error"`
			}
			if _, err := fmt.Fprintf(w, `<tr%s>`, class); err != nil {
				return err
			}
			for _, f := range core.Fields {
				if _, err := fmt.Fprintf(w, `<td>%s</td>`, templ.EscapeString(row.Mapped[f])); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, `<td>%s</td></tr>`, templ.EscapeString(row.Error)); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, `</tbody></table><p class="preview-total">%d rows in file</p>`, p.Total)
		return err
	})
}
