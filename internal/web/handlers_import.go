package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/shelfimport/internal/core"
	"github.com/JonMunkholm/shelfimport/internal/logging"
)

type mappingRequest struct {
	Headers []string `json:"headers" validate:"required,max=500,dive,max=500"`
}

type mappingResponse struct {
	Mapping core.HeaderMapping `json:"mapping"`
	Fields  []core.Field       `json:"fields"`
}

type prepareResponse struct {
	Rows  []core.PreparedBookRow `json:"rows"`
	Count int                    `json:"count"`
}

type importRequest struct {
	Rows    []core.PreparedBookRow `json:"rows" validate:"max=100000,dive"`
	Options core.ImportOptions     `json:"options"`
}

type importResponse struct {
	core.ImportRun
	FailedRowsCSV string            `json:"failed_rows_csv,omitempty"`
	Error         *core.UserMessage `json:"error,omitempty"`
}

type failedRowsRequest struct {
	Rows   []core.PreparedBookRow `json:"rows" validate:"dive"`
	Result core.ImportResult      `json:"result"`
}

// handleInferMapping guesses a field for each header.
func (s *Server) handleInferMapping(w http.ResponseWriter, r *http.Request) {
	var req mappingRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}

	writeJSON(w, mappingResponse{
		Mapping: s.service.InferMapping(req.Headers),
		Fields:  core.Fields,
	})
}

// handlePreview projects the first rows of an uploaded CSV.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	text, err := s.readUpload(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	mapping, err := parseMapping(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	result := s.service.Preview(text, mapping, parseIntParam(r, "limit", 0))

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := PreviewTable(result).Render(r.Context(), w); err != nil {
			logging.FromContext(r.Context()).Error("render preview", "error", err)
		}
		return
	}
	writeJSON(w, result)
}

// handlePrepare converts every row of an uploaded CSV into import-ready rows.
func (s *Server) handlePrepare(w http.ResponseWriter, r *http.Request) {
	text, err := s.readUpload(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	mapping, err := parseMapping(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	opts, err := s.parsePrepareOptions(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	rows, err := s.service.Prepare(text, mapping, opts)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, prepareResponse{Rows: rows, Count: len(rows)})
}

// handleImport bulk-inserts prepared rows sent as JSON.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}

	run, err := s.service.Import(r.Context(), req.Rows, req.Options)
	s.respondImport(w, r, run, req.Rows, err, false)
}

// handleImportCSV prepares and imports an uploaded CSV in one request.
// The response carries the failed rows as CSV since the caller never saw
// the prepared rows.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	text, err := s.readUpload(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	mapping, err := parseMapping(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	prep, err := s.parsePrepareOptions(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	opts, err := parseImportOptions(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	run, rows, err := s.service.ImportCSV(r.Context(), text, mapping, prep, opts)
	s.respondImport(w, r, run, rows, err, true)
}

// respondImport writes an import outcome. Runs stopped by cancellation or
// timeout still report what they wrote before stopping.
func (s *Server) respondImport(w http.ResponseWriter, r *http.Request, run core.ImportRun, rows []core.PreparedBookRow, err error, withFailedCSV bool) {
	stopped := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	if err != nil && !stopped {
		fail(w, r, err)
		return
	}

	resp := importResponse{ImportRun: run}
	if withFailedCSV && len(run.Result.ErrorRows) > 0 {
		resp.FailedRowsCSV = core.FailedRowsCSV(rows, run.Result)
	}

	status := http.StatusOK
	if stopped {
		msg := core.MapError(err)
		resp.Error = &msg
		status = statusFor(err)
		logging.FromContext(r.Context()).Warn("import stopped early",
			"run_id", run.ID,
			"ok", run.Result.OKCount,
			"error", err,
		)
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if err := ImportSummary(run).Render(r.Context(), w); err != nil {
			logging.FromContext(r.Context()).Error("render import summary", "error", err)
		}
		return
	}
	writeJSONStatus(w, status, resp)
}

// handleFailedRows turns an import result back into a CSV of the rows that
// failed, with the error next to each.
func (s *Server) handleFailedRows(w http.ResponseWriter, r *http.Request) {
	var req failedRowsRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}

	body := core.FailedRowsCSV(req.Rows, req.Result)
	filename := "failed-rows-" + time.Now().UTC().Format("20060102-150405") + ".csv"

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if _, err := w.Write([]byte(body)); err != nil {
		logging.FromContext(r.Context()).Error("write failed rows", "error", err)
	}
}

// handleImportStatus returns limiter usage and the runs in flight.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.Status())
}

// handleCancelImport cancels a run in flight. The run's own request then
// returns with the rows written so far.
func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runID")
	if !s.service.Cancel(id) {
		fail(w, r, errRunNotFound)
		return
	}

	logging.FromContext(r.Context()).Info("import cancel requested", "run_id", id)
	writeJSONStatus(w, http.StatusAccepted, map[string]any{"id": id, "cancelled": true})
}

// handleHealth reports whether the catalog store answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, map[string]string{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.health.Ping(ctx); err != nil {
		logging.FromContext(r.Context()).Error("health check failed", "error", err)
		writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}
