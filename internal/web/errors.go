package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with its technical detail and the request ID, then
// mapped through core.MapError so clients only see a message, a suggested
// action and a support code. HTMX callers get an HTML partial, everyone
// else JSON.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/shelfimport/internal/core"
	"github.com/JonMunkholm/shelfimport/internal/logging"
	"github.com/JonMunkholm/shelfimport/internal/validation"
)

var (
	errNoFile         = errors.New("no file provided")
	errInvalidMapping = errors.New("invalid mapping JSON")
	errInvalidBody    = errors.New("validation failed: request body is not valid JSON")
	errRateLimited    = errors.New("rate limit exceeded")
	errRunNotFound    = errors.New("import run not found")
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// statusFor picks the HTTP status for an error returned by the service.
func statusFor(err error) int {
	var verr *validation.Error
	switch {
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyImports), errors.Is(err, core.ErrNoCatalog):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusConflict
	case errors.Is(err, errRunNotFound):
		return http.StatusNotFound
	case errors.As(err, &verr),
		errors.Is(err, core.ErrMissingTitle),
		errors.Is(err, core.ErrInvalidOptions):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrUnknownField),
		errors.Is(err, errNoFile),
		errors.Is(err, errInvalidMapping),
		errors.Is(err, errInvalidBody):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes a user-facing error with the given status.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	level := logger.Warn
	if statusCode >= http.StatusInternalServerError {
		level = logger.Error
	}
	level("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if statusCode == http.StatusServiceUnavailable && errors.Is(err, core.ErrTooManyImports) {
		w.Header().Set("Retry-After", "30")
	}

	if isHTMX(r) {
		renderErrorPartial(w, r, userMsg, statusCode)
		return
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	var verr *validation.Error
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	writeJSONStatus(w, statusCode, resp)
}

// fail responds with the status statusFor picks.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, err, statusFor(err))
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// HTMX ignores non-2xx bodies unless told to swap them.
	w.Header().Set("HX-Reswap", "innerHTML")
	w.WriteHeader(statusCode)

	if err := ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render error partial", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// writeJSON encodes v as JSON with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON. Encoding errors are only logged since
// headers are already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
