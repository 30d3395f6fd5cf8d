package web

// handlers_common.go holds the request parsing shared by the import handlers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/shelfimport/internal/core"
	"github.com/JonMunkholm/shelfimport/internal/validation"
)

// multipartOverhead is allowed on top of the file size limit for the other
// form fields and part headers.
const multipartOverhead = 1 << 20

// jsonBodyFactor scales the CSV size limit for JSON bodies carrying prepared
// rows, which are several times larger than the CSV they came from.
const jsonBodyFactor = 4

// parseIntParam parses an integer form or query value with a default.
// Values that are not positive integers yield the default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.FormValue(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// readUpload parses the multipart form and returns the sanitized text of
// its "file" part.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, error) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			return "", fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, maxSize)
		}
		return "", fmt.Errorf("%w: %v", errNoFile, err)
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return "", errNoFile
	}
	defer file.Close()

	return s.service.ReadCSV(file)
}

// parseMapping reads the optional "mapping" form value. A missing mapping
// returns nil so that the pipeline infers one.
func parseMapping(r *http.Request) (core.HeaderMapping, error) {
	raw := strings.TrimSpace(r.FormValue("mapping"))
	if raw == "" {
		return nil, nil
	}
	var mapping core.HeaderMapping
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidMapping, err)
	}
	return mapping, nil
}

// parsePrepareOptions overlays form values on the service defaults.
func (s *Server) parsePrepareOptions(r *http.Request) (core.PrepareOptions, error) {
	opts := s.service.PrepareOptions()
	if v := r.FormValue("title_case"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("%w: title_case must be true or false", core.ErrInvalidOptions)
		}
		opts.TitleCaseValues = b
	}
	opts.DefaultShelf = r.FormValue("default_shelf")
	opts.DefaultTier = r.FormValue("default_tier")

	if err := validation.Struct(opts); err != nil {
		return opts, err
	}
	return opts, nil
}

// parseImportOptions reads batch_size and on_duplicate from the form.
// Unset values are left zero for the service to default.
func parseImportOptions(r *http.Request) (core.ImportOptions, error) {
	var opts core.ImportOptions
	if v := strings.TrimSpace(r.FormValue("batch_size")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("%w: batch_size must be a number", core.ErrInvalidOptions)
		}
		opts.BatchSize = n
	}
	opts.OnDuplicate = core.DuplicatePolicy(strings.ToLower(strings.TrimSpace(r.FormValue("on_duplicate"))))
	return opts, nil
}

// decodeJSON reads a JSON body into v and validates it.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize*jsonBodyFactor)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return core.ErrFileTooLarge
		}
		if errors.Is(err, core.ErrUnknownField) {
			return err
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return validation.Struct(v)
}
