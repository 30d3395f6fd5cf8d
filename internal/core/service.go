package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/shelfimport/internal/config"
	"github.com/JonMunkholm/shelfimport/internal/logging"
)

// ServiceConfig holds the service-wide defaults applied to requests that
// leave an option unset.
type ServiceConfig struct {
	BatchSize     int
	OnDuplicate   DuplicatePolicy
	PreviewLimit  int
	TitleCase     bool
	MaxFileSize   int64
	MaxConcurrent int
	MaxWaitTime   time.Duration
	Timeout       time.Duration
}

// NewServiceConfig maps the IMPORT_* settings onto a ServiceConfig.
func NewServiceConfig(c config.ImportConfig) ServiceConfig {
	return ServiceConfig{
		BatchSize:     c.BatchSize,
		OnDuplicate:   DuplicatePolicy(c.OnDuplicate),
		PreviewLimit:  c.PreviewLimit,
		TitleCase:     c.TitleCase,
		MaxFileSize:   c.MaxFileSize,
		MaxConcurrent: c.MaxConcurrent,
		MaxWaitTime:   c.MaxWaitTime,
		Timeout:       c.Timeout,
	}
}

// DefaultImportTimeout bounds a run when ServiceConfig.Timeout is unset.
const DefaultImportTimeout = 10 * time.Minute

// Service is the entry point used by transports. It owns the catalog, the
// import limiter and the registry of runs in flight; the pipeline functions
// it calls stay pure.
type Service struct {
	catalog Catalog
	cfg     ServiceConfig
	limiter *ImportLimiter

	mu   sync.RWMutex
	runs map[string]*activeImport
}

type activeImport struct {
	ID        string
	Rows      int
	StartedAt time.Time
	ClientIP  string
	cancel    context.CancelFunc
}

// ActiveImport describes a run in flight.
type ActiveImport struct {
	ID        string    `json:"id"`
	Rows      int       `json:"rows"`
	StartedAt time.Time `json:"started_at"`
	ClientIP  string    `json:"client_ip,omitempty"`
}

// ImportStatus is reported by the status endpoint.
type ImportStatus struct {
	Limiter ImportLimiterStatus `json:"limiter"`
	Active  []ActiveImport      `json:"active"`
}

// ImportRun is the outcome of Service.Import.
type ImportRun struct {
	ID     string       `json:"id"`
	Result ImportResult `json:"result"`
}

// NewService returns a Service writing to catalog. catalog may be nil, in
// which case every import fails with ErrNoCatalog.
func NewService(catalog Catalog, cfg ServiceConfig) *Service {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.OnDuplicate == "" {
		cfg.OnDuplicate = DuplicateSkip
	}
	if cfg.PreviewLimit <= 0 {
		cfg.PreviewLimit = DefaultPreviewLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultImportTimeout
	}

	return &Service{
		catalog: catalog,
		cfg:     cfg,
		limiter: NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		runs:    make(map[string]*activeImport),
	}
}

// ReadCSV buffers an uploaded file within the configured size limit.
func (s *Service) ReadCSV(r io.Reader) (string, error) {
	return ReadText(r, s.cfg.MaxFileSize)
}

// InferMapping guesses a mapping for headers.
func (s *Service) InferMapping(headers []string) HeaderMapping {
	return InferMapping(headers)
}

// Preview projects the first rows of text. limit <= 0 uses the configured limit.
func (s *Service) Preview(text string, mapping HeaderMapping, limit int) PreviewResult {
	if limit <= 0 {
		limit = s.cfg.PreviewLimit
	}
	return BuildPreview(text, mapping, limit)
}

// PrepareOptions returns the preparation defaults, to be overridden per request.
func (s *Service) PrepareOptions() PrepareOptions {
	return PrepareOptions{TitleCaseValues: s.cfg.TitleCase}
}

// Prepare converts every row of text. See PrepareRows.
func (s *Service) Prepare(text string, mapping HeaderMapping, opts PrepareOptions) ([]PreparedBookRow, error) {
	return PrepareRows(text, mapping, opts)
}

// Import runs BulkInsert under the limiter and the run timeout. Unset
// options take the service defaults.
func (s *Service) Import(ctx context.Context, rows []PreparedBookRow, opts ImportOptions) (ImportRun, error) {
	if s.catalog == nil {
		return ImportRun{Result: ImportResult{ErrorRows: []RowError{}}}, ErrNoCatalog
	}
	if err := opts.Validate(); err != nil {
		return ImportRun{Result: ImportResult{ErrorRows: []RowError{}}}, err
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = s.cfg.BatchSize
	}
	if opts.OnDuplicate == "" {
		opts.OnDuplicate = s.cfg.OnDuplicate
	}

	run := ImportRun{ID: uuid.NewString(), Result: ImportResult{ErrorRows: []RowError{}}}
	logger := logging.WithFields(ctx,
		"run_id", run.ID,
		"rows", len(rows),
		"batch_size", opts.BatchSize,
		"on_duplicate", opts.OnDuplicate,
	)

	err := s.limiter.Do(ctx, func(ctx context.Context) error {
		runCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
		runCtx = logging.WithLogger(runCtx, logger)

		s.track(&activeImport{
			ID:        run.ID,
			Rows:      len(rows),
			StartedAt: time.Now(),
			ClientIP:  ClientIPFromContext(ctx),
			cancel:    cancel,
		})
		defer s.untrack(run.ID)

		logger.Info("import started", "client_ip", ClientIPFromContext(ctx))
		var err error
		run.Result, err = BulkInsert(runCtx, s.catalog, rows, opts)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrTooManyImports) {
			logger.Warn("import rejected", "error", err)
		} else {
			logger.Error("import failed", "error", err, "ok", run.Result.OKCount)
		}
		return run, err
	}

	return run, nil
}

// ImportCSV prepares text with mapping and imports the rows in one call.
// The prepared rows are returned so callers can build a failed-rows report.
func (s *Service) ImportCSV(ctx context.Context, text string, mapping HeaderMapping, prep PrepareOptions, opts ImportOptions) (ImportRun, []PreparedBookRow, error) {
	rows, err := s.Prepare(text, mapping, prep)
	if err != nil {
		return ImportRun{Result: ImportResult{ErrorRows: []RowError{}}}, nil, fmt.Errorf("prepare rows: %w", err)
	}
	run, err := s.Import(ctx, rows, opts)
	return run, rows, err
}

// Cancel stops the run with the given id. It reports whether the run was found.
func (s *Service) Cancel(id string) bool {
	s.mu.RLock()
	run, ok := s.runs[id]
	s.mu.RUnlock()
	if ok {
		run.cancel()
	}
	return ok
}

// Status reports limiter usage and the runs in flight, oldest first.
func (s *Service) Status() ImportStatus {
	s.mu.RLock()
	active := make([]ActiveImport, 0, len(s.runs))
	for _, r := range s.runs {
		active = append(active, ActiveImport{ID: r.ID, Rows: r.Rows, StartedAt: r.StartedAt, ClientIP: r.ClientIP})
	}
	s.mu.RUnlock()

	sort.Slice(active, func(i, j int) bool {
		return active[i].StartedAt.Before(active[j].StartedAt)
	})

	return ImportStatus{Limiter: s.limiter.Status(), Active: active}
}

// WaitForDrain blocks until all runs finish or ctx ends.
func (s *Service) WaitForDrain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) track(run *activeImport) {
	s.mu.Lock()
	s.runs[run.ID] = run
	s.mu.Unlock()
}

func (s *Service) untrack(id string) {
	s.mu.Lock()
	delete(s.runs, id)
	s.mu.Unlock()
}
