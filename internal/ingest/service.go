package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shkelqim22/zgjedhjet/internal/election"
	apperrors "github.com/shkelqim22/zgjedhjet/pkg/errors"
	"github.com/shkelqim22/zgjedhjet/pkg/metrics"
)

// Store is the canonical record store the pipeline commits into.
type Store interface {
	// ReplaceAll deletes every existing record and inserts the new set in
	// one transaction. No partially replaced state is ever visible.
	ReplaceAll(ctx context.Context, records []election.Record) error
}

// CacheFlusher invalidates cached aggregation results after a successful
// replacement.
type CacheFlusher interface {
	Flush(ctx context.Context) error
}

// Notifier announces completed imports to operators. Failures never affect
// the import outcome.
type Notifier interface {
	ImportCompleted(ctx context.Context, records int, took time.Duration)
}

// ImportResult is the outcome reported to the caller.
type ImportResult struct {
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
	RecordsImported int      `json:"recordsImported"`
	Errors          []string `json:"errors"`
}

// Service runs the full pipeline: parse, validate, commit-or-reject.
type Service struct {
	store    Store
	cache    CacheFlusher
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates the ingestion service. cache, notifier, and m may be nil.
func New(store Store, cache CacheFlusher, notifier Notifier, m *metrics.Metrics) *Service {
	return &Service{
		store:    store,
		cache:    cache,
		notifier: notifier,
		metrics:  m,
		logger:   slog.Default().With("component", "ingest"),
	}
}

// Import parses the uploaded export and atomically replaces the canonical
// store. Any row-level error anywhere in the file rejects the entire
// submission; a clean parse that yields zero records is rejected as nothing
// to import. The returned ImportResult is always populated, also on
// rejection, so the caller can relay the full error list.
func (s *Service) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	start := time.Now()

	parsed, err := Parse(r)
	if err != nil {
		s.count("rejected")
		return &ImportResult{
			Success: false,
			Message: apperrors.Message(err),
			Errors:  []string{},
		}, err
	}

	if len(parsed.RowErrors) > 0 {
		s.count("rejected")
		if s.metrics != nil {
			s.metrics.RowErrorsTotal.Add(float64(len(parsed.RowErrors)))
		}
		s.logger.Warn("import rejected",
			"row_errors", len(parsed.RowErrors),
			"lines", parsed.Lines,
		)
		return &ImportResult{
				Success: false,
				Message: "Some rows failed to parse.",
				Errors:  parsed.RowErrors,
			}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest,
				"Some rows failed to parse.")
	}

	if len(parsed.Records) == 0 {
		s.count("rejected")
		return &ImportResult{
				Success: false,
				Message: "No records to import (no votes > 0 found).",
				Errors:  []string{},
			}, apperrors.New(apperrors.ErrNothingToImport, http.StatusBadRequest,
				"No records to import (no votes > 0 found).")
	}

	if err := s.store.ReplaceAll(ctx, parsed.Records); err != nil {
		s.count("error")
		s.logger.Error("replacing canonical store failed", "error", err)
		return &ImportResult{
			Success: false,
			Message: "An error occurred while importing CSV.",
			Errors:  []string{},
		}, fmt.Errorf("replacing canonical store: %w", err)
	}

	took := time.Since(start)
	s.count("success")
	if s.metrics != nil {
		s.metrics.RecordsImportedTotal.Add(float64(len(parsed.Records)))
	}
	s.logger.Info("import committed",
		"records", len(parsed.Records),
		"lines", parsed.Lines,
		"took", took,
	)

	// Cached aggregations describe the replaced dataset; drop them. Best
	// effort: a stale cache entry expires on its own TTL.
	if s.cache != nil {
		if err := s.cache.Flush(ctx); err != nil {
			s.logger.Warn("flushing aggregation cache failed", "error", err)
		}
	}
	if s.notifier != nil {
		s.notifier.ImportCompleted(ctx, len(parsed.Records), took)
	}

	return &ImportResult{
		Success:         true,
		Message:         fmt.Sprintf("Successfully imported %d records.", len(parsed.Records)),
		RecordsImported: len(parsed.Records),
		Errors:          []string{},
	}, nil
}

func (s *Service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.ImportsTotal.WithLabelValues(outcome).Inc()
	}
}
