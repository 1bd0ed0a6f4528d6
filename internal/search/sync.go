package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shkelqim22/zgjedhjet/internal/election"
	"github.com/shkelqim22/zgjedhjet/pkg/config"
	"github.com/shkelqim22/zgjedhjet/pkg/elastic"
	apperrors "github.com/shkelqim22/zgjedhjet/pkg/errors"
	"github.com/shkelqim22/zgjedhjet/pkg/metrics"
	"github.com/shkelqim22/zgjedhjet/pkg/resilience"
)

// Source provides the records to copy into the index.
type Source interface {
	All(ctx context.Context) ([]election.Record, error)
}

// CacheFlusher invalidates cached aggregation results after a rebuild.
type CacheFlusher interface {
	Flush(ctx context.Context) error
}

// Notifier announces completed syncs to operators.
type Notifier interface {
	SyncCompleted(ctx context.Context, records int)
}

// SyncResult reports the outcome of one sync run.
type SyncResult struct {
	Message         string `json:"message"`
	RecordsMigrated int    `json:"recordsMigrated"`
}

// Syncer is the one-shot bulk copy job from the canonical store into the
// search index. Each run drops the index, recreates it with the explicit
// schema, and bulk-indexes every record.
type Syncer struct {
	es       *elastic.Client
	source   Source
	cache    CacheFlusher
	notifier Notifier
	cfg      config.SyncConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewSyncer creates the sync job. cache, notifier, and m may be nil.
func NewSyncer(es *elastic.Client, source Source, cache CacheFlusher, notifier Notifier, cfg config.SyncConfig, m *metrics.Metrics) *Syncer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	return &Syncer{
		es:       es,
		source:   source,
		cache:    cache,
		notifier: notifier,
		cfg:      cfg,
		metrics:  m,
		logger:   slog.Default().With("component", "index-sync"),
	}
}

// Run executes the sync. An empty canonical store fails the whole job before
// any document is written. Item-level bulk failures do not roll back
// documents already indexed; they are surfaced with the first error detail.
func (s *Syncer) Run(ctx context.Context) (*SyncResult, error) {
	start := time.Now()

	records, err := s.source.All(ctx)
	if err != nil {
		s.count("error")
		return nil, fmt.Errorf("reading canonical store: %w", err)
	}
	if len(records) == 0 {
		s.count("rejected")
		return nil, apperrors.New(apperrors.ErrStoreEmpty, http.StatusBadRequest,
			"No records found in SQL database to migrate.")
	}

	if err := s.recreateIndex(ctx); err != nil {
		s.count("error")
		return nil, err
	}

	indexed := 0
	failed := 0
	firstError := ""
	for batchStart := 0; batchStart < len(records); batchStart += s.cfg.BatchSize {
		batchEnd := batchStart + s.cfg.BatchSize
		if batchEnd > len(records) {
			batchEnd = len(records)
		}
		batch := records[batchStart:batchEnd]

		var result *elastic.BulkResult
		err := resilience.Retry(ctx, "bulk-index", resilience.RetryConfig{MaxAttempts: s.cfg.MaxAttempts}, func() error {
			body, err := bulkBody(batch)
			if err != nil {
				return err
			}
			result, err = s.es.Bulk(ctx, body)
			return err
		})
		if err != nil {
			s.count("error")
			return nil, fmt.Errorf("bulk indexing batch at %d: %w", batchStart, err)
		}
		indexed += result.Indexed
		failed += result.Failed
		if firstError == "" {
			firstError = result.FirstError
		}
	}

	if err := s.es.Refresh(ctx); err != nil {
		s.logger.Warn("refreshing index after sync failed", "error", err)
	}

	if s.metrics != nil {
		s.metrics.DocsSyncedTotal.Add(float64(indexed))
		s.metrics.SyncBulkFailures.Add(float64(failed))
	}

	if failed > 0 {
		s.count("partial")
		s.logger.Error("bulk indexing had errors",
			"indexed", indexed,
			"failed", failed,
			"first_error", firstError,
		)
		return &SyncResult{
				Message:         "Bulk indexing had errors.",
				RecordsMigrated: indexed,
			}, apperrors.Newf(apperrors.ErrInternal, http.StatusInternalServerError,
				"Bulk indexing had errors: %s", firstError)
	}

	s.count("success")
	s.logger.Info("index sync completed",
		"records", indexed,
		"took", time.Since(start),
	)

	if s.cache != nil {
		if err := s.cache.Flush(ctx); err != nil {
			s.logger.Warn("flushing aggregation cache failed", "error", err)
		}
	}
	if s.notifier != nil {
		s.notifier.SyncCompleted(ctx, indexed)
	}

	return &SyncResult{
		Message:         fmt.Sprintf("Successfully migrated %d records to Elasticsearch.", indexed),
		RecordsMigrated: indexed,
	}, nil
}

func (s *Syncer) recreateIndex(ctx context.Context) error {
	exists, err := s.es.IndexExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		if err := s.es.DeleteIndex(ctx); err != nil {
			return err
		}
	}
	return s.es.CreateIndex(ctx, strings.NewReader(indexMapping))
}

// bulkBody renders one NDJSON _bulk payload, addressing each document by the
// record's store ID so a re-run overwrites rather than duplicates.
func bulkBody(records []election.Record) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	for _, r := range records {
		action := fmt.Sprintf(`{"index":{"_id":"%d"}}`, r.ID)
		buf.WriteString(action)
		buf.WriteByte('\n')
		doc, err := json.Marshal(newDocument(r))
		if err != nil {
			return nil, fmt.Errorf("marshaling document %d: %w", r.ID, err)
		}
		buf.Write(doc)
		buf.WriteByte('\n')
	}
	return &buf, nil
}

func (s *Syncer) count(outcome string) {
	if s.metrics != nil {
		s.metrics.SyncRunsTotal.WithLabelValues(outcome).Inc()
	}
}
