// Package api exposes the HTTP surface: CSV import, aggregated queries
// against either backend, index sync, and municipality suggestions.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/shkelqim22/zgjedhjet/internal/election"
	"github.com/shkelqim22/zgjedhjet/internal/ingest"
	"github.com/shkelqim22/zgjedhjet/internal/search"
	"github.com/shkelqim22/zgjedhjet/internal/suggest"
	apperrors "github.com/shkelqim22/zgjedhjet/pkg/errors"
	"github.com/shkelqim22/zgjedhjet/pkg/logger"
	"github.com/shkelqim22/zgjedhjet/pkg/metrics"
)

// Importer runs the ingestion pipeline.
type Importer interface {
	Import(ctx context.Context, r io.Reader) (*ingest.ImportResult, error)
}

// Syncer runs the one-shot index sync job.
type Syncer interface {
	Run(ctx context.Context) (*search.SyncResult, error)
}

// SuggestService answers autocomplete queries and leaderboard reads.
type SuggestService interface {
	Suggest(ctx context.Context, query string) ([]string, error)
	Stats(ctx context.Context, top int) ([]suggest.Stat, error)
}

// PartyVotes is one aggregation result entry.
type PartyVotes struct {
	Party      string `json:"party"`
	TotalVotes int    `json:"totalVotes"`
}

// AggregatedResponse is the body of both aggregation endpoints.
type AggregatedResponse struct {
	Results []PartyVotes `json:"results"`
}

// Handler holds the service dependencies for all routes.
type Handler struct {
	importer       Importer
	dbBackend      election.Backend
	searchBackend  election.Backend
	syncer         Syncer
	suggestions    SuggestService
	maxUploadBytes int64
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

// New creates the API handler. m may be nil.
func New(importer Importer, dbBackend, searchBackend election.Backend, syncer Syncer, suggestions SuggestService, maxUploadBytes int64, m *metrics.Metrics) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	return &Handler{
		importer:       importer,
		dbBackend:      dbBackend,
		searchBackend:  searchBackend,
		syncer:         syncer,
		suggestions:    suggestions,
		maxUploadBytes: maxUploadBytes,
		metrics:        m,
		logger:         slog.Default().With("component", "api"),
	}
}

// Import accepts a multipart CSV upload under the "file" field and runs the
// all-or-nothing ingestion.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, &ingest.ImportResult{
			Success: false,
			Message: "No file has been uploaded.",
			Errors:  []string{},
		})
		return
	}
	defer file.Close()
	if header.Size == 0 {
		h.writeJSON(w, http.StatusBadRequest, &ingest.ImportResult{
			Success: false,
			Message: "No file has been uploaded.",
			Errors:  []string{},
		})
		return
	}

	result, err := h.importer.Import(ctx, file)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			log.Error("import failed", "error", err, "file", header.Filename)
		} else {
			log.Warn("import rejected", "error", err, "file", header.Filename)
		}
		if result == nil {
			result = &ingest.ImportResult{Success: false, Message: apperrors.Message(err), Errors: []string{}}
		}
		h.writeJSON(w, status, result)
		return
	}

	log.Info("import succeeded", "records", result.RecordsImported, "file", header.Filename)
	h.writeJSON(w, http.StatusOK, result)
}

// Aggregated answers the filter query from the relational store.
func (h *Handler) Aggregated(w http.ResponseWriter, r *http.Request) {
	h.aggregated(w, r, h.dbBackend)
}

// AggregatedSearch answers the same filter vocabulary from the search index.
func (h *Handler) AggregatedSearch(w http.ResponseWriter, r *http.Request) {
	h.aggregated(w, r, h.searchBackend)
}

func (h *Handler) aggregated(w http.ResponseWriter, r *http.Request, backend election.Backend) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	start := time.Now()

	filter, err := parseFilter(r)
	if err != nil {
		h.countQuery(backend, "bad_request")
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	totals, err := backend.Totals(ctx, filter)
	if h.metrics != nil {
		h.metrics.QueryLatency.WithLabelValues(backend.Name()).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.countQuery(backend, "not_found")
			h.writeJSON(w, http.StatusNotFound, map[string]string{"message": apperrors.Message(err)})
			return
		}
		h.countQuery(backend, "error")
		log.Error("aggregation query failed", "backend", backend.Name(), "error", err)
		// Degrade to an empty result list rather than leaking backend detail.
		h.writeJSON(w, http.StatusInternalServerError, &AggregatedResponse{Results: []PartyVotes{}})
		return
	}

	h.countQuery(backend, "success")
	h.writeJSON(w, http.StatusOK, toResponse(totals))
}

// Sync triggers the one-shot rebuild of the search index.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	result, err := h.syncer.Run(ctx)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Error("index sync failed", "error", err, "status_code", status)
		body := map[string]any{"message": apperrors.Message(err)}
		if result != nil {
			body["recordsMigrated"] = result.RecordsMigrated
		}
		h.writeJSON(w, status, body)
		return
	}

	log.Info("index sync completed", "records", result.RecordsMigrated)
	h.writeJSON(w, http.StatusOK, result)
}

// Suggest answers municipality autocomplete.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	suggestions, err := h.suggestions.Suggest(ctx, r.URL.Query().Get("query"))
	if err != nil {
		log.Error("suggestion query failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, []string{})
		return
	}
	h.writeJSON(w, http.StatusOK, suggestions)
}

// SuggestStats returns the suggestion leaderboard.
func (h *Handler) SuggestStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	top := 0
	if v := r.URL.Query().Get("top"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "top must be an integer")
			return
		}
		top = parsed
	}

	stats, err := h.suggestions.Stats(ctx, top)
	if err != nil {
		log.Error("suggestion stats failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, []suggest.Stat{})
		return
	}
	if stats == nil {
		stats = []suggest.Stat{}
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// parseFilter reads the optional filter query parameters. Enum names are
// matched case-insensitively; the TeGjitha wildcard and absent parameters
// constrain nothing.
func parseFilter(r *http.Request) (election.Filter, error) {
	var f election.Filter
	q := r.URL.Query()

	if v := q.Get("category"); v != "" {
		category, err := election.ParseCategory(v)
		if err != nil {
			return f, err
		}
		f.Category = category
	}
	if v := q.Get("municipality"); v != "" {
		municipality, err := election.ParseMunicipality(v)
		if err != nil {
			return f, err
		}
		f.Municipality = municipality
	}
	if v := q.Get("party"); v != "" {
		party, err := election.ParseParty(v)
		if err != nil {
			return f, err
		}
		f.Party = party
	}
	f.PollingCenter = q.Get("pollingCenter")
	f.PollingPlace = q.Get("pollingPlace")
	return f, nil
}

// toResponse renders totals sorted by party name so responses are stable.
func toResponse(totals election.Totals) *AggregatedResponse {
	results := make([]PartyVotes, 0, len(totals))
	for party, votes := range totals {
		results = append(results, PartyVotes{Party: party.String(), TotalVotes: votes})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Party < results[j].Party })
	return &AggregatedResponse{Results: results}
}

func (h *Handler) countQuery(backend election.Backend, outcome string) {
	if h.metrics != nil {
		h.metrics.QueriesTotal.WithLabelValues(backend.Name(), outcome).Inc()
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
