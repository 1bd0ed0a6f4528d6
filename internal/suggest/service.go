package suggest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shkelqim22/zgjedhjet/pkg/metrics"
)

// ledgerTimeout bounds the detached ledger update; it no longer rides the
// request context.
const ledgerTimeout = 5 * time.Second

// Searcher resolves a non-empty query fragment to distinct municipalities.
type Searcher interface {
	Suggest(ctx context.Context, q string) ([]string, error)
}

// Service answers autocomplete queries and feeds the popularity ledger as a
// fire-and-forget side effect: a ledger failure never fails the suggestion
// response.
type Service struct {
	searcher        Searcher
	ledger          Ledger
	defaultStatsTop int
	metrics         *metrics.Metrics
	logger          *slog.Logger
}

// New creates the suggestion service. m may be nil.
func New(searcher Searcher, ledger Ledger, defaultStatsTop int, m *metrics.Metrics) *Service {
	if defaultStatsTop <= 0 {
		defaultStatsTop = 10
	}
	return &Service{
		searcher:        searcher,
		ledger:          ledger,
		defaultStatsTop: defaultStatsTop,
		metrics:         m,
		logger:          slog.Default().With("component", "suggest"),
	}
}

// Suggest returns the municipalities matching the query fragment. A blank
// query returns an empty list with no ledger effect. A non-empty result
// asynchronously increments each suggested municipality's ledger score by 1.
func (s *Service) Suggest(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}, nil
	}

	suggestions, err := s.searcher.Suggest(ctx, query)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SuggestionsTotal.Inc()
	}

	if len(suggestions) > 0 && s.ledger != nil {
		// Detached from the request: the response is decided, and the
		// ledger write must not delay or fail it.
		go s.recordStats(context.WithoutCancel(ctx), suggestions)
	}
	return suggestions, nil
}

func (s *Service) recordStats(ctx context.Context, municipalities []string) {
	ctx, cancel := context.WithTimeout(ctx, ledgerTimeout)
	defer cancel()
	if err := s.ledger.Record(ctx, municipalities); err != nil {
		if s.metrics != nil {
			s.metrics.LedgerIncrementFailed.Inc()
		}
		s.logger.Warn("failed to record suggestion stats", "error", err, "count", len(municipalities))
	}
}

// Stats returns the top municipalities by suggestion count, descending.
// Non-positive top falls back to the configured default.
func (s *Service) Stats(ctx context.Context, top int) ([]Stat, error) {
	if top <= 0 {
		top = s.defaultStatsTop
	}
	return s.ledger.Top(ctx, top)
}
