package api

import (
	"net/http"
	"time"

	"github.com/shkelqim22/zgjedhjet/pkg/health"
	"github.com/shkelqim22/zgjedhjet/pkg/metrics"
	"github.com/shkelqim22/zgjedhjet/pkg/middleware"
)

// NewRouter builds the full HTTP handler with all routes and middleware.
//
// Route table:
//
//	POST /api/v1/elections/import           → CSV ingestion (multipart "file")
//	GET  /api/v1/elections                  → aggregated totals (relational)
//	GET  /api/v1/search/elections           → aggregated totals (search index)
//	POST /api/v1/search/sync                → rebuild the search index
//	GET  /api/v1/search/suggest             → municipality autocomplete
//	GET  /api/v1/search/suggest/stats       → suggestion leaderboard
//	GET  /health/live, /health/ready        → probes
//
// Middleware chain (outermost first): RequestID → Metrics → Timeout → mux.
func NewRouter(h *Handler, checker *health.Checker, m *metrics.Metrics, requestTimeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/elections/import", h.Import)
	mux.HandleFunc("GET /api/v1/elections", h.Aggregated)
	mux.HandleFunc("GET /api/v1/search/elections", h.AggregatedSearch)
	mux.HandleFunc("POST /api/v1/search/sync", h.Sync)
	mux.HandleFunc("GET /api/v1/search/suggest", h.Suggest)
	mux.HandleFunc("GET /api/v1/search/suggest/stats", h.SuggestStats)

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if requestTimeout > 0 {
		chain = middleware.Timeout(requestTimeout)(chain)
	}
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)
	return chain
}
