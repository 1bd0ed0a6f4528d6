package election

import (
	"context"
	"net/http"

	apperrors "github.com/shkelqim22/zgjedhjet/pkg/errors"
)

// Record is the canonical unit of election data: the votes one party
// received at one polling place in one contest. Votes is always positive;
// zero-vote entries are dropped during ingestion and never stored.
type Record struct {
	ID            int64
	Category      Category
	Municipality  Municipality
	PollingCenter string
	PollingPlace  string
	Party         Party
	Votes         int
}

// Filter narrows an aggregation query. Enum fields set to the TeGjitha
// wildcard and empty free-text fields are unconstrained.
type Filter struct {
	Category      Category
	Municipality  Municipality
	PollingCenter string
	PollingPlace  string
	Party         Party
}

// IsZero reports whether the filter constrains nothing.
func (f Filter) IsZero() bool {
	return f.Category == CategoryAll &&
		f.Municipality == MunicipalityAll &&
		f.PollingCenter == "" &&
		f.PollingPlace == "" &&
		f.Party == PartyAll
}

// Totals maps each party present in the filtered record set to its summed
// votes. Parties with no matching records are absent, never zero.
type Totals map[Party]int

// Backend answers aggregation queries. Both the relational store and the
// search index implement it with identical filter and not-found semantics.
type Backend interface {
	// Totals returns per-party vote sums for the records matching the
	// filter. A non-empty PollingCenter or PollingPlace value that matches
	// no record at all yields a not-found error (distinct from an empty
	// Totals, which is a successful result).
	Totals(ctx context.Context, f Filter) (Totals, error)

	// Name identifies the backend in logs and metrics.
	Name() string
}

// NotFoundPollingCenter builds the not-found error for a polling-center
// filter value absent from the dataset.
func NotFoundPollingCenter(value string) error {
	return apperrors.Newf(apperrors.ErrNotFound, http.StatusNotFound, "Qendra e Votimit '%s' not found", value)
}

// NotFoundPollingPlace builds the not-found error for a polling-place filter
// value absent from the dataset.
func NotFoundPollingPlace(value string) error {
	return apperrors.Newf(apperrors.ErrNotFound, http.StatusNotFound, "Vend Votimi '%s' not found", value)
}
