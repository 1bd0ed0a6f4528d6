// Package backendtest holds the shared conformance suite for aggregation
// backends. Both the relational store and the search index must answer the
// same filter vocabulary with the same totals and the same not-found
// semantics; wiring the suite against each implementation is what keeps the
// two endpoints interchangeable.
package backendtest

import (
	"context"
	"errors"
	"testing"

	"github.com/shkelqim22/zgjedhjet/internal/election"
	apperrors "github.com/shkelqim22/zgjedhjet/pkg/errors"
)

// Seed returns a backend loaded with exactly the given records. It is called
// once per suite run; implementations decide how to provision (transactional
// insert, bulk index plus refresh, ...).
type Seed func(t *testing.T, records []election.Record) election.Backend

// Dataset is the fixture every conformance run is seeded with.
func Dataset() []election.Record {
	return []election.Record{
		{ID: 1, Category: election.CategoryLokale, Municipality: election.MunicipalityTirana,
			PollingCenter: "QV 101", PollingPlace: "VV 101/1", Party: election.PartyPS, Votes: 120},
		{ID: 2, Category: election.CategoryLokale, Municipality: election.MunicipalityTirana,
			PollingCenter: "QV 101", PollingPlace: "VV 101/2", Party: election.PartyPS, Votes: 30},
		{ID: 3, Category: election.CategoryLokale, Municipality: election.MunicipalityTirana,
			PollingCenter: "QV 101", PollingPlace: "VV 101/1", Party: election.PartyPD, Votes: 85},
		{ID: 4, Category: election.CategoryLokale, Municipality: election.MunicipalityDurres,
			PollingCenter: "QV 201", PollingPlace: "VV 201/1", Party: election.PartyPD, Votes: 60},
		{ID: 5, Category: election.CategoryNacionale, Municipality: election.MunicipalityTirana,
			PollingCenter: "QV 101", PollingPlace: "VV 101/1", Party: election.PartyLSI, Votes: 44},
		{ID: 6, Category: election.CategoryNacionale, Municipality: election.MunicipalityVlora,
			PollingCenter: "QV 301", PollingPlace: "VV 301/1", Party: election.PartyPS, Votes: 15},
	}
}

// Run seeds the backend with Dataset and checks the aggregation contract.
func Run(t *testing.T, seed Seed) {
	backend := seed(t, Dataset())
	ctx := context.Background()

	t.Run("unfiltered totals", func(t *testing.T) {
		totals, err := backend.Totals(ctx, election.Filter{})
		if err != nil {
			t.Fatalf("Totals() error = %v", err)
		}
		assertTotals(t, totals, election.Totals{
			election.PartyPS:  165,
			election.PartyPD:  145,
			election.PartyLSI: 44,
		})
	})

	t.Run("category filter", func(t *testing.T) {
		totals, err := backend.Totals(ctx, election.Filter{Category: election.CategoryNacionale})
		if err != nil {
			t.Fatalf("Totals() error = %v", err)
		}
		assertTotals(t, totals, election.Totals{
			election.PartyLSI: 44,
			election.PartyPS:  15,
		})
	})

	t.Run("combined filters", func(t *testing.T) {
		totals, err := backend.Totals(ctx, election.Filter{
			Category:      election.CategoryLokale,
			Municipality:  election.MunicipalityTirana,
			PollingCenter: "QV 101",
			PollingPlace:  "VV 101/1",
			Party:         election.PartyPD,
		})
		if err != nil {
			t.Fatalf("Totals() error = %v", err)
		}
		assertTotals(t, totals, election.Totals{election.PartyPD: 85})
	})

	t.Run("wildcard equals absent", func(t *testing.T) {
		explicit, err := backend.Totals(ctx, election.Filter{
			Category:     election.CategoryAll,
			Municipality: election.MunicipalityAll,
			Party:        election.PartyAll,
		})
		if err != nil {
			t.Fatalf("Totals() error = %v", err)
		}
		implicit, err := backend.Totals(ctx, election.Filter{})
		if err != nil {
			t.Fatalf("Totals() error = %v", err)
		}
		assertTotals(t, explicit, implicit)
	})

	t.Run("unknown polling center", func(t *testing.T) {
		_, err := backend.Totals(ctx, election.Filter{PollingCenter: "QV 999"})
		if !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("unknown polling place", func(t *testing.T) {
		_, err := backend.Totals(ctx, election.Filter{PollingPlace: "VV 999"})
		if !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("existing values matching nothing is empty success", func(t *testing.T) {
		totals, err := backend.Totals(ctx, election.Filter{
			PollingCenter: "QV 201",
			Party:         election.PartyFRD,
		})
		if err != nil {
			t.Fatalf("Totals() error = %v", err)
		}
		if len(totals) != 0 {
			t.Errorf("totals = %v, want empty", totals)
		}
	})
}

func assertTotals(t *testing.T, got, want election.Totals) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("totals = %v, want %v", got, want)
	}
	for party, votes := range want {
		if got[party] != votes {
			t.Errorf("totals[%s] = %d, want %d", party, got[party], votes)
		}
	}
}
