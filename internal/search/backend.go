package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/shkelqim22/zgjedhjet/internal/election"
	"github.com/shkelqim22/zgjedhjet/pkg/elastic"
)

// Backend answers aggregation queries from the search index. It implements
// election.Backend with the same filter and not-found semantics as the
// relational store.
type Backend struct {
	es     *elastic.Client
	logger *slog.Logger
}

// NewBackend creates the search-backed aggregation backend.
func NewBackend(es *elastic.Client) *Backend {
	return &Backend{
		es:     es,
		logger: slog.Default().With("component", "search-backend"),
	}
}

// Name implements election.Backend.
func (b *Backend) Name() string { return "elasticsearch" }

// Totals implements election.Backend. Free-text filter values are probed for
// existence first (concurrently when both fields are set), then the filtered
// set is grouped by party with a summed-votes sub-aggregation.
func (b *Backend) Totals(ctx context.Context, f election.Filter) (election.Totals, error) {
	g, gctx := errgroup.WithContext(ctx)
	if f.PollingCenter != "" {
		g.Go(func() error {
			exists, err := b.valueExists(gctx, "polling_center", f.PollingCenter)
			if err != nil {
				return err
			}
			if !exists {
				return election.NotFoundPollingCenter(f.PollingCenter)
			}
			return nil
		})
	}
	if f.PollingPlace != "" {
		g.Go(func() error {
			exists, err := b.valueExists(gctx, "polling_place", f.PollingPlace)
			if err != nil {
				return err
			}
			if !exists {
				return election.NotFoundPollingPlace(f.PollingPlace)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	body, err := encode(buildTotalsQuery(f))
	if err != nil {
		return nil, err
	}

	var resp struct {
		Aggregations struct {
			ByParty struct {
				Buckets []struct {
					Key        string `json:"key"`
					TotalVotes struct {
						Value float64 `json:"value"`
					} `json:"total_votes"`
				} `json:"buckets"`
			} `json:"by_party"`
		} `json:"aggregations"`
	}
	if err := b.es.Search(ctx, body, &resp); err != nil {
		return nil, err
	}

	totals := make(election.Totals, len(resp.Aggregations.ByParty.Buckets))
	for _, bucket := range resp.Aggregations.ByParty.Buckets {
		party, err := election.ParseParty(bucket.Key)
		if err != nil {
			b.logger.Warn("skipping unknown party term in index", "term", bucket.Key)
			continue
		}
		totals[party] = int(bucket.TotalVotes.Value)
	}
	return totals, nil
}

func (b *Backend) valueExists(ctx context.Context, field, value string) (bool, error) {
	body, err := encode(buildExistsQuery(field, value))
	if err != nil {
		return false, err
	}
	var resp struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
		} `json:"hits"`
	}
	if err := b.es.Search(ctx, body, &resp); err != nil {
		return false, err
	}
	return resp.Hits.Total.Value > 0, nil
}

func encode(query map[string]any) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("encoding search query: %w", err)
	}
	return &buf, nil
}
