package search

import (
	"context"

	"github.com/shkelqim22/zgjedhjet/pkg/elastic"
)

// Suggester resolves free-text municipality fragments against the index.
type Suggester struct {
	es             *elastic.Client
	maxSuggestions int
}

// NewSuggester creates a Suggester returning at most maxSuggestions distinct
// municipalities.
func NewSuggester(es *elastic.Client, maxSuggestions int) *Suggester {
	if maxSuggestions <= 0 {
		maxSuggestions = 100
	}
	return &Suggester{es: es, maxSuggestions: maxSuggestions}
}

// Suggest returns the distinct municipality values matching the query by
// phrase prefix or fuzzy match. The caller handles blank queries; here q is
// assumed non-empty.
func (s *Suggester) Suggest(ctx context.Context, q string) ([]string, error) {
	body, err := encode(buildSuggestQuery(q, s.maxSuggestions))
	if err != nil {
		return nil, err
	}

	var resp struct {
		Aggregations struct {
			UniqueMunicipalities struct {
				Buckets []struct {
					Key string `json:"key"`
				} `json:"buckets"`
			} `json:"unique_municipalities"`
		} `json:"aggregations"`
	}
	if err := s.es.Search(ctx, body, &resp); err != nil {
		return nil, err
	}

	suggestions := make([]string, 0, len(resp.Aggregations.UniqueMunicipalities.Buckets))
	for _, b := range resp.Aggregations.UniqueMunicipalities.Buckets {
		suggestions = append(suggestions, b.Key)
	}
	return suggestions, nil
}
