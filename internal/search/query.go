package search

import "github.com/shkelqim22/zgjedhjet/internal/election"

// partiesBucketSize bounds the terms aggregation; comfortably above the
// party enumeration.
const partiesBucketSize = 1000

// buildTotalsQuery translates a Filter into the search request answering the
// aggregation contract: no hits returned, one terms bucket per party with a
// summed votes sub-aggregation. The filter semantics mirror the relational
// WHERE clause exactly: term queries on stored names, exact-match keyword
// sub-fields for the analyzed fields.
func buildTotalsQuery(f election.Filter) map[string]any {
	var must []any
	term := func(field string, value string) {
		must = append(must, map[string]any{
			"term": map[string]any{field: value},
		})
	}
	if f.Category != election.CategoryAll {
		term("category", f.Category.String())
	}
	if f.Municipality != election.MunicipalityAll {
		term("municipality.keyword", f.Municipality.String())
	}
	if f.PollingCenter != "" {
		term("polling_center.keyword", f.PollingCenter)
	}
	if f.PollingPlace != "" {
		term("polling_place.keyword", f.PollingPlace)
	}
	if f.Party != election.PartyAll {
		term("party", f.Party.String())
	}

	var query map[string]any
	if len(must) > 0 {
		query = map[string]any{"bool": map[string]any{"must": must}}
	} else {
		query = map[string]any{"match_all": map[string]any{}}
	}

	return map[string]any{
		"size":  0,
		"query": query,
		"aggs": map[string]any{
			"by_party": map[string]any{
				"terms": map[string]any{
					"field": "party",
					"size":  partiesBucketSize,
				},
				"aggs": map[string]any{
					"total_votes": map[string]any{
						"sum": map[string]any{"field": "votes"},
					},
				},
			},
		},
	}
}

// buildExistsQuery probes whether any document carries the exact value in
// the given keyword field.
func buildExistsQuery(field, value string) map[string]any {
	return map[string]any{
		"size":             0,
		"track_total_hits": true,
		"query": map[string]any{
			"term": map[string]any{field + ".keyword": value},
		},
	}
}

// buildSuggestQuery matches municipalities by phrase prefix or by fuzzy
// match (edit distance scaled to term length via AUTO), deduplicating
// through a terms aggregation on the exact sub-field.
func buildSuggestQuery(q string, maxSuggestions int) map[string]any {
	return map[string]any{
		"size": 0,
		"query": map[string]any{
			"bool": map[string]any{
				"should": []any{
					map[string]any{
						"match_phrase_prefix": map[string]any{
							"municipality": map[string]any{"query": q},
						},
					},
					map[string]any{
						"match": map[string]any{
							"municipality": map[string]any{
								"query":     q,
								"fuzziness": "AUTO",
							},
						},
					},
				},
				"minimum_should_match": 1,
			},
		},
		"aggs": map[string]any{
			"unique_municipalities": map[string]any{
				"terms": map[string]any{
					"field": "municipality.keyword",
					"size":  maxSuggestions,
				},
			},
		},
	}
}
