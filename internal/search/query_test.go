package search

import (
	"testing"

	"github.com/shkelqim22/zgjedhjet/internal/election"
)

func TestBuildTotalsQueryEmptyFilter(t *testing.T) {
	q := buildTotalsQuery(election.Filter{})

	if q["size"] != 0 {
		t.Errorf("size = %v, want 0", q["size"])
	}
	query := q["query"].(map[string]any)
	if _, ok := query["match_all"]; !ok {
		t.Errorf("empty filter must produce match_all, got %v", query)
	}
	aggs := q["aggs"].(map[string]any)
	byParty := aggs["by_party"].(map[string]any)
	terms := byParty["terms"].(map[string]any)
	if terms["field"] != "party" {
		t.Errorf("terms field = %v, want party", terms["field"])
	}
	sub := byParty["aggs"].(map[string]any)["total_votes"].(map[string]any)
	if sub["sum"].(map[string]any)["field"] != "votes" {
		t.Errorf("sum sub-aggregation = %v", sub)
	}
}

func TestBuildTotalsQueryFullFilter(t *testing.T) {
	q := buildTotalsQuery(election.Filter{
		Category:      election.CategoryLokale,
		Municipality:  election.MunicipalityTirana,
		PollingCenter: "QV1",
		PollingPlace:  "VV1",
		Party:         election.PartyPS,
	})

	must := q["query"].(map[string]any)["bool"].(map[string]any)["must"].([]any)
	if len(must) != 5 {
		t.Fatalf("got %d term clauses, want 5", len(must))
	}
	want := map[string]string{
		"category":               "Lokale",
		"municipality.keyword":   "Tirana",
		"polling_center.keyword": "QV1",
		"polling_place.keyword":  "VV1",
		"party":                  "PS",
	}
	got := map[string]string{}
	for _, clause := range must {
		term := clause.(map[string]any)["term"].(map[string]any)
		for field, value := range term {
			got[field] = value.(string)
		}
	}
	for field, value := range want {
		if got[field] != value {
			t.Errorf("term %s = %q, want %q", field, got[field], value)
		}
	}
}

func TestBuildTotalsQueryPartialFilter(t *testing.T) {
	q := buildTotalsQuery(election.Filter{Party: election.PartyPD})
	must := q["query"].(map[string]any)["bool"].(map[string]any)["must"].([]any)
	if len(must) != 1 {
		t.Fatalf("got %d term clauses, want 1", len(must))
	}
}

func TestBuildExistsQuery(t *testing.T) {
	q := buildExistsQuery("polling_center", "QV 101")
	if q["track_total_hits"] != true {
		t.Error("existence probe must track total hits")
	}
	term := q["query"].(map[string]any)["term"].(map[string]any)
	if term["polling_center.keyword"] != "QV 101" {
		t.Errorf("term = %v", term)
	}
}

func TestBuildSuggestQuery(t *testing.T) {
	q := buildSuggestQuery("tir", 10)

	boolQ := q["query"].(map[string]any)["bool"].(map[string]any)
	should := boolQ["should"].([]any)
	if len(should) != 2 {
		t.Fatalf("got %d should clauses, want 2 (prefix + fuzzy)", len(should))
	}
	if boolQ["minimum_should_match"] != 1 {
		t.Errorf("minimum_should_match = %v, want 1", boolQ["minimum_should_match"])
	}
	prefix := should[0].(map[string]any)["match_phrase_prefix"].(map[string]any)["municipality"].(map[string]any)
	if prefix["query"] != "tir" {
		t.Errorf("prefix query = %v", prefix)
	}
	fuzzy := should[1].(map[string]any)["match"].(map[string]any)["municipality"].(map[string]any)
	if fuzzy["fuzziness"] != "AUTO" {
		t.Errorf("fuzziness = %v, want AUTO", fuzzy["fuzziness"])
	}
	agg := q["aggs"].(map[string]any)["unique_municipalities"].(map[string]any)["terms"].(map[string]any)
	if agg["field"] != "municipality.keyword" || agg["size"] != 10 {
		t.Errorf("dedup aggregation = %v", agg)
	}
}
