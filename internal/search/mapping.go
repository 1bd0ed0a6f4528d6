// Package search implements the Elasticsearch side of the platform: the
// index schema, the one-shot sync job from the canonical store, the
// search-backed aggregation backend, and municipality autocomplete.
package search

import "github.com/shkelqim22/zgjedhjet/internal/election"

// indexMapping is the full index definition. Enum fields are keyword
// (non-analyzed) so term filters match stored names exactly. The free-text
// fields are analyzed with an exact-match keyword sub-field; municipality
// additionally uses an analyzer that maps underscores to spaces, lower-cases,
// and strips diacritics so fuzzy autocomplete tolerates export spelling.
const indexMapping = `{
  "settings": {
    "analysis": {
      "char_filter": {
        "underscore_to_space": {
          "type": "mapping",
          "mappings": ["_ =>  "]
        }
      },
      "analyzer": {
        "komuna_analyzer": {
          "type": "custom",
          "char_filter": ["underscore_to_space"],
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id": {"type": "integer"},
      "category": {"type": "keyword"},
      "municipality": {
        "type": "text",
        "analyzer": "komuna_analyzer",
        "fields": {"keyword": {"type": "keyword"}}
      },
      "polling_center": {
        "type": "text",
        "fields": {"keyword": {"type": "keyword"}}
      },
      "polling_place": {
        "type": "text",
        "fields": {"keyword": {"type": "keyword"}}
      },
      "party": {"type": "keyword"},
      "votes": {"type": "integer"}
    }
  }
}`

// document is the indexed mirror of an election.Record, with string-coded
// enums.
type document struct {
	ID            int64  `json:"id"`
	Category      string `json:"category"`
	Municipality  string `json:"municipality"`
	PollingCenter string `json:"polling_center"`
	PollingPlace  string `json:"polling_place"`
	Party         string `json:"party"`
	Votes         int    `json:"votes"`
}

func newDocument(r election.Record) document {
	return document{
		ID:            r.ID,
		Category:      r.Category.String(),
		Municipality:  r.Municipality.String(),
		PollingCenter: r.PollingCenter,
		PollingPlace:  r.PollingPlace,
		Party:         r.Party.String(),
		Votes:         r.Votes,
	}
}
