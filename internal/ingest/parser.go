// Package ingest implements the CSV ingestion pipeline: heuristic header
// discovery, per-row parsing and validation with row-level error collection,
// and the all-or-nothing replacement of the canonical store.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shkelqim22/zgjedhjet/internal/election"
	apperrors "github.com/shkelqim22/zgjedhjet/pkg/errors"
)

// Column headers are matched case-insensitively. Kategoria and Komuna must
// match exactly; the polling-center and polling-place columns are found by
// prefix because exports disagree on suffixes (QendraVotimit, Qendra_e_Votimit,
// Vendvotimi, VendVotimi, ...). Every other column starting with Partia is a
// party vote column.
const (
	headerCategory            = "kategoria"
	headerMunicipality        = "komuna"
	headerPollingCenterPrefix = "qendra"
	headerPollingPlace        = "vendvotimi"
	headerPollingPlacePrefix  = "vend"
	headerPartyPrefix         = "partia"
)

// maxLineBytes bounds a single CSV line; exports carry a few hundred bytes
// per row.
const maxLineBytes = 1 << 20

// partyColumn is one discovered vote column. Resolution of the header to a
// Party member is done once per column; rows still report an error per
// nonzero cell under an unresolvable header, matching per-row error output.
type partyColumn struct {
	index  int
	header string
	party  election.Party
	ok     bool
}

// ParseResult holds everything a parse produced: the records from clean rows
// and the errors from bad ones. The caller decides whether any RowErrors
// reject the whole batch.
type ParseResult struct {
	Records   []election.Record
	RowErrors []string
	Lines     int
}

// Parse reads a comma-delimited export (header line plus data lines, optional
// leading BOM, optional quoted fields) and returns the parsed records along
// with all row-level errors. Header-level problems (empty header, missing
// required columns, no party columns) abort immediately with an
// input-validation error.
func Parse(r io.Reader) (*ParseResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading header line: %w", err)
		}
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "The CSV header is empty.")
	}
	headerLine := strings.TrimSpace(scanner.Text())
	headerLine = strings.TrimPrefix(headerLine, "\uFEFF")
	if headerLine == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "The CSV header is empty.")
	}

	headers := splitFields(headerLine)

	idxCategory := findHeader(headers, func(h string) bool { return h == headerCategory })
	idxMunicipality := findHeader(headers, func(h string) bool { return h == headerMunicipality })
	idxCenter := findHeader(headers, func(h string) bool { return strings.HasPrefix(h, headerPollingCenterPrefix) })
	idxPlace := findHeader(headers, func(h string) bool {
		return h == headerPollingPlace || strings.HasPrefix(h, headerPollingPlacePrefix)
	})

	if idxCategory < 0 || idxMunicipality < 0 || idxCenter < 0 || idxPlace < 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"Required columns not found. Found headers: [%s]", strings.Join(headers, ", "))
	}

	var partyColumns []partyColumn
	for i, h := range headers {
		if i == idxCategory || i == idxMunicipality || i == idxCenter || i == idxPlace {
			continue
		}
		if h == "" || !strings.HasPrefix(strings.ToLower(h), headerPartyPrefix) {
			continue
		}
		party, ok := election.ResolvePartyColumn(h)
		partyColumns = append(partyColumns, partyColumn{index: i, header: h, party: party, ok: ok})
	}
	if len(partyColumns) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"No party columns detected (headers starting with 'Partia').")
	}

	result := &ParseResult{}
	lineNumber := 1 // header is line 1
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		result.Lines++

		parts := splitFields(line)
		if len(parts) < len(headers) {
			result.RowErrors = append(result.RowErrors,
				fmt.Sprintf("Line %d: column count %d less than header count %d.", lineNumber, len(parts), len(headers)))
			continue
		}

		category, err := election.ParseCategory(parts[idxCategory])
		if err != nil || !category.Storable() {
			result.RowErrors = append(result.RowErrors,
				fmt.Sprintf("Line %d: invalid Kategoria '%s'.", lineNumber, parts[idxCategory]))
			continue
		}
		municipality, err := election.ParseMunicipality(parts[idxMunicipality])
		if err != nil || !municipality.Storable() {
			result.RowErrors = append(result.RowErrors,
				fmt.Sprintf("Line %d: invalid Komuna '%s'.", lineNumber, parts[idxMunicipality]))
			continue
		}

		center := parts[idxCenter]
		place := parts[idxPlace]
		if center == "" {
			result.RowErrors = append(result.RowErrors,
				fmt.Sprintf("Line %d: empty Qendra e Votimit.", lineNumber))
			continue
		}
		if place == "" {
			result.RowErrors = append(result.RowErrors,
				fmt.Sprintf("Line %d: empty Vendvotimi.", lineNumber))
			continue
		}

		for _, col := range partyColumns {
			raw := parts[col.index]
			if raw == "" {
				continue
			}
			votes, err := strconv.Atoi(raw)
			if err != nil || votes <= 0 {
				// Blank, unparseable, and zero cells mean "no votes
				// recorded", not an error.
				continue
			}
			if !col.ok {
				result.RowErrors = append(result.RowErrors,
					fmt.Sprintf("Line %d: unknown party header '%s'.", lineNumber, col.header))
				continue
			}
			result.Records = append(result.Records, election.Record{
				Category:      category,
				Municipality:  municipality,
				PollingCenter: center,
				PollingPlace:  place,
				Party:         col.party,
				Votes:         votes,
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading CSV at line %d: %w", lineNumber, err)
	}

	return result, nil
}

// splitFields splits a line on commas and trims whitespace and surrounding
// quotes from every field. Fields with embedded commas are not produced by
// the upstream export, so no quote-aware state machine is needed.
func splitFields(line string) []string {
	parts := strings.Split(line, ",")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `"`)
	}
	return parts
}

func findHeader(headers []string, match func(string) bool) int {
	for i, h := range headers {
		if match(strings.ToLower(h)) {
			return i
		}
	}
	return -1
}
