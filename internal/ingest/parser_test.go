package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/shkelqim22/zgjedhjet/internal/election"
	apperrors "github.com/shkelqim22/zgjedhjet/pkg/errors"
)

func TestParseSingleRow(t *testing.T) {
	csv := "Kategoria,Komuna,QendraVotimit,Vendvotimi,PartiaPS,PartiaPD\n" +
		"Lokale,Tirana,QV 101,VV 101/1,0,57\n"

	result, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(result.RowErrors) != 0 {
		t.Fatalf("RowErrors = %v, want none", result.RowErrors)
	}
	if len(result.Records) != 1 {
		t.Fatalf("got %d records, want 1 (zero-vote cells are skipped)", len(result.Records))
	}
	rec := result.Records[0]
	want := election.Record{
		Category:      election.CategoryLokale,
		Municipality:  election.MunicipalityTirana,
		PollingCenter: "QV 101",
		PollingPlace:  "VV 101/1",
		Party:         election.PartyPD,
		Votes:         57,
	}
	if rec != want {
		t.Errorf("record = %+v, want %+v", rec, want)
	}
}

func TestParseHeaderVariants(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"canonical", "Kategoria,Komuna,QendraVotimit,Vendvotimi,PartiaPS"},
		{"lowercase", "kategoria,komuna,qendravotimit,vendvotimi,PartiaPS"},
		{"underscored free-text", "Kategoria,Komuna,Qendra_e_Votimit,Vend_Votimi,PartiaPS"},
		{"reordered", "PartiaPS,Vendvotimi,Komuna,Kategoria,QendraVotimit"},
		{"bom and quotes", "\uFEFF\"Kategoria\",\"Komuna\",\"QendraVotimit\",\"Vendvotimi\",\"PartiaPS\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Build the data row in the same column order as the header.
			headers := splitFields(strings.TrimPrefix(tt.header, "\uFEFF"))
			row := make([]string, len(headers))
			for i, h := range headers {
				switch strings.ToLower(h) {
				case "kategoria":
					row[i] = "Nacionale"
				case "komuna":
					row[i] = "Durres"
				default:
					if strings.HasPrefix(strings.ToLower(h), "partia") {
						row[i] = "12"
					} else if strings.HasPrefix(strings.ToLower(h), "qendra") {
						row[i] = "QV1"
					} else {
						row[i] = "VV1"
					}
				}
			}

			result, err := Parse(strings.NewReader(tt.header + "\n" + strings.Join(row, ",") + "\n"))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(result.Records) != 1 {
				t.Fatalf("got %d records, want 1 (errors: %v)", len(result.Records), result.RowErrors)
			}
			if result.Records[0].Votes != 12 || result.Records[0].Party != election.PartyPS {
				t.Errorf("record = %+v", result.Records[0])
			}
		})
	}
}

func TestParseHeaderErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"empty input", "", "The CSV header is empty."},
		{"blank header", "   \ndata\n", "The CSV header is empty."},
		{"missing required", "Kategoria,Komuna,PartiaPS\nLokale,Tirana,5\n", "Required columns not found"},
		{"no party columns", "Kategoria,Komuna,QendraVotimit,Vendvotimi\nLokale,Tirana,QV1,VV1\n", "No party columns detected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("Parse() expected error")
			}
			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
			if !strings.Contains(apperrors.Message(err), tt.wantMsg) {
				t.Errorf("message = %q, want substring %q", apperrors.Message(err), tt.wantMsg)
			}
		})
	}
}

func TestParseRowErrors(t *testing.T) {
	csv := "Kategoria,Komuna,QendraVotimit,Vendvotimi,PartiaPS\n" +
		"Lokale,Tirana,QV1\n" + // short row
		"Presidenciale,Tirana,QV1,VV1,5\n" + // bad category
		"Lokale,Atlantis,QV1,VV1,5\n" + // bad municipality
		"Lokale,Tirana,,VV1,5\n" + // empty center
		"Lokale,Tirana,QV1,,5\n" + // empty place
		"Lokale,Tirana,QV2,VV2,9\n" // clean

	result, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	wantErrors := []string{
		"Line 2: column count 3 less than header count 5.",
		"Line 3: invalid Kategoria 'Presidenciale'.",
		"Line 4: invalid Komuna 'Atlantis'.",
		"Line 5: empty Qendra e Votimit.",
		"Line 6: empty Vendvotimi.",
	}
	if len(result.RowErrors) != len(wantErrors) {
		t.Fatalf("RowErrors = %v, want %v", result.RowErrors, wantErrors)
	}
	for i, want := range wantErrors {
		if result.RowErrors[i] != want {
			t.Errorf("RowErrors[%d] = %q, want %q", i, result.RowErrors[i], want)
		}
	}
	if len(result.Records) != 1 || result.Records[0].PollingCenter != "QV2" {
		t.Errorf("clean rows must still be parsed, got %+v", result.Records)
	}
}

func TestParseWildcardValuesRejected(t *testing.T) {
	csv := "Kategoria,Komuna,QendraVotimit,Vendvotimi,PartiaPS\n" +
		"TeGjitha,Tirana,QV1,VV1,5\n"
	result, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(result.RowErrors) != 1 || !strings.Contains(result.RowErrors[0], "invalid Kategoria") {
		t.Fatalf("wildcard category must be a row error, got %v", result.RowErrors)
	}
}

func TestParseUnknownPartyHeader(t *testing.T) {
	csv := "Kategoria,Komuna,QendraVotimit,Vendvotimi,PartiaXYZ,PartiaPS\n" +
		"Lokale,Tirana,QV1,VV1,0,7\n" + // zero under unknown header: no error
		"Lokale,Tirana,QV1,VV1,3,7\n" // nonzero under unknown header: row error

	result, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(result.RowErrors) != 1 {
		t.Fatalf("RowErrors = %v, want exactly one", result.RowErrors)
	}
	if result.RowErrors[0] != "Line 3: unknown party header 'PartiaXYZ'." {
		t.Errorf("RowErrors[0] = %q", result.RowErrors[0])
	}
	// Known-party cells on both rows still produce records.
	if len(result.Records) != 2 {
		t.Errorf("got %d records, want 2", len(result.Records))
	}
}

func TestParseVoteCells(t *testing.T) {
	csv := "Kategoria,Komuna,QendraVotimit,Vendvotimi,PartiaPS,PartiaPD,PartiaLSI\n" +
		"Lokale,Tirana,QV1,VV1,abc,-4,\n" + // unparseable, negative, blank: all skipped
		"\n" + // blank line skipped entirely
		"Lokale,Tirana,QV1,VV1,1,2,3\n"

	result, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(result.RowErrors) != 0 {
		t.Fatalf("RowErrors = %v, want none", result.RowErrors)
	}
	if len(result.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(result.Records))
	}
	if result.Lines != 2 {
		t.Errorf("Lines = %d, want 2", result.Lines)
	}
	total := 0
	for _, r := range result.Records {
		total += r.Votes
	}
	if total != 6 {
		t.Errorf("total votes = %d, want 6", total)
	}
}

func TestParseFallbackPartyHeader(t *testing.T) {
	csv := "Kategoria,Komuna,QendraVotimit,Vendvotimi,Partia PD\n" +
		"Lokale,Tirana,QV1,VV1,4\n"
	result, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(result.Records) != 1 || result.Records[0].Party != election.PartyPD {
		t.Fatalf("records = %+v, want one PartyPD record", result.Records)
	}
}
