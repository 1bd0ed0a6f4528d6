package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shkelqim22/zgjedhjet/internal/election"
	apperrors "github.com/shkelqim22/zgjedhjet/pkg/errors"
)

type stubStore struct {
	records []election.Record
	calls   int
	err     error
}

func (s *stubStore) ReplaceAll(_ context.Context, records []election.Record) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.records = records
	return nil
}

type stubFlusher struct {
	flushed int
	err     error
}

func (f *stubFlusher) Flush(context.Context) error {
	f.flushed++
	return f.err
}

type stubNotifier struct {
	records int
	calls   int
}

func (n *stubNotifier) ImportCompleted(_ context.Context, records int, _ time.Duration) {
	n.calls++
	n.records = records
}

func TestImportSuccess(t *testing.T) {
	store := &stubStore{}
	flusher := &stubFlusher{}
	notifier := &stubNotifier{}
	svc := New(store, flusher, notifier, nil)

	csv := "Kategoria,Komuna,QendraVotimit,Vendvotimi,PartiaPS,PartiaPD\n" +
		"Lokale,Tirana,QV1,VV1,10,20\n" +
		"Nacionale,Durres,QV2,VV2,5,0\n"

	result, err := svc.Import(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("result = %+v, want success", result)
	}
	if result.RecordsImported != 3 {
		t.Errorf("RecordsImported = %d, want 3", result.RecordsImported)
	}
	if result.Message != "Successfully imported 3 records." {
		t.Errorf("Message = %q", result.Message)
	}
	if len(store.records) != 3 {
		t.Errorf("store received %d records, want 3", len(store.records))
	}
	if flusher.flushed != 1 {
		t.Errorf("cache flushed %d times, want 1", flusher.flushed)
	}
	if notifier.calls != 1 || notifier.records != 3 {
		t.Errorf("notifier = %+v, want one call with 3 records", notifier)
	}
}

func TestImportRejectsWholeFileOnRowError(t *testing.T) {
	store := &stubStore{}
	svc := New(store, nil, nil, nil)

	csv := "Kategoria,Komuna,QendraVotimit,Vendvotimi,PartiaPS\n" +
		"Lokale,Tirana,QV1,VV1,10\n" +
		"Lokale,Nowhere,QV2,VV2,5\n"

	result, err := svc.Import(context.Background(), strings.NewReader(csv))
	if err == nil {
		t.Fatal("Import() expected error")
	}
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
	if store.calls != 0 {
		t.Error("store must not be touched when any row fails")
	}
	if result == nil || result.Success {
		t.Fatalf("result = %+v, want populated rejection", result)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "invalid Komuna 'Nowhere'") {
		t.Errorf("Errors = %v", result.Errors)
	}
}

func TestImportNothingToImport(t *testing.T) {
	store := &stubStore{}
	svc := New(store, nil, nil, nil)

	// Clean parse, but every vote cell is zero or blank.
	csv := "Kategoria,Komuna,QendraVotimit,Vendvotimi,PartiaPS\n" +
		"Lokale,Tirana,QV1,VV1,0\n"

	result, err := svc.Import(context.Background(), strings.NewReader(csv))
	if !errors.Is(err, apperrors.ErrNothingToImport) {
		t.Fatalf("error = %v, want ErrNothingToImport", err)
	}
	if store.calls != 0 {
		t.Error("store must not be touched for an empty batch")
	}
	if result.Message != "No records to import (no votes > 0 found)." {
		t.Errorf("Message = %q", result.Message)
	}
}

func TestImportHeaderErrorRelayed(t *testing.T) {
	svc := New(&stubStore{}, nil, nil, nil)

	result, err := svc.Import(context.Background(), strings.NewReader("NotAHeader\nx\n"))
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
	if result.Success || result.Message == "" {
		t.Errorf("result = %+v, want rejection with message", result)
	}
}

func TestImportStoreFailure(t *testing.T) {
	store := &stubStore{err: errors.New("connection reset")}
	flusher := &stubFlusher{}
	svc := New(store, flusher, nil, nil)

	csv := "Kategoria,Komuna,QendraVotimit,Vendvotimi,PartiaPS\n" +
		"Lokale,Tirana,QV1,VV1,10\n"

	result, err := svc.Import(context.Background(), strings.NewReader(csv))
	if err == nil {
		t.Fatal("Import() expected error")
	}
	if result.Success {
		t.Error("result must report failure")
	}
	if flusher.flushed != 0 {
		t.Error("cache must not be flushed when the commit fails")
	}
}

func TestImportCacheFlushFailureIsNonFatal(t *testing.T) {
	store := &stubStore{}
	flusher := &stubFlusher{err: errors.New("redis down")}
	svc := New(store, flusher, nil, nil)

	csv := "Kategoria,Komuna,QendraVotimit,Vendvotimi,PartiaPS\n" +
		"Lokale,Tirana,QV1,VV1,10\n"

	result, err := svc.Import(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import() error = %v, flush failures must not fail the import", err)
	}
	if !result.Success {
		t.Errorf("result = %+v, want success", result)
	}
}
