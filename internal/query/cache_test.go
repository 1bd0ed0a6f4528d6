package query

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shkelqim22/zgjedhjet/internal/election"
	"github.com/shkelqim22/zgjedhjet/pkg/config"
	pkgredis "github.com/shkelqim22/zgjedhjet/pkg/redis"
)

type countingBackend struct {
	name   string
	totals election.Totals
	err    error
	calls  int
}

func (b *countingBackend) Name() string { return b.name }

func (b *countingBackend) Totals(context.Context, election.Filter) (election.Totals, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return b.totals, nil
}

func TestBuildKey(t *testing.T) {
	pg := &cachedBackend{backend: &countingBackend{name: "postgres"}}
	es := &cachedBackend{backend: &countingBackend{name: "elasticsearch"}}

	f := election.Filter{Category: election.CategoryLokale, PollingCenter: "QV1"}
	if pg.buildKey(f) != pg.buildKey(f) {
		t.Error("identical filters must cache under the same key")
	}
	if pg.buildKey(f) == pg.buildKey(election.Filter{Category: election.CategoryLokale}) {
		t.Error("different filters must not share a key")
	}
	if pg.buildKey(f) == es.buildKey(f) {
		t.Error("backends must not share keys")
	}
	if got := pg.buildKey(f); got[:len("agg:postgres:")] != "agg:postgres:" {
		t.Errorf("key = %q, want agg:postgres: prefix", got)
	}
}

// Integration tests run against a real Redis when TEST_REDIS_ADDR is set,
// e.g. "localhost:6379".
func testCache(t *testing.T) *Cache {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping integration test")
	}
	client, err := pkgredis.NewClient(config.RedisConfig{Addr: addr, DB: 15})
	if err != nil {
		t.Skipf("test redis not reachable: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	c := New(client, time.Minute, nil)
	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("clearing cache keys: %v", err)
	}
	return c
}

func TestCacheHitSkipsBackend(t *testing.T) {
	c := testCache(t)
	backend := &countingBackend{name: "postgres", totals: election.Totals{election.PartyPS: 140}}
	cached := c.Wrap(backend)
	ctx := context.Background()
	f := election.Filter{Municipality: election.MunicipalityTirana}

	for i := 0; i < 3; i++ {
		totals, err := cached.Totals(ctx, f)
		if err != nil {
			t.Fatalf("Totals() call %d error = %v", i, err)
		}
		if totals[election.PartyPS] != 140 {
			t.Fatalf("totals = %v", totals)
		}
	}
	if backend.calls != 1 {
		t.Errorf("backend called %d times, want 1 (subsequent calls served from cache)", backend.calls)
	}
}

func TestCacheNeverStoresErrors(t *testing.T) {
	c := testCache(t)
	backend := &countingBackend{name: "postgres", err: errors.New("boom")}
	cached := c.Wrap(backend)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := cached.Totals(ctx, election.Filter{}); err == nil {
			t.Fatal("Totals() expected error")
		}
	}
	if backend.calls != 2 {
		t.Errorf("backend called %d times, want 2 (errors are never cached)", backend.calls)
	}
}

func TestCacheFlushForcesRefetch(t *testing.T) {
	c := testCache(t)
	backend := &countingBackend{name: "postgres", totals: election.Totals{election.PartyPD: 7}}
	cached := c.Wrap(backend)
	ctx := context.Background()

	if _, err := cached.Totals(ctx, election.Filter{}); err != nil {
		t.Fatalf("Totals() error = %v", err)
	}
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if _, err := cached.Totals(ctx, election.Filter{}); err != nil {
		t.Fatalf("Totals() after flush error = %v", err)
	}
	if backend.calls != 2 {
		t.Errorf("backend called %d times, want 2 (flush drops cached totals)", backend.calls)
	}
}
