// Package query provides a Redis-backed cache for aggregation results. The
// dataset only changes on operator-triggered import or sync, so cached
// totals are flushed on those events and otherwise served until TTL.
package query

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/shkelqim22/zgjedhjet/internal/election"
	"github.com/shkelqim22/zgjedhjet/pkg/metrics"
	pkgredis "github.com/shkelqim22/zgjedhjet/pkg/redis"
)

const keyPrefix = "agg:"

// Cache shares one Redis client and TTL across all wrapped backends and
// flushes their keys together.
type Cache struct {
	client  *pkgredis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates the aggregation cache. m may be nil.
func New(client *pkgredis.Client, ttl time.Duration, m *metrics.Metrics) *Cache {
	return &Cache{
		client:  client,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Wrap decorates a backend with caching. Identical concurrent queries are
// collapsed via singleflight; cache failures degrade to a direct backend
// call. Errors (including not-found) are never cached.
func (c *Cache) Wrap(backend election.Backend) election.Backend {
	return &cachedBackend{cache: c, backend: backend}
}

// Flush drops every cached aggregation result, for all backends.
func (c *Cache) Flush(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("flushing aggregation cache: %w", err)
	}
	c.logger.Info("aggregation cache flushed", "keys", deleted)
	return nil
}

type cachedBackend struct {
	cache   *Cache
	backend election.Backend
	group   singleflight.Group
}

func (b *cachedBackend) Name() string { return b.backend.Name() }

func (b *cachedBackend) Totals(ctx context.Context, f election.Filter) (election.Totals, error) {
	key := b.buildKey(f)

	if totals, ok := b.get(ctx, key); ok {
		if b.cache.metrics != nil {
			b.cache.metrics.CacheHitsTotal.Inc()
		}
		return totals, nil
	}
	if b.cache.metrics != nil {
		b.cache.metrics.CacheMissesTotal.Inc()
	}

	v, err, _ := b.group.Do(key, func() (any, error) {
		totals, err := b.backend.Totals(ctx, f)
		if err != nil {
			return nil, err
		}
		b.set(ctx, key, totals)
		return totals, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(election.Totals), nil
}

func (b *cachedBackend) get(ctx context.Context, key string) (election.Totals, bool) {
	data, err := b.cache.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			b.cache.logger.Warn("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var totals election.Totals
	if err := json.Unmarshal([]byte(data), &totals); err != nil {
		b.cache.logger.Warn("dropping corrupt cache entry", "key", key, "error", err)
		return nil, false
	}
	return totals, true
}

func (b *cachedBackend) set(ctx context.Context, key string, totals election.Totals) {
	data, err := json.Marshal(totals)
	if err != nil {
		b.cache.logger.Warn("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := b.cache.client.Set(ctx, key, data, b.cache.ttl); err != nil {
		b.cache.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// buildKey derives a stable key from the backend name and the filter.
func (b *cachedBackend) buildKey(f election.Filter) string {
	raw := fmt.Sprintf("%s|%d|%d|%s|%s|%d",
		b.backend.Name(),
		f.Category, f.Municipality, f.PollingCenter, f.PollingPlace, f.Party)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%s:%x", keyPrefix, b.backend.Name(), sum[:16])
}
