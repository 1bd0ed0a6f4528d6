// Package suggest serves municipality autocomplete from the search index and
// keeps a popularity ledger of suggested municipalities in Redis.
package suggest

import (
	"context"
	"fmt"

	"github.com/shkelqim22/zgjedhjet/pkg/redis"
)

// Stat is the ledger's read view: one municipality and how often it has been
// suggested.
type Stat struct {
	Municipality string `json:"municipality"`
	Count        int    `json:"count"`
}

// Ledger is a monotonically increasing per-municipality counter with a
// top-N leaderboard view. Increments must be atomic per key; the ledger is
// shared between instances and never cleared.
type Ledger interface {
	Record(ctx context.Context, municipalities []string) error
	Top(ctx context.Context, n int) ([]Stat, error)
}

// RedisLedger keeps the counters in one Redis sorted set, scored by
// suggestion count.
type RedisLedger struct {
	client *redis.Client
	key    string
}

// NewRedisLedger creates a ledger on the given leaderboard key.
func NewRedisLedger(client *redis.Client, key string) *RedisLedger {
	return &RedisLedger{client: client, key: key}
}

// Record increments each municipality's score by 1.
func (l *RedisLedger) Record(ctx context.Context, municipalities []string) error {
	for _, m := range municipalities {
		if _, err := l.client.IncrScore(ctx, l.key, m, 1); err != nil {
			return fmt.Errorf("recording suggestion for %q: %w", m, err)
		}
	}
	return nil
}

// Top returns the n highest-scoring municipalities, descending. Ties follow
// Redis sorted-set ordering.
func (l *RedisLedger) Top(ctx context.Context, n int) ([]Stat, error) {
	members, err := l.client.TopScores(ctx, l.key, int64(n))
	if err != nil {
		return nil, fmt.Errorf("reading suggestion leaderboard: %w", err)
	}
	stats := make([]Stat, 0, len(members))
	for _, m := range members {
		stats = append(stats, Stat{Municipality: m.Member, Count: int(m.Score)})
	}
	return stats, nil
}
