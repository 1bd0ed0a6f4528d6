// Package events publishes operator notifications for completed imports and
// index syncs. Publishing is best effort: the primary operation has already
// committed by the time an event goes out, and a broker failure is only
// logged.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/shkelqim22/zgjedhjet/pkg/kafka"
)

const publishTimeout = 5 * time.Second

// ImportCompletedEvent is emitted after a successful CSV import.
type ImportCompletedEvent struct {
	Type        string    `json:"type"`
	Records     int       `json:"records"`
	DurationMS  int64     `json:"duration_ms"`
	CompletedAt time.Time `json:"completed_at"`
}

// SyncCompletedEvent is emitted after a successful index sync.
type SyncCompletedEvent struct {
	Type        string    `json:"type"`
	Records     int       `json:"records"`
	CompletedAt time.Time `json:"completed_at"`
}

// Publisher sends events to the operator topic. A nil Publisher is valid and
// publishes nothing, which is how deployments without Kafka run.
type Publisher struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

// New creates a Publisher on the given producer.
func New(producer *kafka.Producer) *Publisher {
	return &Publisher{
		producer: producer,
		logger:   slog.Default().With("component", "events"),
	}
}

// ImportCompleted publishes an import.completed event asynchronously.
func (p *Publisher) ImportCompleted(ctx context.Context, records int, took time.Duration) {
	if p == nil {
		return
	}
	p.publish("import.completed", ImportCompletedEvent{
		Type:        "import.completed",
		Records:     records,
		DurationMS:  took.Milliseconds(),
		CompletedAt: time.Now().UTC(),
	})
}

// SyncCompleted publishes a sync.completed event asynchronously.
func (p *Publisher) SyncCompleted(ctx context.Context, records int) {
	if p == nil {
		return
	}
	p.publish("sync.completed", SyncCompletedEvent{
		Type:        "sync.completed",
		Records:     records,
		CompletedAt: time.Now().UTC(),
	})
}

func (p *Publisher) publish(key string, value any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.producer.Publish(ctx, kafka.Event{Key: key, Value: value}); err != nil {
			p.logger.Warn("event publish failed", "key", key, "error", err)
		}
	}()
}
