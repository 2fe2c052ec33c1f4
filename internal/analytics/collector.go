package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/analytics/collector"
)

// Collector publishes search events in batches. A nil *Collector discards
// events, so callers need no nil checks.
type Collector struct {
	batch   *collector.BatchCollector
	started bool
	logger  *slog.Logger
}

// NewCollector wraps a publisher; batchSize and flushInterval fall back to
// the batch collector's defaults when zero.
func NewCollector(publisher collector.Publisher, batchSize int, flushInterval time.Duration) *Collector {
	return &Collector{
		batch:  collector.NewBatchCollector(publisher, batchSize, flushInterval),
		logger: slog.Default().With("component", "analytics-collector"),
	}
}

// Start runs the flush loop until ctx is cancelled.
func (c *Collector) Start(ctx context.Context) {
	if c == nil {
		return
	}
	c.batch.Start(ctx)
	c.started = true
	c.logger.Info("analytics collector started")
}

// TrackSearch records one request. Events are keyed by operation so that
// each operation's events stay ordered within a partition.
func (c *Collector) TrackSearch(event SearchEvent) {
	if c == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	c.batch.Track(event.Operation, event)
}

// TrackCatalog records a catalog reload.
func (c *Collector) TrackCatalog(event CatalogEvent) {
	if c == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.Type = EventCatalogReload
	c.batch.Track(string(EventCatalogReload), event)
}

// Close waits for the final flush after the Start context is cancelled.
func (c *Collector) Close() {
	if c == nil || !c.started {
		return
	}
	c.batch.Close()
}
