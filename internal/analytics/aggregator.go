package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/kafka"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalRequests     int64            `json:"total_requests"`
	ByOperation       map[string]int64 `json:"by_operation"`
	ByOutcome         map[string]int64 `json:"by_outcome"`
	ByDataType        map[string]int64 `json:"by_data_type"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	FailedCount       int64            `json:"failed_count"`
	CatalogReloads    int64            `json:"catalog_reloads"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	TopModes          []ModeCount      `json:"top_inheritance_modes"`
	ZeroResultModes   []ModeCount      `json:"zero_result_modes"`
	RequestsPerMinute float64          `json:"requests_per_minute"`
}

// Snapshot is a stats record captured at a point in time.
type Snapshot struct {
	Stats      AggregatedStats `json:"stats"`
	CapturedAt time.Time       `json:"captured_at"`
}

type ModeCount struct {
	Mode  string `json:"mode"`
	Count int64  `json:"count"`
}

type Aggregator struct {
	mu             sync.RWMutex
	totalRequests  atomic.Int64
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
	zeroResults    atomic.Int64
	failed         atomic.Int64
	catalogReloads atomic.Int64
	latencies      []int64
	next           int
	operations     map[string]int64
	outcomes       map[string]int64
	dataTypes      map[string]int64
	modes          map[string]int64
	zeroModes      map[string]int64
	startTime      time.Time

	consumer *kafka.Consumer
	logger   *slog.Logger
}

// NewAggregator creates an aggregator; consumer may be nil when events are
// fed through Record directly.
func NewAggregator(consumer *kafka.Consumer) *Aggregator {
	return &Aggregator{
		latencies:  make([]int64, 0, 1024),
		operations: make(map[string]int64),
		outcomes:   make(map[string]int64),
		dataTypes:  make(map[string]int64),
		modes:      make(map[string]int64),
		zeroModes:  make(map[string]int64),
		startTime:  time.Now(),
		consumer:   consumer,
		logger:     slog.Default().With("component", "analytics-aggregator"),
	}
}

// SetConsumer attaches the consumer whose handler feeds this aggregator.
func (a *Aggregator) SetConsumer(c *kafka.Consumer) { a.consumer = c }

func (a *Aggregator) Start(ctx context.Context) error {
	a.logger.Info("analytics aggregator starting")
	return a.consumer.Start(ctx)
}

// HandleEvent decodes an event by its type field. Undecodable messages are
// logged and committed so that they do not block the partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		var head struct {
			Type EventType `json:"type"`
		}
		if err := json.Unmarshal(value, &head); err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		if head.Type == EventCatalogReload {
			if _, err := kafka.DecodeJSON[CatalogEvent](value); err != nil {
				agg.logger.Error("failed to decode catalog event", "error", err)
				return nil
			}
			agg.catalogReloads.Add(1)
			return nil
		}
		event, err := kafka.DecodeJSON[SearchEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode search event", "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

// Record adds one search event to the aggregates.
func (a *Aggregator) Record(event SearchEvent) {
	a.totalRequests.Add(1)
	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	failed := event.Outcome != "" && event.Outcome != "ok"
	zero := !failed && event.Total == 0
	if failed {
		a.failed.Add(1)
	}
	if zero {
		a.zeroResults.Add(1)
	}

	mode := event.InheritanceMode
	if mode == "" {
		mode = "none"
	}

	a.mu.Lock()
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}
	a.operations[event.Operation]++
	outcome := event.Outcome
	if outcome == "" {
		outcome = "ok"
	}
	a.outcomes[outcome]++
	for _, dt := range event.DataTypes {
		a.dataTypes[dt]++
	}
	a.modes[mode]++
	if zero {
		a.zeroModes[mode]++
	}
	a.mu.Unlock()
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalRequests:   a.totalRequests.Load(),
		ByOperation:     copyCounts(a.operations),
		ByOutcome:       copyCounts(a.outcomes),
		ByDataType:      copyCounts(a.dataTypes),
		CacheHits:       a.cacheHits.Load(),
		CacheMisses:     a.cacheMisses.Load(),
		ZeroResultCount: a.zeroResults.Load(),
		FailedCount:     a.failed.Load(),
		CatalogReloads:  a.catalogReloads.Load(),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopModes = topN(a.modes, 10)
	stats.ZeroResultModes = topN(a.zeroModes, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.RequestsPerMinute = float64(stats.TotalRequests) / elapsed
	}

	return stats
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []ModeCount {
	result := make([]ModeCount, 0, len(counts))
	for mode, count := range counts {
		result = append(result, ModeCount{Mode: mode, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Mode < result[j].Mode
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
