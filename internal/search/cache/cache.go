// Package cache stores search results in Redis keyed by a hash of the
// operation and its normalized request.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/redis"
)

const keyPrefix = "result:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// QueryCache is a read-through result cache. A nil *QueryCache computes
// every request.
type QueryCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache over store. m may be nil.
func New(store Store, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   store,
		ttl:     cfg.CacheTTL,
		metrics: m,
		logger:  slog.Default().With("component", "result-cache"),
	}
}

// Stats is a snapshot of the hit counters.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Total   int64   `json:"total"`
	HitRate float64 `json:"hit_rate"`
}

func (c *QueryCache) Stats() Stats {
	s := Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	s.Total = s.Hits + s.Misses
	if s.Total > 0 {
		s.HitRate = float64(s.Hits) / float64(s.Total)
	}
	return s
}

// GetOrCompute returns the cached result of op for req, or runs compute
// and stores its result. Concurrent identical requests share one compute.
// Failed computations are never cached.
func GetOrCompute[T any](ctx context.Context, c *QueryCache, op string, req any, compute func(ctx context.Context) (T, error)) (T, bool, error) {
	if c == nil {
		v, err := compute(ctx)
		return v, false, err
	}
	key, err := Key(op, req)
	if err != nil {
		c.logger.Warn("cache key failed, bypassing cache", "operation", op, "error", err)
		v, err := compute(ctx)
		return v, false, err
	}
	start := time.Now()
	var out T
	if c.get(ctx, key, &out) {
		c.record(op, true, start)
		return out, true, nil
	}

	val, err, shared := c.group.Do(key, func() (any, error) {
		var again T
		if c.get(ctx, key, &again) {
			return again, nil
		}
		v, err := compute(ctx)
		if err != nil {
			return v, err
		}
		c.set(ctx, key, v)
		return v, nil
	})
	c.record(op, false, start)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if shared {
		c.logger.Debug("shared in-flight result", "operation", op, "key", key)
	}
	return val.(T), false, nil
}

func (c *QueryCache) get(ctx context.Context, key string, out any) bool {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return false
	}
	return true
}

func (c *QueryCache) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func (c *QueryCache) record(op string, hit bool, start time.Time) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.CacheHitsTotal.Inc()
		c.metrics.SearchLatency.WithLabelValues(op, "hit").Observe(time.Since(start).Seconds())
	} else {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// Invalidate drops every cached result, returning the number of keys removed.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating result cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// Key derives the cache key of op for req. Search requests are normalized
// first so that equivalent requests share a key.
func Key(op string, req any) (string, error) {
	if sr, ok := req.(*model.SearchRequest); ok {
		req = normalize(sr)
	}
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding %s request: %w", op, err)
	}
	hash := sha256.Sum256(append([]byte(op+"|"), data...))
	return fmt.Sprintf("%s%s:%x", keyPrefix, op, hash[:16]), nil
}

// normalize returns a copy with its set-valued id and interval lists sorted.
func normalize(req *model.SearchRequest) *model.SearchRequest {
	n := *req
	n.GeneIDs = sortedCopy(req.GeneIDs)
	n.RsIDs = sortedCopy(req.RsIDs)
	n.VariantIDs = sortedCopy(req.VariantIDs)
	n.VariantKeys = sortedCopy(req.VariantKeys)
	n.Intervals = sortedCopy(req.Intervals)
	n.ExcludeIntervals = sortedCopy(req.ExcludeIntervals)
	return &n
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
