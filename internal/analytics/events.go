// Package analytics records search activity: the searcher publishes one
// event per request to Kafka and the analytics service aggregates them.
package analytics

import "time"

type EventType string

const (
	EventSearch        EventType = "search"
	EventCacheHit      EventType = "cache_hit"
	EventCacheMiss     EventType = "cache_miss"
	EventZeroResult    EventType = "zero_result"
	EventFailed        EventType = "failed"
	EventCatalogReload EventType = "catalog_reload"
)

// SearchEvent describes one search, gene count or lookup request.
type SearchEvent struct {
	Type            EventType `json:"type"`
	Operation       string    `json:"operation"`
	GenomeVersion   string    `json:"genome_version"`
	DataTypes       []string  `json:"data_types,omitempty"`
	InheritanceMode string    `json:"inheritance_mode,omitempty"`
	Projects        int       `json:"projects"`
	Families        int       `json:"families"`
	Total           int       `json:"total"`
	Returned        int       `json:"returned"`
	LatencyMs       int64     `json:"latency_ms"`
	CacheHit        bool      `json:"cache_hit"`
	Outcome         string    `json:"outcome"`
	Timestamp       time.Time `json:"timestamp"`
	RequestID       string    `json:"request_id"`
}

// CatalogEvent describes a catalog reload.
type CatalogEvent struct {
	Type      EventType `json:"type"`
	Loaded    int       `json:"loaded"`
	Failed    int       `json:"failed"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}
