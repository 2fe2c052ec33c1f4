package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func feed(t *testing.T, agg *Aggregator, events ...any) {
	t.Helper()
	handle := HandleEvent(agg)
	for _, e := range events {
		b, err := json.Marshal(e)
		if err != nil {
			t.Fatal(err)
		}
		if err := handle(context.Background(), nil, b); err != nil {
			t.Fatalf("handler returned %v", err)
		}
	}
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator(nil)
	feed(t, agg,
		SearchEvent{Type: EventCacheMiss, Operation: "search", InheritanceMode: "de_novo", DataTypes: []string{"SNV_INDEL"}, Total: 3, LatencyMs: 10, Outcome: "ok"},
		SearchEvent{Type: EventCacheHit, Operation: "search", InheritanceMode: "de_novo", DataTypes: []string{"SNV_INDEL", "SV_WGS"}, Total: 0, LatencyMs: 2, CacheHit: true, Outcome: "ok"},
		SearchEvent{Type: EventFailed, Operation: "gene_counts", LatencyMs: 30, Outcome: "bad_request"},
		CatalogEvent{Type: EventCatalogReload, Loaded: 8},
	)
	// Garbage is dropped without failing the consumer.
	if err := HandleEvent(agg)(context.Background(), nil, []byte("{")); err != nil {
		t.Fatalf("undecodable message returned %v", err)
	}

	got := agg.Stats()
	if got.TotalRequests != 3 || got.CacheHits != 1 || got.CacheMisses != 2 {
		t.Errorf("unexpected counters %+v", got)
	}
	if got.ZeroResultCount != 1 || got.FailedCount != 1 || got.CatalogReloads != 1 {
		t.Errorf("zero=%d failed=%d reloads=%d", got.ZeroResultCount, got.FailedCount, got.CatalogReloads)
	}
	if diff := cmp.Diff(map[string]int64{"search": 2, "gene_counts": 1}, got.ByOperation); diff != "" {
		t.Errorf("operations mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int64{"SNV_INDEL": 2, "SV_WGS": 1}, got.ByDataType); diff != "" {
		t.Errorf("data types mismatch (-want +got):\n%s", diff)
	}
	wantModes := []ModeCount{{Mode: "de_novo", Count: 2}, {Mode: "none", Count: 1}}
	if diff := cmp.Diff(wantModes, got.TopModes); diff != "" {
		t.Errorf("modes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]ModeCount{{Mode: "de_novo", Count: 1}}, got.ZeroResultModes); diff != "" {
		t.Errorf("zero result modes mismatch (-want +got):\n%s", diff)
	}
	if got.P50LatencyMs != 10 || got.P99LatencyMs != 30 {
		t.Errorf("p50=%d p99=%d", got.P50LatencyMs, got.P99LatencyMs)
	}
}

func TestAggregatorLatencyWindow(t *testing.T) {
	agg := NewAggregator(nil)
	for i := 0; i < maxLatencySamples+10; i++ {
		agg.Record(SearchEvent{Operation: "search", Total: 1, LatencyMs: int64(i)})
	}
	if n := len(agg.latencies); n != maxLatencySamples {
		t.Fatalf("latency window holds %d samples", n)
	}
	if got := agg.Stats().TotalRequests; got != maxLatencySamples+10 {
		t.Errorf("total = %d", got)
	}
}

type fakeLister struct {
	snaps []Snapshot
	limit int
	err   error
}

func (f *fakeLister) ListSnapshots(_ context.Context, limit int) ([]Snapshot, error) {
	f.limit = limit
	return f.snaps, f.err
}

func TestHandlerSnapshots(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name      string
		lister    *fakeLister
		query     string
		status    int
		wantLimit int
	}{
		{"default limit", &fakeLister{snaps: []Snapshot{{CapturedAt: at}}}, "", http.StatusOK, defaultSnapshotLimit},
		{"explicit limit", &fakeLister{}, "?limit=3", http.StatusOK, 3},
		{"bad limit", &fakeLister{}, "?limit=0", http.StatusBadRequest, 0},
		{"store error", &fakeLister{err: errors.New("down")}, "", http.StatusInternalServerError, defaultSnapshotLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(NewAggregator(nil), tt.lister)
			rec := httptest.NewRecorder()
			h.Snapshots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots"+tt.query, nil))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.lister.limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", tt.lister.limit, tt.wantLimit)
			}
			if rec.Code == http.StatusOK {
				var got []Snapshot
				if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
					t.Fatal(err)
				}
				if len(got) != len(tt.lister.snaps) {
					t.Errorf("got %d snapshots", len(got))
				}
			}
		})
	}

	rec := httptest.NewRecorder()
	NewHandler(NewAggregator(nil), nil).Snapshots(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled store status = %d", rec.Code)
	}
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator(nil)
	agg.Record(SearchEvent{Operation: "lookup", Total: 1, Outcome: "ok"})
	rec := httptest.NewRecorder()
	NewHandler(agg, nil).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/stats", nil))
	var got AggregatedStats
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.TotalRequests != 1 || got.ByOperation["lookup"] != 1 {
		t.Errorf("unexpected stats %+v", got)
	}
}
