// Package handler exposes the query engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/cache"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/globals"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/middleware"
)

// maxRequestBytes bounds a request body.
const maxRequestBytes = 8 << 20

// Searcher runs requests; *query.Engine implements it.
type Searcher interface {
	Search(ctx context.Context, req *model.SearchRequest) (*model.SearchResponse, error)
	GeneCounts(ctx context.Context, req *model.SearchRequest) (model.GeneCounts, error)
	Lookup(ctx context.Context, req *model.LookupRequest) (*model.Result, error)
	MultiLookup(ctx context.Context, req *model.LookupRequest) ([]*model.Result, error)
}

// CatalogLoader reloads the annotation catalogs; *globals.Cache implements it.
type CatalogLoader interface {
	Load(ctx context.Context) (globals.Status, error)
}

type Handler struct {
	engine    Searcher
	catalogs  CatalogLoader
	cache     *cache.QueryCache
	collector *analytics.Collector
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New creates a handler. queryCache, collector and m may be nil.
func New(engine Searcher, catalogs CatalogLoader, queryCache *cache.QueryCache, collector *analytics.Collector, m *metrics.Metrics) *Handler {
	return &Handler{
		engine:    engine,
		catalogs:  catalogs,
		cache:     queryCache,
		collector: collector,
		metrics:   m,
		logger:    logger.WithComponent("search-handler"),
	}
}

// Register adds the search routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /search", h.Search)
	mux.HandleFunc("POST /gene_counts", h.GeneCounts)
	mux.HandleFunc("POST /lookup", h.Lookup)
	mux.HandleFunc("POST /multi_lookup", h.MultiLookup)
	mux.HandleFunc("POST /api/v1/catalog/reload", h.ReloadCatalog)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req model.SearchRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, hit, err := cache.GetOrCompute(r.Context(), h.cache, query.OpSearch, &req, func(ctx context.Context) (*model.SearchResponse, error) {
		return h.engine.Search(ctx, &req)
	})
	event := searchEvent(r.Context(), query.OpSearch, &req)
	if err == nil {
		event.Total, event.Returned = resp.Total, len(resp.Results)
	}
	h.finish(r.Context(), event, hit, err, start)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GeneCounts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req model.SearchRequest
	if !h.decode(w, r, &req) {
		return
	}
	counts, hit, err := cache.GetOrCompute(r.Context(), h.cache, query.OpGeneCounts, &req, func(ctx context.Context) (model.GeneCounts, error) {
		return h.engine.GeneCounts(ctx, &req)
	})
	event := searchEvent(r.Context(), query.OpGeneCounts, &req)
	if err == nil {
		event.Total, event.Returned = len(counts), len(counts)
	}
	h.finish(r.Context(), event, hit, err, start)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if counts == nil {
		counts = model.GeneCounts{}
	}
	h.writeJSON(w, http.StatusOK, counts)
}

func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req model.LookupRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, hit, err := cache.GetOrCompute(r.Context(), h.cache, query.OpLookup, &req, func(ctx context.Context) (*model.Result, error) {
		return h.engine.Lookup(ctx, &req)
	})
	event := lookupEvent(r.Context(), query.OpLookup, &req)
	if err == nil {
		event.Total, event.Returned = 1, 1
	}
	h.finish(r.Context(), event, hit, err, start)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) MultiLookup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req model.LookupRequest
	if !h.decode(w, r, &req) {
		return
	}
	results, hit, err := cache.GetOrCompute(r.Context(), h.cache, query.OpMultiLookup, &req, func(ctx context.Context) ([]*model.Result, error) {
		return h.engine.MultiLookup(ctx, &req)
	})
	event := lookupEvent(r.Context(), query.OpMultiLookup, &req)
	if err == nil {
		event.Total, event.Returned = len(results), len(results)
	}
	h.finish(r.Context(), event, hit, err, start)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if results == nil {
		results = []*model.Result{}
	}
	h.writeJSON(w, http.StatusOK, results)
}

// ReloadCatalog reloads every annotation catalog and drops cached results.
// A failed reload keeps the catalogs that were being served.
func (h *Handler) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	st, err := h.catalogs.Load(r.Context())
	if err != nil {
		h.logger.Error("catalog reload failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "catalog reload failed: " + err.Error()})
		return
	}
	ObserveCatalogs(h.metrics, st)
	if h.cache != nil {
		if _, err := h.cache.Invalidate(r.Context()); err != nil {
			h.logger.Warn("cache invalidation after reload failed", "error", err)
		}
	}
	h.collector.TrackCatalog(analytics.CatalogEvent{
		Loaded:    len(st.Loaded),
		Failed:    len(st.Failed),
		LatencyMs: time.Since(start).Milliseconds(),
	})

	loaded := make([]string, len(st.Loaded))
	for i, k := range st.Loaded {
		loaded[i] = k.String()
	}
	failed := make(map[string]string, len(st.Failed))
	for k, err := range st.Failed {
		failed[k.String()] = err.Error()
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"loaded": loaded, "failed": failed})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching is disabled"})
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cache invalidation failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

// ObserveCatalogs publishes which catalogs are being served.
func ObserveCatalogs(m *metrics.Metrics, st globals.Status) {
	if m == nil {
		return
	}
	for _, k := range st.Loaded {
		m.CatalogLoaded.WithLabelValues(string(k.Build), string(k.DataType)).Set(1)
	}
	for k := range st.Failed {
		m.CatalogLoaded.WithLabelValues(string(k.Build), string(k.DataType)).Set(0)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return false
		}
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

func searchEvent(ctx context.Context, op string, req *model.SearchRequest) analytics.SearchEvent {
	event := analytics.SearchEvent{
		Operation:       op,
		GenomeVersion:   req.GenomeVersion,
		InheritanceMode: req.InheritanceMode,
		RequestID:       middleware.GetRequestID(ctx),
	}
	projects := map[string]bool{}
	families := map[string]bool{}
	for _, dt := range model.DataTypes {
		samples, ok := req.SampleData[dt]
		if !ok {
			continue
		}
		event.DataTypes = append(event.DataTypes, string(dt))
		for _, s := range samples {
			projects[s.ProjectGUID] = true
			families[s.FamilyGUID] = true
		}
	}
	event.Projects, event.Families = len(projects), len(families)
	return event
}

func lookupEvent(ctx context.Context, op string, req *model.LookupRequest) analytics.SearchEvent {
	event := analytics.SearchEvent{
		Operation:     op,
		GenomeVersion: req.GenomeVersion,
		RequestID:     middleware.GetRequestID(ctx),
	}
	if req.DataType != "" {
		event.DataTypes = []string{string(req.DataType)}
	}
	return event
}

// finish logs a served request and publishes its analytics event.
func (h *Handler) finish(ctx context.Context, event analytics.SearchEvent, hit bool, err error, start time.Time) {
	event.LatencyMs = time.Since(start).Milliseconds()
	event.CacheHit = hit
	event.Outcome = query.Outcome(err)
	switch {
	case err != nil:
		event.Type = analytics.EventFailed
	case event.Total == 0:
		event.Type = analytics.EventZeroResult
	case hit:
		event.Type = analytics.EventCacheHit
	default:
		event.Type = analytics.EventCacheMiss
	}
	h.collector.TrackSearch(event)

	if err != nil {
		return
	}
	logger.FromContext(ctx).Info("request completed",
		"operation", event.Operation,
		"total", event.Total,
		"returned", event.Returned,
		"cache_hit", hit,
		"latency_ms", event.LatencyMs,
	)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to its status; internal failures are reported
// without their detail.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": apperrors.Message(err)})
}
