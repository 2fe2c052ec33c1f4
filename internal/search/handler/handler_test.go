package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/cache"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/globals"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/metrics"
)

type fakeEngine struct {
	mu       sync.Mutex
	calls    int
	err      error
	response *model.SearchResponse
	lookup   map[string]*model.Result
}

func (f *fakeEngine) called() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeEngine) Search(context.Context, *model.SearchRequest) (*model.SearchResponse, error) {
	f.called()
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeEngine) GeneCounts(context.Context, *model.SearchRequest) (model.GeneCounts, error) {
	f.called()
	if f.err != nil {
		return nil, f.err
	}
	return model.GeneCounts{"G1": {Total: 2, Families: map[string]int{"F1": 2}}}, nil
}

func (f *fakeEngine) Lookup(_ context.Context, req *model.LookupRequest) (*model.Result, error) {
	f.called()
	if r, ok := f.lookup[req.VariantIDs[0]]; ok {
		return r, nil
	}
	return nil, apperrors.NotFoundf("variant %s not found", req.VariantIDs[0])
}

func (f *fakeEngine) MultiLookup(_ context.Context, req *model.LookupRequest) ([]*model.Result, error) {
	f.called()
	var out []*model.Result
	for _, id := range req.VariantIDs {
		if r, ok := f.lookup[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeCatalogs struct {
	status globals.Status
	err    error
}

func (f *fakeCatalogs) Load(context.Context) (globals.Status, error) { return f.status, f.err }

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, redis.Nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) FlushByPattern(context.Context, string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.data))
	m.data = map[string][]byte{}
	return n, nil
}

const searchBody = `{
	"genome_version": "GRCh38",
	"sample_data": {"SNV_INDEL": [{"sample_id": "S1", "individual_guid": "I1", "family_guid": "F1", "project_guid": "P1", "sample_type": "WES", "affected": "A"}]},
	"num_results": 10
}`

func serve(t *testing.T, h *Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding error body %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestSearch(t *testing.T) {
	engine := &fakeEngine{response: &model.SearchResponse{
		Results: []model.ResultRow{{Single: &model.Result{VariantID: "1-100-A-G"}}},
		Total:   1,
	}}
	h := New(engine, &fakeCatalogs{}, nil, nil, nil)
	rec := serve(t, h, http.MethodPost, "/search", searchBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var got model.SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Total != 1 || len(got.Results) != 1 || got.Results[0].Single.VariantID != "1-100-A-G" {
		t.Errorf("unexpected response %s", rec.Body.String())
	}
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		err     error
		status  int
		message string
	}{
		{
			name:    "malformed body",
			body:    `{"sample_data":`,
			status:  http.StatusBadRequest,
			message: "invalid request body",
		},
		{
			name:    "missing samples",
			body:    searchBody,
			err:     apperrors.New(apperrors.ErrMissingSamples, http.StatusBadRequest, "The following samples are available in seqr but missing the loaded data: S1"),
			status:  http.StatusBadRequest,
			message: "missing the loaded data: S1",
		},
		{
			name:    "timeout",
			body:    searchBody,
			err:     apperrors.New(apperrors.ErrTimeout, http.StatusGatewayTimeout, "search exceeded the query timeout"),
			status:  http.StatusGatewayTimeout,
			message: "query timeout",
		},
		{
			name:    "internal detail hidden",
			body:    searchBody,
			err:     fmt.Errorf("reading table: %w", errors.New("disk on fire")),
			status:  http.StatusInternalServerError,
			message: apperrors.ErrInternal.Error(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(&fakeEngine{err: tt.err}, &fakeCatalogs{}, nil, nil, nil)
			rec := serve(t, h, http.MethodPost, "/search", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if msg := errorMessage(t, rec); !strings.Contains(msg, tt.message) {
				t.Errorf("message %q does not contain %q", msg, tt.message)
			}
		})
	}
}

func TestSearchUsesCache(t *testing.T) {
	engine := &fakeEngine{response: &model.SearchResponse{Results: []model.ResultRow{}, Total: 0}}
	qc := cache.New(&memStore{data: map[string][]byte{}}, config.RedisConfig{CacheTTL: time.Minute}, nil)
	h := New(engine, &fakeCatalogs{}, qc, nil, nil)

	for i := 0; i < 2; i++ {
		if rec := serve(t, h, http.MethodPost, "/search", searchBody); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}
	if engine.calls != 1 {
		t.Errorf("engine ran %d times, want 1", engine.calls)
	}

	rec := serve(t, h, http.MethodGet, "/api/v1/cache/stats", "")
	var stats cache.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cache.Stats{Hits: 1, Misses: 1, Total: 2, HitRate: 0.5}, stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}

	if rec := serve(t, h, http.MethodPost, "/api/v1/cache/invalidate", ""); rec.Code != http.StatusOK {
		t.Fatalf("invalidate status = %d", rec.Code)
	}
	serve(t, h, http.MethodPost, "/search", searchBody)
	if engine.calls != 2 {
		t.Errorf("engine ran %d times after invalidation, want 2", engine.calls)
	}
}

func TestCacheEndpointsDisabled(t *testing.T) {
	h := New(&fakeEngine{}, &fakeCatalogs{}, nil, nil, nil)
	if rec := serve(t, h, http.MethodPost, "/api/v1/cache/invalidate", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("invalidate status = %d", rec.Code)
	}
	rec := serve(t, h, http.MethodGet, "/api/v1/cache/stats", "")
	if !strings.Contains(rec.Body.String(), "disabled") {
		t.Errorf("stats body = %s", rec.Body.String())
	}
}

func TestGeneCounts(t *testing.T) {
	h := New(&fakeEngine{}, &fakeCatalogs{}, nil, nil, nil)
	rec := serve(t, h, http.MethodPost, "/gene_counts", searchBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got model.GeneCounts
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := model.GeneCounts{"G1": {Total: 2, Families: map[string]int{"F1": 2}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("gene counts mismatch (-want +got):\n%s", diff)
	}
}

func TestLookup(t *testing.T) {
	engine := &fakeEngine{lookup: map[string]*model.Result{
		"1-100-A-G": {VariantID: "1-100-A-G"},
		"1-200-C-T": {VariantID: "1-200-C-T"},
	}}
	h := New(engine, &fakeCatalogs{}, nil, nil, nil)

	rec := serve(t, h, http.MethodPost, "/lookup", `{"genome_version":"GRCh38","variant_ids":["1-100-A-G"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = serve(t, h, http.MethodPost, "/lookup", `{"genome_version":"GRCh38","variant_ids":["1-999-A-G"]}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing variant status = %d", rec.Code)
	}

	rec = serve(t, h, http.MethodPost, "/multi_lookup", `{"genome_version":"GRCh38","variant_ids":["1-200-C-T","1-999-A-G","1-100-A-G"]}`)
	var got []model.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, r := range got {
		ids = append(ids, r.VariantID)
	}
	if diff := cmp.Diff([]string{"1-200-C-T", "1-100-A-G"}, ids); diff != "" {
		t.Errorf("multi lookup mismatch (-want +got):\n%s", diff)
	}

	rec = serve(t, h, http.MethodPost, "/multi_lookup", `{"genome_version":"GRCh38","variant_ids":["1-999-A-G"]}`)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("empty multi lookup body = %s", rec.Body.String())
	}
}

func TestReloadCatalog(t *testing.T) {
	snv := globals.Key{Build: genome.GRCh38, DataType: model.SNVIndel}
	mito := globals.Key{Build: genome.GRCh38, DataType: model.Mito}
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	catalogs := &fakeCatalogs{status: globals.Status{
		Loaded: []globals.Key{snv},
		Failed: map[globals.Key]error{mito: errors.New("catalog table missing")},
	}}
	store := &memStore{data: map[string][]byte{"result:search:abc": []byte("{}")}}
	h := New(&fakeEngine{}, catalogs, cache.New(store, config.RedisConfig{}, nil), nil, m)

	rec := serve(t, h, http.MethodPost, "/api/v1/catalog/reload", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got struct {
		Loaded []string          `json:"loaded"`
		Failed map[string]string `json:"failed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"GRCh38/SNV_INDEL"}, got.Loaded); diff != "" {
		t.Errorf("loaded mismatch (-want +got):\n%s", diff)
	}
	if got.Failed["GRCh38/MITO"] != "catalog table missing" {
		t.Errorf("failed = %v", got.Failed)
	}
	if v := testutil.ToFloat64(m.CatalogLoaded.WithLabelValues("GRCh38", "SNV_INDEL")); v != 1 {
		t.Errorf("SNV_INDEL gauge = %v", v)
	}
	if v := testutil.ToFloat64(m.CatalogLoaded.WithLabelValues("GRCh38", "MITO")); v != 0 {
		t.Errorf("MITO gauge = %v", v)
	}
	if len(store.data) != 0 {
		t.Errorf("reload left %d cached results", len(store.data))
	}

	catalogs.err = errors.New("no annotation catalog could be loaded")
	if rec := serve(t, h, http.MethodPost, "/api/v1/catalog/reload", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("failed reload status = %d", rec.Code)
	}
}
