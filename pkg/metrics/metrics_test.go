package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.SearchQueriesTotal.WithLabelValues("search", "ok").Inc()
	m.SearchQueriesTotal.WithLabelValues("search", "ok").Inc()
	m.CatalogLoaded.WithLabelValues("GRCh38", "SNV_INDEL").Set(1)

	if got := testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("search", "ok")); got != 2 {
		t.Errorf("search ok counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CatalogLoaded.WithLabelValues("GRCh38", "SNV_INDEL")); got != 1 {
		t.Errorf("catalog gauge = %v, want 1", got)
	}
}
