// Package query runs search, gene count and lookup requests end to end:
// validation, table resolution, the filter pipeline of every data type,
// merging, sorting and top-K extraction.
package query

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/globals"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/loader"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/table"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/sorting"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/tracing"
)

// Operation names used in metrics, spans and cache keys.
const (
	OpSearch      = "search"
	OpGeneCounts  = "gene_counts"
	OpLookup      = "lookup"
	OpMultiLookup = "multi_lookup"
)

// Engine executes requests against a table store.
type Engine struct {
	catalogs *globals.Cache
	loader   *loader.Loader
	cfg      config.SearchConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates an engine. m may be nil.
func New(catalogs *globals.Cache, ld *loader.Loader, cfg config.SearchConfig, m *metrics.Metrics) *Engine {
	if cfg.MaxPartitions <= 0 || cfg.MaxPartitions > table.MaxPartitions {
		cfg.MaxPartitions = table.MaxPartitions
	}
	return &Engine{
		catalogs: catalogs,
		loader:   ld,
		cfg:      cfg,
		metrics:  m,
		logger:   logger.WithComponent("query-engine"),
	}
}

// Search returns the top rows of a search and the number of matching rows.
func (e *Engine) Search(ctx context.Context, req *model.SearchRequest) (*model.SearchResponse, error) {
	var resp *model.SearchResponse
	err := e.run(ctx, OpSearch, func(ctx context.Context) error {
		k, err := e.numResults(req)
		if err != nil {
			return err
		}
		res, err := e.execute(ctx, req)
		if err != nil {
			return err
		}
		top, total, err := table.TopK(ctx,
			table.From("results", res.rows).WithPartitions(e.cfg.MaxPartitions).Observe(e.observer("ALL")),
			k, sorting.LessRow)
		if err != nil {
			return err
		}
		resp = &model.SearchResponse{Results: make([]model.ResultRow, len(top)), Total: total}
		for i, r := range top {
			resp.Results[i] = res.formatter.Row(r)
		}
		if e.metrics != nil {
			e.metrics.SearchResultsCount.WithLabelValues(modeLabel(req.InheritanceMode)).Observe(float64(total))
		}
		logger.FromContext(ctx).Info("search completed",
			"cohort", res.cohort,
			"mode", modeLabel(req.InheritanceMode),
			"total", total,
			"returned", len(top),
		)
		return nil
	})
	return resp, err
}

// GeneCounts aggregates every matching row per gene.
func (e *Engine) GeneCounts(ctx context.Context, req *model.SearchRequest) (model.GeneCounts, error) {
	var counts model.GeneCounts
	err := e.run(ctx, OpGeneCounts, func(ctx context.Context) error {
		res, err := e.execute(ctx, req)
		if err != nil {
			return err
		}
		counts = sorting.GeneCounts(res.rows)
		logger.FromContext(ctx).Info("gene counts completed", "cohort", res.cohort, "genes", len(counts))
		return nil
	})
	return counts, err
}

func (e *Engine) numResults(req *model.SearchRequest) (int, error) {
	k := req.NumResults
	if k == 0 {
		k = e.cfg.DefaultNumResults
	}
	if k < 0 {
		return 0, apperrors.Invalidf("num_results must be positive")
	}
	if e.cfg.MaxNumResults > 0 && k > e.cfg.MaxNumResults {
		return 0, apperrors.Invalidf("num_results %d exceeds the maximum of %d", k, e.cfg.MaxNumResults)
	}
	return k, nil
}

// run enforces the query timeout and records the outcome of an operation.
func (e *Engine) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, op, logger.RequestID(ctx))
	err := resilience.WithTimeout(ctx, e.cfg.QueryTimeout, op, fn)
	if errors.Is(err, resilience.ErrDeadline) {
		err = apperrors.Newf(apperrors.ErrTimeout, http.StatusGatewayTimeout,
			"%s exceeded the query timeout of %v", op, e.cfg.QueryTimeout)
	}
	span.SetAttr("outcome", Outcome(err))
	span.End()
	span.Log()

	if e.metrics != nil {
		e.metrics.SearchQueriesTotal.WithLabelValues(op, Outcome(err)).Inc()
		e.metrics.SearchLatency.WithLabelValues(op, "miss").Observe(time.Since(start).Seconds())
	}
	if err != nil {
		log := logger.FromContext(ctx)
		if apperrors.HTTPStatusCode(err) >= http.StatusInternalServerError {
			log.Error("query failed", "operation", op, "error", err)
		} else {
			log.Info("query rejected", "operation", op, "error", err)
		}
	}
	return err
}

// Outcome classifies an error for metrics.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch apperrors.HTTPStatusCode(err) {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusGatewayTimeout:
		return "timeout"
	}
	return "error"
}

func modeLabel(mode string) string {
	if mode == "" {
		return "none"
	}
	return mode
}

func (e *Engine) observer(dt model.DataType) table.Observer {
	return func(st table.Stage) {
		if e.metrics != nil {
			e.metrics.StageDuration.WithLabelValues(string(dt), st.Name).Observe(st.Elapsed.Seconds())
			e.metrics.StageRows.WithLabelValues(string(dt), st.Name).Observe(float64(st.RowsOut))
		}
		e.logger.Debug("stage finished",
			"data_type", dt,
			"plan", st.Plan,
			"stage", st.Name,
			"rows_in", st.RowsIn,
			"rows_out", st.RowsOut,
			"elapsed_ms", st.Elapsed.Milliseconds(),
		)
	}
}
