// Command searcher serves variant search, gene counts and variant lookups
// over HTTP against a backing table store.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/cache"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/globals"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/handler"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/loader"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/query"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/tracing"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	tracing.SetEnabled(cfg.Tracing.Enabled)
	slog.Info("starting search service", "port", cfg.Server.Port, "store", cfg.Store.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	builds, dataTypes, err := globals.ParseScope(cfg.Search.GenomeVersions, cfg.Search.DataTypes)
	if err != nil {
		slog.Error("invalid search config", "error", err)
		os.Exit(1)
	}

	src, err := store.Open(ctx, cfg.Store)
	if err != nil {
		slog.Error("failed to open table store", "error", err)
		os.Exit(1)
	}
	slog.Info("table store opened", "source", src.String())

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, nil)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	catalogs := globals.New(src, builds, dataTypes)
	st, err := catalogs.Load(ctx)
	if err != nil {
		slog.Error("failed to load annotation catalogs", "error", err)
		os.Exit(1)
	}
	handler.ObserveCatalogs(m, st)
	for k, err := range st.Failed {
		slog.Warn("catalog unavailable until reload", "catalog", k.String(), "error", err)
	}

	engine := query.New(catalogs, loader.New(src), cfg.Search, m)

	var queryCache *cache.QueryCache
	redisClient, err := pkgredis.NewClient(cfg.Redis, "variant-search")
	if err != nil {
		slog.Warn("redis unavailable, result caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis, m)
		slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	var collector *analytics.Collector
	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
		collector.Start(ctx)
		defer collector.Close()
		slog.Info("search events published", "topic", cfg.Kafka.Topics.SearchEvents)
	}

	checker := health.NewChecker()
	checker.Register("catalogs", func(ctx context.Context) health.ComponentHealth {
		loaded := 0
		for _, k := range catalogs.Keys() {
			if _, err := catalogs.Catalog(k.Build, k.DataType); err == nil {
				loaded++
			}
		}
		switch {
		case loaded == 0:
			return health.ComponentHealth{Status: health.StatusDown, Message: "no catalog loaded"}
		case loaded < len(catalogs.Keys()):
			return health.ComponentHealth{Status: health.StatusDegraded, Message: fmt.Sprintf("%d of %d catalogs loaded", loaded, len(catalogs.Keys()))}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d catalogs loaded", loaded)}
	})
	if redisClient != nil {
		checker.RegisterOptional("redis", health.PingCheck(redisClient.Ping))
	}

	h := handler.New(engine, catalogs, queryCache, collector, m)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	// The query timeout is enforced by the engine; the server timeout only
	// guards the response write.
	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout + 5*time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}

