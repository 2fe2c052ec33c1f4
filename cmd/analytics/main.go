// Command analytics starts the search analytics service.
//
// It consumes search events from Kafka, aggregates them in memory (request
// counts per operation and data type, latency percentiles, cache hit rate,
// zero-result inheritance modes), snapshots the aggregates to PostgreSQL and
// serves them at GET /api/v1/analytics/stats and /api/v1/analytics/snapshots.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/postgres"
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
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg := analytics.NewAggregator(nil)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents, analytics.HandleEvent(agg))
	agg.SetConsumer(consumer)

	go func() {
		if err := agg.Start(ctx); err != nil {
			slog.Error("aggregator error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.SearchEvents)

	checker := health.NewChecker()

	// Snapshots are optional; live stats are served without PostgreSQL.
	var snapshots analytics.SnapshotLister
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, snapshots disabled", "error", err)
	} else {
		defer db.Close()
		snapStore, err := aggregator.NewStore(ctx, db)
		if err != nil {
			slog.Error("failed to prepare snapshot store", "error", err)
			os.Exit(1)
		}
		if latest, err := snapStore.LatestSnapshot(ctx); err != nil {
			slog.Warn("reading latest snapshot failed", "error", err)
		} else if latest != nil {
			slog.Info("previous snapshot found",
				"captured_at", latest.CapturedAt,
				"total_requests", latest.Stats.TotalRequests,
			)
		}
		snapStore.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
		snapshots = snapStore
		checker.RegisterOptional("postgres", health.PingCheck(db.Ping))
	}

	analyticsHandler := analytics.NewHandler(agg, snapshots)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics/stats", analyticsHandler.Stats)
	mux.HandleFunc("GET /api/v1/analytics/snapshots", analyticsHandler.Snapshots)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
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

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
