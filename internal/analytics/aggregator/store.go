// Package aggregator persists periodic snapshots of the aggregated search
// analytics to PostgreSQL.
package aggregator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/postgres"
)

// Schema creates the snapshot table.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS variant_search_snapshots (
		id             BIGSERIAL PRIMARY KEY,
		total_requests BIGINT NOT NULL,
		data           JSONB NOT NULL,
		captured_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS variant_search_snapshots_captured_at
		ON variant_search_snapshots (captured_at DESC)`,
}

// Store persists aggregated analytics snapshots.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore creates the store and applies its schema.
func NewStore(ctx context.Context, client *postgres.Client) (*Store, error) {
	if err := client.Migrate(ctx, Schema...); err != nil {
		return nil, fmt.Errorf("migrating snapshot schema: %w", err)
	}
	return &Store{
		db:     client.DB,
		logger: slog.Default().With("component", "analytics-store"),
	}, nil
}

// SaveSnapshot persists a stats snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO variant_search_snapshots (total_requests, data, captured_at) VALUES ($1, $2, $3)`,
		stats.TotalRequests, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}

	s.logger.Info("analytics snapshot saved",
		"total_requests", stats.TotalRequests,
		"failed", stats.FailedCount,
	)
	return nil
}

// LatestSnapshot loads the most recent snapshot, or nil if none exists.
func (s *Store) LatestSnapshot(ctx context.Context) (*analytics.Snapshot, error) {
	var (
		data []byte
		snap analytics.Snapshot
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, captured_at FROM variant_search_snapshots ORDER BY captured_at DESC LIMIT 1`,
	).Scan(&data, &snap.CapturedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap.Stats); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &snap, nil
}

// ListSnapshots returns the last limit snapshots, newest first.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]analytics.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data, captured_at FROM variant_search_snapshots ORDER BY captured_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []analytics.Snapshot
	for rows.Next() {
		var (
			data []byte
			snap analytics.Snapshot
		)
		if err := rows.Scan(&data, &snap.CapturedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		if err := json.Unmarshal(data, &snap.Stats); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "error", err)
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// StartPeriodicSave snapshots the aggregator every interval and once more
// when ctx is cancelled.
func (s *Store) StartPeriodicSave(ctx context.Context, agg *analytics.Aggregator, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
					s.logger.Error("periodic snapshot failed", "error", err)
				}
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := s.SaveSnapshot(shutdownCtx, agg.Stats()); err != nil {
					s.logger.Error("final snapshot failed", "error", err)
				}
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval)
}
