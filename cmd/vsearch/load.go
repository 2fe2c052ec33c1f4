package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	cli "github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

// loadStats collects the outcome of every request of a load run.
type loadStats struct {
	total       atomic.Int64
	failed      atomic.Int64
	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
}

func newLoadStats() *loadStats {
	return &loadStats{
		latencies:   make([]time.Duration, 0, 4096),
		statusCodes: make(map[int]int64),
	}
}

func (s *loadStats) record(d time.Duration, status int, err error) {
	s.total.Add(1)
	if err != nil || status >= http.StatusBadRequest {
		s.failed.Add(1)
	}
	if err != nil {
		return
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.statusCodes[status]++
	s.mu.Unlock()
}

// runLoad replays one request body against a running searcher from
// several workers for a fixed duration and prints latency percentiles.
func runLoad(c *cli.Context) error {
	setupLogging(c.String("log-level"))
	var req json.RawMessage
	if err := readJSONC(c.String("request"), &req); err != nil {
		return cli.Exit(err, 2)
	}
	endpoint := strings.TrimSuffix(c.String("url"), "/") + "/" + c.String("operation")
	workers := c.Int("concurrency")
	if workers < 1 {
		return cli.Exit("concurrency must be positive", 2)
	}

	client := &http.Client{
		Timeout: c.Duration("timeout"),
		Transport: &http.Transport{
			MaxIdleConns:        workers * 2,
			MaxIdleConnsPerHost: workers * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	stats, err := replay(c.Context, client, endpoint, req, workers, c.Duration("duration"))
	if err != nil {
		return err
	}
	printLoadReport(c.App.Writer, endpoint, stats, c.Duration("duration"))
	if stats.total.Load() == 0 {
		return cli.Exit("no request completed, is the searcher running?", 1)
	}
	return nil
}

func replay(ctx context.Context, client *http.Client, endpoint string, body []byte, workers int, duration time.Duration) (*loadStats, error) {
	stats := newLoadStats()
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for ctx.Err() == nil {
				req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
				if err != nil {
					return fmt.Errorf("creating request: %w", err)
				}
				req.Header.Set("Content-Type", "application/json")

				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					stats.record(elapsed, 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.record(elapsed, resp.StatusCode, nil)
			}
			return nil
		})
	}
	return stats, g.Wait()
}

func printLoadReport(w io.Writer, endpoint string, stats *loadStats, duration time.Duration) {
	total := stats.total.Load()
	failed := stats.failed.Load()

	fmt.Fprintf(w, "Target:          %s\n", endpoint)
	fmt.Fprintf(w, "Total Requests:  %d\n", total)
	fmt.Fprintf(w, "Failed:          %d\n", failed)
	if total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(failed)/float64(total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	stats.mu.Lock()
	latencies := append([]time.Duration(nil), stats.latencies...)
	codes := make([]int, 0, len(stats.statusCodes))
	counts := make(map[int]int64, len(stats.statusCodes))
	for code, n := range stats.statusCodes {
		codes = append(codes, code)
		counts[code] = n
	}
	stats.mu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Min:    %s\n", latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", sum/time.Duration(len(latencies)))
		fmt.Fprintf(w, "P50:    %s\n", latencyPercentile(latencies, 50))
		fmt.Fprintf(w, "P95:    %s\n", latencyPercentile(latencies, 95))
		fmt.Fprintf(w, "P99:    %s\n", latencyPercentile(latencies, 99))
		fmt.Fprintf(w, "Max:    %s\n", latencies[len(latencies)-1])
	}

	sort.Ints(codes)
	if len(codes) > 0 {
		fmt.Fprintln(w)
		for _, code := range codes {
			fmt.Fprintf(w, "  %d: %d\n", code, counts[code])
		}
	}
}

func latencyPercentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
