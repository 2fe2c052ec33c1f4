package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
	cli "github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/globals"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/loader"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/query"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/logger"
)

const tableSuffix = ".ndjson.bgz"

func runSearch(c *cli.Context) error {
	var req model.SearchRequest
	if err := readJSONC(c.String("request"), &req); err != nil {
		return cli.Exit(err, 2)
	}
	engine, err := newEngine(c)
	if err != nil {
		return err
	}
	resp, err := engine.Search(c.Context, &req)
	if err != nil {
		return failed(query.OpSearch, err)
	}
	return writeResult(c, resp)
}

func runGeneCounts(c *cli.Context) error {
	var req model.SearchRequest
	if err := readJSONC(c.String("request"), &req); err != nil {
		return cli.Exit(err, 2)
	}
	engine, err := newEngine(c)
	if err != nil {
		return err
	}
	counts, err := engine.GeneCounts(c.Context, &req)
	if err != nil {
		return failed(query.OpGeneCounts, err)
	}
	if counts == nil {
		counts = model.GeneCounts{}
	}
	return writeResult(c, counts)
}

func runLookup(c *cli.Context) error {
	var req model.LookupRequest
	if err := readJSONC(c.String("request"), &req); err != nil {
		return cli.Exit(err, 2)
	}
	engine, err := newEngine(c)
	if err != nil {
		return err
	}
	if c.Bool("multi") {
		results, err := engine.MultiLookup(c.Context, &req)
		if err != nil {
			return failed(query.OpMultiLookup, err)
		}
		if results == nil {
			results = []*model.Result{}
		}
		return writeResult(c, results)
	}
	result, err := engine.Lookup(c.Context, &req)
	if err != nil {
		return failed(query.OpLookup, err)
	}
	return writeResult(c, result)
}

func runImport(c *cli.Context) error {
	setupLogging(c.String("log-level"))
	out := c.String("output")
	if !strings.HasSuffix(out, tableSuffix) {
		return cli.Exit(fmt.Sprintf("output %s must end in %s", out, tableSuffix), 2)
	}
	rows, err := readRows(c.String("input"))
	if err != nil {
		return cli.Exit(err, 2)
	}

	var buf bytes.Buffer
	tw := store.NewTableWriter(&buf)
	for _, row := range rows {
		if err := tw.Write(row); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("finishing table: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("creating table directory: %w", err)
	}
	if err := atomic.WriteFile(out, &buf); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}

	if path := c.String("globals"); path != "" {
		var g model.TableGlobals
		if err := readJSONC(path, &g); err != nil {
			return cli.Exit(err, 2)
		}
		data, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("encoding table globals: %w", err)
		}
		if err := atomic.WriteFile(store.TableGlobalsPath(out), bytes.NewReader(data)); err != nil {
			return fmt.Errorf("writing table globals: %w", err)
		}
	}

	slog.Info("table written", "path", out, "rows", tw.Rows())
	fmt.Fprintf(c.App.Writer, "wrote %d rows to %s\n", tw.Rows(), out)
	return nil
}

// newEngine loads the catalogs of the configured store, or of --root when
// given.
func newEngine(c *cli.Context) (*query.Engine, error) {
	setupLogging(c.String("log-level"))
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, cli.Exit(err, 2)
	}
	if root := c.String("root"); root != "" {
		cfg.Store.Driver = "fs"
		cfg.Store.Root = root
	}
	builds, dataTypes, err := globals.ParseScope(cfg.Search.GenomeVersions, cfg.Search.DataTypes)
	if err != nil {
		return nil, cli.Exit(err, 2)
	}
	src, err := store.Open(c.Context, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening table store: %w", err)
	}
	catalogs := globals.New(src, builds, dataTypes)
	if _, err := catalogs.Load(c.Context); err != nil {
		return nil, fmt.Errorf("loading catalogs: %w", err)
	}
	return query.New(catalogs, loader.New(src), cfg.Search, nil), nil
}

func setupLogging(level string) {
	slog.SetDefault(logger.New(os.Stderr, level, "text"))
}

// failed reports request errors with exit code 2 and everything else with 1.
func failed(op string, err error) error {
	code := 1
	if status := apperrors.HTTPStatusCode(err); status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		code = 2
	}
	return cli.Exit(fmt.Sprintf("%s failed: %v", op, err), code)
}

func readJSONC(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("invalid JSONC in %s: %w", path, err)
	}
	if err := json.Unmarshal(standardized, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// readRows accepts a JSON array or one JSON value per line.
func readRows(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		standardized, err := hujson.Standardize(data)
		if err != nil {
			return nil, fmt.Errorf("invalid JSONC in %s: %w", path, err)
		}
		var rows []json.RawMessage
		if err := json.Unmarshal(standardized, &rows); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		return rows, nil
	}

	var rows []json.RawMessage
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 1<<20), 64<<20)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		if !json.Valid(b) {
			return nil, fmt.Errorf("%s line %d: invalid JSON", path, line)
		}
		rows = append(rows, json.RawMessage(append([]byte(nil), b...)))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return rows, nil
}

// writeResult writes v as indented JSON to --output, replacing the file
// atomically, or to stdout.
func writeResult(c *cli.Context, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	data = append(data, '\n')
	out := c.String("output")
	if out == "" || out == "-" {
		_, err := c.App.Writer.Write(data)
		return err
	}
	if err := atomic.WriteFile(out, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	return nil
}
