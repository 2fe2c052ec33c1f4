// Command vsearch runs search, gene count and lookup requests against a
// table root without a running service, and builds tables for that root.
//
// Usage:
//
//	vsearch --root /data/tables search -r request.jsonc -o results.json
//	vsearch --root /data/tables lookup -r lookup.jsonc --multi
//	vsearch import -i rows.jsonc -g globals.jsonc -o GRCh38/SNV_INDEL/projects/WES/P1.ndjson.bgz
//	vsearch load -r request.jsonc --url http://localhost:5000 --concurrency 20 --duration 1m
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	requestFlag := &cli.StringFlag{
		Name:     "request",
		Aliases:  []string{"r"},
		Usage:    "Request file (JSON, comments and trailing commas allowed)",
		Required: true,
		Category: "Required",
	}
	outputFlag := &cli.StringFlag{
		Name:     "output",
		Aliases:  []string{"o"},
		Usage:    "Where to write the JSON result, defaults to stdout",
		Category: "Optional",
	}

	return &cli.App{
		Name:            "vsearch",
		Usage:           "Run variant searches against a table root",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Service configuration file (YAML) for query limits and the table store",
				Category: "Optional",
			},
			&cli.StringFlag{
				Name:     "root",
				Usage:    "Local table root, overrides the configured store",
				EnvVars:  []string{"VS_STORE_ROOT"},
				Category: "Optional",
			},
			&cli.StringFlag{
				Name:     "log-level",
				Value:    "warn",
				Usage:    "Log level written to stderr: debug, info, warn or error",
				Category: "Optional",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "search",
				Usage:  "Run a search request and write the top results",
				Flags:  []cli.Flag{requestFlag, outputFlag},
				Action: runSearch,
			},
			{
				Name:   "gene-counts",
				Usage:  "Run a search request and write per-gene result counts",
				Flags:  []cli.Flag{requestFlag, outputFlag},
				Action: runGeneCounts,
			},
			{
				Name:  "lookup",
				Usage: "Look up the annotations of variant ids",
				Flags: []cli.Flag{
					requestFlag,
					outputFlag,
					&cli.BoolFlag{
						Name:     "multi",
						Usage:    "Return every variant found instead of exactly one",
						Category: "Optional",
					},
				},
				Action: runLookup,
			},
			{
				Name:  "import",
				Usage: "Write rows from a JSON array or NDJSON file as a compressed table",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Rows as a JSON array (comments allowed) or one JSON object per line",
						Required: true,
						Category: "Required",
					},
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "Table path ending in .ndjson.bgz",
						Required: true,
						Category: "Required",
					},
					&cli.StringFlag{
						Name:     "globals",
						Aliases:  []string{"g"},
						Usage:    "Table globals file written next to the table",
						Category: "Optional",
					},
				},
				Action: runImport,
			},
			{
				Name:  "load",
				Usage: "Replay a request against a running searcher and report latencies",
				Flags: []cli.Flag{
					requestFlag,
					&cli.StringFlag{
						Name:     "url",
						Value:    "http://localhost:5000",
						Usage:    "Searcher base URL",
						Category: "Optional",
					},
					&cli.StringFlag{
						Name:     "operation",
						Value:    "search",
						Usage:    "Endpoint to call: search, gene_counts, lookup or multi_lookup",
						Category: "Optional",
					},
					&cli.IntFlag{
						Name:     "concurrency",
						Value:    10,
						Usage:    "Number of concurrent workers",
						Category: "Optional",
					},
					&cli.DurationFlag{
						Name:     "duration",
						Value:    30 * time.Second,
						Usage:    "How long to keep sending requests",
						Category: "Optional",
					},
					&cli.DurationFlag{
						Name:     "timeout",
						Value:    30 * time.Second,
						Usage:    "Per request timeout",
						Category: "Optional",
					},
				},
				Action: runLoad,
			},
		},
	}
}
