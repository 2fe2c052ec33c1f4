package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/biogo/hts/bgzf"
)

const maxLineBytes = 64 << 20

// ScanTable streams the rows of a bgzipped NDJSON table, decoding each into
// a fresh T and handing it to fn. Scanning stops at the first error from fn
// and checks ctx between rows in batches.
func ScanTable[T any](ctx context.Context, src Source, name string, fn func(T) error) error {
	rc, err := src.Open(ctx, name)
	if err != nil {
		return err
	}
	defer rc.Close()

	bg, err := bgzf.NewReader(rc, 1)
	if err != nil {
		return fmt.Errorf("opening bgzf stream %s: %w", name, err)
	}
	defer bg.Close()

	sc := bufio.NewScanner(bg)
	sc.Buffer(make([]byte, 0, 1<<20), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var row T
		if err := json.Unmarshal(b, &row); err != nil {
			return fmt.Errorf("%s line %d: %w", name, line, err)
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	return nil
}

// TableWriter writes rows as bgzipped NDJSON.
type TableWriter struct {
	bg   *bgzf.Writer
	enc  *json.Encoder
	rows int
}

// NewTableWriter wraps w; Close must be called to flush the final block and
// the EOF marker. The underlying writer is not closed.
func NewTableWriter(w io.Writer) *TableWriter {
	bg := bgzf.NewWriter(w, 1)
	return &TableWriter{bg: bg, enc: json.NewEncoder(bg)}
}

// Write appends one row.
func (tw *TableWriter) Write(row any) error {
	if err := tw.enc.Encode(row); err != nil {
		return fmt.Errorf("writing row %d: %w", tw.rows, err)
	}
	tw.rows++
	return nil
}

// Rows returns the number of rows written so far.
func (tw *TableWriter) Rows() int { return tw.rows }

func (tw *TableWriter) Close() error {
	return tw.bg.Close()
}
