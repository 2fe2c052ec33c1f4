// Package table executes lazily composed row pipelines. A Plan is an
// immutable list of named steps over a row source; nothing runs until a
// terminal Collect, Count or TopK call, which splits the rows into at most
// MaxPartitions partitions and runs them concurrently.
package table

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// MaxPartitions bounds the number of partitions a plan is split into.
const MaxPartitions = 12

// minPartitionRows keeps small inputs on one goroutine.
const minPartitionRows = 256

// Stage reports the execution of one step across all partitions.
type Stage struct {
	Plan    string
	Name    string
	RowsIn  int
	RowsOut int
	Elapsed time.Duration
}

// Observer receives one Stage per step after a terminal call finishes.
type Observer func(Stage)

type step[T any] struct {
	name string
	fn   func(T) (T, bool)
}

// Plan is a named pipeline over rows of type T.
type Plan[T any] struct {
	name       string
	source     func(ctx context.Context) ([]T, error)
	steps      []step[T]
	partitions int
	observer   Observer
}

// From builds a plan over materialized rows.
func From[T any](name string, rows []T) *Plan[T] {
	return &Plan[T]{
		name:       name,
		source:     func(context.Context) ([]T, error) { return rows, nil },
		partitions: MaxPartitions,
	}
}

// FromFunc builds a plan whose rows are produced when it executes.
func FromFunc[T any](name string, source func(ctx context.Context) ([]T, error)) *Plan[T] {
	return &Plan[T]{name: name, source: source, partitions: MaxPartitions}
}

func (p *Plan[T]) with(s step[T]) *Plan[T] {
	next := *p
	next.steps = append(append([]step[T](nil), p.steps...), s)
	return &next
}

// Filter appends a step keeping rows for which keep is true.
func (p *Plan[T]) Filter(name string, keep func(T) bool) *Plan[T] {
	return p.with(step[T]{name: name, fn: func(row T) (T, bool) { return row, keep(row) }})
}

// Map appends a step replacing each row; returning false drops the row.
func (p *Plan[T]) Map(name string, fn func(T) (T, bool)) *Plan[T] {
	return p.with(step[T]{name: name, fn: fn})
}

// WithPartitions caps the partition count; values outside 1..MaxPartitions
// are clamped.
func (p *Plan[T]) WithPartitions(n int) *Plan[T] {
	next := *p
	switch {
	case n < 1:
		n = 1
	case n > MaxPartitions:
		n = MaxPartitions
	}
	next.partitions = n
	return &next
}

// Observe sets the stage observer.
func (p *Plan[T]) Observe(o Observer) *Plan[T] {
	next := *p
	next.observer = o
	return &next
}

// Steps returns the step names in order.
func (p *Plan[T]) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.name
	}
	return names
}

type stageStats struct {
	in, out atomic.Int64
	nanos   atomic.Int64
}

// execute runs every step over every partition and returns the surviving
// rows of each partition in input order.
func (p *Plan[T]) execute(ctx context.Context) ([][]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := p.source(ctx)
	if err != nil {
		return nil, fmt.Errorf("plan %s: reading source: %w", p.name, err)
	}
	parts := split(rows, p.partitions)
	stats := make([]stageStats, len(p.steps))

	g, gctx := errgroup.WithContext(ctx)
	for i := range parts {
		g.Go(func() error {
			part := parts[i]
			for si, s := range p.steps {
				if err := gctx.Err(); err != nil {
					return err
				}
				start := time.Now()
				stats[si].in.Add(int64(len(part)))
				out := part[:0:0]
				for n, row := range part {
					if n%4096 == 4095 {
						if err := gctx.Err(); err != nil {
							return err
						}
					}
					if next, ok := s.fn(row); ok {
						out = append(out, next)
					}
				}
				part = out
				stats[si].out.Add(int64(len(part)))
				stats[si].nanos.Add(int64(time.Since(start)))
			}
			parts[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if p.observer != nil {
		for si, s := range p.steps {
			p.observer(Stage{
				Plan:    p.name,
				Name:    s.name,
				RowsIn:  int(stats[si].in.Load()),
				RowsOut: int(stats[si].out.Load()),
				Elapsed: time.Duration(stats[si].nanos.Load()),
			})
		}
	}
	return parts, nil
}

// split cuts rows into at most n contiguous partitions of at least
// minPartitionRows rows each.
func split[T any](rows []T, n int) [][]T {
	if n > len(rows)/minPartitionRows {
		n = len(rows) / minPartitionRows
	}
	if n < 1 {
		n = 1
	}
	parts := make([][]T, 0, n)
	size := (len(rows) + n - 1) / n
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		parts = append(parts, rows[start:end])
	}
	if len(parts) == 0 {
		parts = append(parts, nil)
	}
	return parts
}

// Collect runs the plan and returns every surviving row in input order.
func (p *Plan[T]) Collect(ctx context.Context) ([]T, error) {
	parts, err := p.execute(ctx)
	if err != nil {
		return nil, err
	}
	n := 0
	for _, part := range parts {
		n += len(part)
	}
	out := make([]T, 0, n)
	for _, part := range parts {
		out = append(out, part...)
	}
	return out, nil
}

// Count runs the plan and returns the number of surviving rows.
func (p *Plan[T]) Count(ctx context.Context) (int, error) {
	parts, err := p.execute(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, part := range parts {
		n += len(part)
	}
	return n, nil
}
