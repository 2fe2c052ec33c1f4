package table

import (
	"container/heap"
	"context"
	"sort"
)

// TopK runs the plan and returns the total number of surviving rows plus the
// k smallest rows under less, in ascending order. Each partition keeps its
// own bounded heap; the partition heaps are merged at the end. k <= 0
// returns every row sorted.
func TopK[T any](ctx context.Context, p *Plan[T], k int, less func(a, b T) bool) ([]T, int, error) {
	parts, err := p.execute(ctx)
	if err != nil {
		return nil, 0, err
	}
	total := 0
	for _, part := range parts {
		total += len(part)
	}
	if k <= 0 || k >= total {
		all := make([]T, 0, total)
		for _, part := range parts {
			all = append(all, part...)
		}
		sort.SliceStable(all, func(i, j int) bool { return less(all[i], all[j]) })
		return all, total, nil
	}

	partial := make([][]T, len(parts))
	for i, part := range parts {
		partial[i] = smallest(part, k, less)
	}
	return Merge(partial, k, less), total, nil
}

// Merge returns the k smallest rows across already collected row sets in
// ascending order.
func Merge[T any](sets [][]T, k int, less func(a, b T) bool) []T {
	var all []T
	for _, s := range sets {
		all = append(all, s...)
	}
	return smallest(all, k, less)
}

func smallest[T any](rows []T, k int, less func(a, b T) bool) []T {
	if k <= 0 {
		k = len(rows)
	}
	h := &boundedHeap[T]{less: less}
	for _, row := range rows {
		heap.Push(h, row)
		if h.Len() > k {
			heap.Pop(h)
		}
	}
	out := make([]T, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(T)
	}
	return out
}

// boundedHeap keeps the largest retained row on top so it is the first to
// be evicted.
type boundedHeap[T any] struct {
	rows []T
	less func(a, b T) bool
}

func (h boundedHeap[T]) Len() int { return len(h.rows) }

func (h boundedHeap[T]) Less(i, j int) bool { return h.less(h.rows[j], h.rows[i]) }

func (h boundedHeap[T]) Swap(i, j int) { h.rows[i], h.rows[j] = h.rows[j], h.rows[i] }

func (h *boundedHeap[T]) Push(x any) {
	h.rows = append(h.rows, x.(T))
}

func (h *boundedHeap[T]) Pop() any {
	old := h.rows
	n := len(old)
	item := old[n-1]
	h.rows = old[:n-1]
	return item
}
