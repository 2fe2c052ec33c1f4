package table

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPlanIsLazyAndImmutable(t *testing.T) {
	calls := 0
	base := FromFunc("ints", func(context.Context) ([]int, error) {
		calls++
		return seq(10), nil
	})
	even := base.Filter("even", func(v int) bool { return v%2 == 0 })
	doubled := even.Map("double", func(v int) (int, bool) { return v * 2, true })

	if calls != 0 {
		t.Fatalf("source read before a terminal call")
	}
	if diff := cmp.Diff([]string{"even"}, even.Steps()); diff != "" {
		t.Errorf("builder mutated parent plan (-want +got):\n%s", diff)
	}

	got, err := doubled.Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{0, 4, 8, 12, 16}, got); diff != "" {
		t.Errorf("Collect mismatch (-want +got):\n%s", diff)
	}
	if calls != 1 {
		t.Errorf("source read %d times, want 1", calls)
	}
}

func TestCollectPreservesOrderAcrossPartitions(t *testing.T) {
	rows := seq(10_000)
	got, err := From("ints", rows).
		Filter("odd", func(v int) bool { return v%2 == 1 }).
		Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5000 {
		t.Fatalf("len = %d, want 5000", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("order broken at %d: %d after %d", i, got[i], got[i-1])
		}
	}
}

func TestObserverReportsStages(t *testing.T) {
	var mu sync.Mutex
	var stages []Stage
	obs := func(s Stage) {
		mu.Lock()
		stages = append(stages, s)
		mu.Unlock()
	}
	n, err := From("ints", seq(3000)).
		Observe(obs).
		Filter("lt100", func(v int) bool { return v < 100 }).
		Filter("even", func(v int) bool { return v%2 == 0 }).
		Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 50 {
		t.Errorf("Count = %d, want 50", n)
	}
	if len(stages) != 2 {
		t.Fatalf("stages = %d, want 2", len(stages))
	}
	if stages[0].RowsIn != 3000 || stages[0].RowsOut != 100 || stages[1].RowsOut != 50 {
		t.Errorf("unexpected stage rows: %+v", stages)
	}
}

func TestTopK(t *testing.T) {
	rows := []int{9, 3, 7, 1, 8, 2, 6, 0, 5, 4}
	less := func(a, b int) bool { return a < b }
	tests := []struct {
		name string
		k    int
		want []int
	}{
		{"three smallest", 3, []int{0, 1, 2}},
		{"all when k exceeds rows", 20, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{"all when k is zero", 0, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := TopK(context.Background(), From("ints", rows), tt.k, less)
			if err != nil {
				t.Fatal(err)
			}
			if total != len(rows) {
				t.Errorf("total = %d, want %d", total, len(rows))
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("TopK mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTopKLargeInput(t *testing.T) {
	rows := seq(20_000)
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	got, total, err := TopK(context.Background(), From("ints", rows), 5, func(a, b int) bool { return a < b })
	if err != nil {
		t.Fatal(err)
	}
	if total != 20_000 {
		t.Errorf("total = %d", total)
	}
	if diff := cmp.Diff([]int{0, 1, 2, 3, 4}, got); diff != "" {
		t.Errorf("TopK mismatch (-want +got):\n%s", diff)
	}
}

func TestCancelledContextStopsExecution(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := From("ints", seq(10)).Collect(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSourceErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	_, err := FromFunc("broken", func(context.Context) ([]int, error) { return nil, boom }).Count(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped source error, got %v", err)
	}
}
