package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/globals"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/loader"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/searchtest"
)

// benchEngine builds a trio project with n variants spread over 50 genes.
// Genotypes cycle through proband-only, inherited from the mother,
// inherited from the father and hom alt so every inheritance mode keeps
// some rows.
func benchEngine(b *testing.B, n int) *Engine {
	b.Helper()
	root := searchtest.NewRoot(b, genome.GRCh38)
	missense := searchtest.EnumID(b, searchtest.TranscriptConsequences, "missense_variant")
	calls := [][3]int8{{1, 0, 0}, {1, 1, 0}, {1, 0, 1}, {2, 1, 1}}

	rows := make([]model.EntryRow, n)
	annotations := make([]model.Annotation, n)
	for i := 0; i < n; i++ {
		pos := 1_000_000 + i*10
		gt := calls[i%len(calls)]
		rows[i] = searchtest.Point("1", pos, "A", "G", []*model.StoredCall{
			searchtest.Call(gt[0], "gq", 60),
			searchtest.Call(gt[1], "gq", 60),
			searchtest.Call(gt[2], "gq", 60),
		})
		a := searchtest.Annotation("1", pos, "A", "G")
		gene := fmt.Sprintf("G%d", i/(n/50+1))
		a.Transcripts = []model.Transcript{{
			GeneID:             gene,
			TranscriptID:       "T_" + gene,
			ConsequenceTermIDs: []int{missense},
			Canonical:          true,
		}}
		annotations[i] = a
	}
	g := model.TableGlobals{
		FamilyGUIDs:   []string{"F1"},
		FamilySamples: map[string][]string{"F1": {"S1", "S2", "S3"}},
		EntryFields:   []string{"gt", "gq"},
	}
	root.ProjectTable(model.SNVIndel, model.WES, "P1", g, rows...)
	root.FamilyTable(model.SNVIndel, model.WES, "F1", g, rows...)
	root.Catalog(model.SNVIndel, annotations...)

	cats := globals.New(root.Source(), []genome.Build{genome.GRCh38}, model.DataTypes)
	if _, err := cats.Load(context.Background()); err != nil {
		b.Fatal(err)
	}
	return New(cats, loader.New(root.Source()), testConfig, nil)
}

// BenchmarkSearch measures a full search over tables of increasing size
// for the main inheritance modes.
func BenchmarkSearch(b *testing.B) {
	modes := []string{"", "de_novo", "recessive", "compound_het"}
	for _, n := range []int{1_000, 10_000} {
		e := benchEngine(b, n)
		for _, mode := range modes {
			name := mode
			if name == "" {
				name = "any"
			}
			b.Run(fmt.Sprintf("%s/rows_%d", name, n), func(b *testing.B) {
				req := searchRequest(mode, trio())
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := e.Search(context.Background(), req); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

// BenchmarkGeneCounts measures per-gene aggregation of a recessive search.
func BenchmarkGeneCounts(b *testing.B) {
	e := benchEngine(b, 10_000)
	req := searchRequest("recessive", trio())
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.GeneCounts(context.Background(), req); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSearchParallel measures concurrent search throughput against one
// engine.
func BenchmarkSearchParallel(b *testing.B) {
	e := benchEngine(b, 10_000)
	req := searchRequest("de_novo", trio())
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := e.Search(context.Background(), req); err != nil {
				b.Fatal(err)
			}
		}
	})
}
