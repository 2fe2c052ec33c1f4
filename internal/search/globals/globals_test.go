package globals

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/errors"
)

func writeCatalog(t *testing.T, root, build, dt, body string) {
	t.Helper()
	dir := filepath.Join(root, build, dt)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "globals.json"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadAndLookup(t *testing.T) {
	root := t.TempDir()
	writeCatalog(t, root, "GRCh38", "SNV_INDEL", `{"versions":{"clinvar":"2024-01"},"enums":{"transcript_consequence":["frameshift_variant","missense_variant","intron_variant"]}}`)

	c := New(store.NewFS(root), []genome.Build{genome.GRCh38}, []model.DataType{model.SNVIndel, model.SVWGS})
	st, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]Key{{genome.GRCh38, model.SNVIndel}}, st.Loaded); diff != "" {
		t.Errorf("loaded mismatch (-want +got):\n%s", diff)
	}
	if len(st.Failed) != 1 {
		t.Errorf("failed = %d, want 1", len(st.Failed))
	}

	cat, err := c.Catalog(genome.GRCh38, model.SNVIndel)
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if id, ok := cat.ID("transcript_consequence", "missense_variant"); !ok || id != 1 {
		t.Errorf("ID(missense_variant) = %d, %v", id, ok)
	}
	if got := cat.Label("transcript_consequence", 2); got != "intron_variant" {
		t.Errorf("Label(2) = %q", got)
	}
	if got := cat.Label("transcript_consequence", 9); got != "" {
		t.Errorf("Label(9) = %q, want empty", got)
	}

	_, err = c.Catalog(genome.GRCh38, model.SVWGS)
	if !errors.Is(err, apperrors.ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
	if apperrors.HTTPStatusCode(err) != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", apperrors.HTTPStatusCode(err))
	}
}

func TestLoadFailsWithoutAnyCatalog(t *testing.T) {
	c := New(store.NewFS(t.TempDir()), []genome.Build{genome.GRCh37}, []model.DataType{model.SNVIndel})
	if _, err := c.Load(context.Background()); err == nil {
		t.Fatal("expected error when no catalog loads")
	}
}

func TestReloadSwapsCatalogs(t *testing.T) {
	root := t.TempDir()
	writeCatalog(t, root, "GRCh38", "MITO", `{"enums":{"mitotip":["likely_pathogenic"]}}`)
	c := New(store.NewFS(root), []genome.Build{genome.GRCh38}, []model.DataType{model.Mito})
	if _, err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	before, _ := c.Catalog(genome.GRCh38, model.Mito)

	writeCatalog(t, root, "GRCh38", "MITO", `{"enums":{"mitotip":["likely_pathogenic","possibly_pathogenic"]}}`)
	if _, err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	after, _ := c.Catalog(genome.GRCh38, model.Mito)
	if len(before.Enums["mitotip"]) != 1 || len(after.Enums["mitotip"]) != 2 {
		t.Errorf("reload did not swap catalogs: before=%v after=%v", before.Enums, after.Enums)
	}
}

func TestParseScope(t *testing.T) {
	builds, dts, err := ParseScope([]string{"GRCh38"}, []string{"SNV_INDEL", "SV_WGS"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]genome.Build{genome.GRCh38}, builds); diff != "" {
		t.Errorf("builds mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]model.DataType{model.SNVIndel, model.SVWGS}, dts); diff != "" {
		t.Errorf("data types mismatch (-want +got):\n%s", diff)
	}

	if _, _, err := ParseScope([]string{"hg19"}, nil); err == nil {
		t.Error("expected an error for an unknown genome version")
	}
	if _, _, err := ParseScope(nil, []string{"CNV"}); err == nil {
		t.Error("expected an error for an unknown data type")
	}
}
