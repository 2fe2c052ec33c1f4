// Package searchtest writes small table roots for tests of the search
// pipeline.
package searchtest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/datatype"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/store"
)

// Enum label lists in severity order.
var (
	TranscriptConsequences = []string{
		"transcript_ablation", "splice_acceptor_variant", "splice_donor_variant",
		"stop_gained", "frameshift_variant", "stop_lost", "start_lost",
		"inframe_insertion", "inframe_deletion", "missense_variant",
		"splice_region_variant", "synonymous_variant", "5_prime_UTR_variant",
		"3_prime_UTR_variant", "intron_variant", "upstream_gene_variant",
		"downstream_gene_variant", "intergenic_variant",
	}
	ClinVarPathogenicities = []string{
		"Pathogenic", "Pathogenic/Likely_pathogenic",
		"Pathogenic/Likely_pathogenic/Established_risk_allele",
		"Pathogenic/Likely_pathogenic/Likely_risk_allele",
		"Pathogenic/Likely_risk_allele", "Likely_pathogenic",
		"Likely_pathogenic/Likely_risk_allele", "Established_risk_allele",
		"Likely_risk_allele", "Conflicting_classifications_of_pathogenicity",
		"Uncertain_risk_allele", "Uncertain_significance/Uncertain_risk_allele",
		"Uncertain_significance", "No_pathogenic_assertion", "Likely_benign",
		"Benign/Likely_benign", "Benign",
	}
	ClinVarAssertions = []string{"Affects", "association", "drug_response", "risk_factor", "protective"}
	HGMDClasses       = []string{"DM", "DM?", "DP", "DFP", "FP", "R"}
	ScreenRegions     = []string{"CTCF-bound", "CTCF-only", "DNase-H3K4me3", "PLS", "dELS", "pELS"}
	MotifConsequences = []string{"TFBS_ablation", "TFBS_amplification", "TF_binding_site_variant"}
	RegConsequences   = []string{"regulatory_region_ablation", "regulatory_region_amplification", "regulatory_region_variant"}
	SVTypes           = []string{"BND", "CPX", "CTX", "DEL", "DUP", "INS", "INV", "CNV"}
	SVTypeDetails     = []string{"INS_iDEL", "INVdel", "INVdup", "dDUP", "dDUP_iDEL", "delINV", "dupINV"}
	SVConsequences    = []string{"LOF", "INTRAGENIC_EXON_DUP", "PARTIAL_EXON_DUP", "COPY_GAIN", "DUP_PARTIAL", "MSV_EXON_OVERLAP", "INV_SPAN", "UTR", "PROMOTER", "TSS_DUP", "BREAKEND_EXONIC", "INTRONIC", "NEAREST_TSS"}
	MutTaster         = []string{"D", "A", "N", "P"}
	Fathmm            = []string{"D", "T"}
	MitoTIP           = []string{"likely_pathogenic", "possibly_pathogenic", "possibly_benign", "likely_benign"}
)

// Enums returns the enum table of a data type's catalog.
func Enums(dt model.DataType) map[string][]string {
	switch dt {
	case model.SNVIndel:
		return map[string][]string{
			datatype.EnumTranscriptConsequence: TranscriptConsequences,
			datatype.EnumMotifConsequence:      MotifConsequences,
			datatype.EnumRegulatoryConsequence: RegConsequences,
			datatype.EnumClinVarPathogenicity:  ClinVarPathogenicities,
			datatype.EnumClinVarAssertion:      ClinVarAssertions,
			datatype.EnumHGMDClass:             HGMDClasses,
			datatype.EnumScreenRegion:          ScreenRegions,
			"mut_taster":                       MutTaster,
			"fathmm":                           Fathmm,
		}
	case model.Mito:
		return map[string][]string{
			datatype.EnumTranscriptConsequence: TranscriptConsequences,
			datatype.EnumClinVarPathogenicity:  ClinVarPathogenicities,
			datatype.EnumClinVarAssertion:      ClinVarAssertions,
			"mitotip":                          MitoTIP,
		}
	}
	return map[string][]string{
		datatype.EnumSVType:        SVTypes,
		datatype.EnumSVTypeDetail:  SVTypeDetails,
		datatype.EnumSVConsequence: SVConsequences,
	}
}

// EnumID returns the id of label in labels, failing the test when absent.
func EnumID(t testing.TB, labels []string, label string) int {
	t.Helper()
	for i, l := range labels {
		if l == label {
			return i
		}
	}
	t.Fatalf("unknown enum label %q", label)
	return -1
}

// Root is a table root under a test temp dir.
type Root struct {
	t     testing.TB
	Dir   string
	Build genome.Build
}

// NewRoot creates an empty root for build.
func NewRoot(t testing.TB, build genome.Build) *Root {
	t.Helper()
	return &Root{t: t, Dir: t.TempDir(), Build: build}
}

// Source opens the root as a store source.
func (r *Root) Source() store.Source { return store.NewFS(r.Dir) }

func (r *Root) path(name string) string {
	r.t.Helper()
	full := filepath.Join(r.Dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		r.t.Fatal(err)
	}
	return full
}

// WriteJSON writes v as a plain JSON file.
func (r *Root) WriteJSON(name string, v any) {
	r.t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		r.t.Fatal(err)
	}
	if err := os.WriteFile(r.path(name), b, 0o644); err != nil {
		r.t.Fatal(err)
	}
}

// WriteTable writes rows as a bgzipped NDJSON table.
func WriteTable[T any](r *Root, name string, rows []T) {
	r.t.Helper()
	f, err := os.Create(r.path(name))
	if err != nil {
		r.t.Fatal(err)
	}
	defer f.Close()
	tw := store.NewTableWriter(f)
	for _, row := range rows {
		if err := tw.Write(row); err != nil {
			r.t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		r.t.Fatal(err)
	}
}

// Catalog writes the globals and annotations of a data type with the
// default enum table.
func (r *Root) Catalog(dt model.DataType, annotations ...model.Annotation) {
	r.t.Helper()
	r.WriteJSON(store.CatalogGlobalsPath(string(r.Build), string(dt)), map[string]any{
		"versions": map[string]any{"test": 1},
		"enums":    Enums(dt),
	})
	WriteTable(r, store.AnnotationsPath(string(r.Build), string(dt)), annotations)
}

// ProjectTable writes a project entries table and its globals.
func (r *Root) ProjectTable(dt model.DataType, st model.SampleType, project string, g model.TableGlobals, rows ...model.EntryRow) {
	r.t.Helper()
	g.SampleType = st
	name := store.ProjectTablePath(string(r.Build), string(dt), string(st), project)
	r.WriteJSON(store.TableGlobalsPath(name), g)
	WriteTable(r, name, rows)
}

// FamilyTable writes a single-family entries table and its globals.
func (r *Root) FamilyTable(dt model.DataType, st model.SampleType, family string, g model.TableGlobals, rows ...model.EntryRow) {
	r.t.Helper()
	g.SampleType = st
	name := store.FamilyTablePath(string(r.Build), string(dt), string(st), family)
	r.WriteJSON(store.TableGlobalsPath(name), g)
	WriteTable(r, name, rows)
}

// Call builds a stored call with optional metrics given as name, value
// pairs.
func Call(gt int8, metrics ...any) *model.StoredCall {
	c := &model.StoredCall{GT: &gt}
	if len(metrics) > 0 {
		c.Metrics = make(map[string]float64, len(metrics)/2)
		for i := 0; i+1 < len(metrics); i += 2 {
			c.Metrics[metrics[i].(string)] = toFloat(metrics[i+1])
		}
	}
	return c
}

// NoCall is a call with a missing genotype.
func NoCall() *model.StoredCall { return &model.StoredCall{} }

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

// Point returns the entries row of a point variant.
func Point(chrom string, pos int, ref, alt string, families ...[]*model.StoredCall) model.EntryRow {
	loc := genome.Locus{Chrom: chrom, Pos: pos, Ref: ref, Alt: alt}
	return model.EntryRow{
		Key:           loc.ID(),
		VariantID:     loc.ID(),
		XPos:          loc.XPos(),
		FamilyEntries: families,
	}
}

// Annotation returns a minimal annotation of a point variant.
func Annotation(chrom string, pos int, ref, alt string) model.Annotation {
	loc := genome.Locus{Chrom: chrom, Pos: pos, Ref: ref, Alt: alt}
	return model.Annotation{
		Key:       loc.ID(),
		VariantID: loc.ID(),
		Chrom:     chrom,
		Pos:       pos,
		Ref:       ref,
		Alt:       alt,
		XPos:      loc.XPos(),
	}
}

// Sample returns a WES sample descriptor.
func Sample(project, family, id string, affected model.Affected, sex model.Sex) model.Sample {
	return model.Sample{
		SampleID:       id,
		IndividualGUID: "I_" + id,
		FamilyGUID:     family,
		ProjectGUID:    project,
		SampleType:     model.WES,
		Affected:       affected,
		Sex:            sex,
	}
}
