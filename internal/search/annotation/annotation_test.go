package annotation

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/datatype"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/globals"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/searchtest"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/errors"
)

func fptr(f float64) *float64 { return &f }
func iptr(i int) *int         { return &i }

func snvFilter(t *testing.T, req *model.SearchRequest) (*Filter, *globals.Catalog) {
	t.Helper()
	cat := globals.NewCatalog(searchtest.Enums(model.SNVIndel))
	f, err := New(datatype.MustGet(model.SNVIndel), cat, req)
	if err != nil {
		t.Fatal(err)
	}
	return f, cat
}

func clinvar(t *testing.T, label string) *model.ClinVar {
	return &model.ClinVar{PathogenicityID: searchtest.EnumID(t, searchtest.ClinVarPathogenicities, label)}
}

func TestFrequencyOverride(t *testing.T) {
	req := &model.SearchRequest{
		Frequencies:   map[string]model.FrequencyFilter{"gnomad_genomes": {AF: fptr(0.01)}},
		Pathogenicity: &model.PathogenicityFilter{ClinVar: []string{ClinVarPathogenic, ClinVarLikelyPathogenic}},
	}
	f, _ := snvFilter(t, req)
	withAF := func(af float64, cv *model.ClinVar) *model.Annotation {
		return &model.Annotation{
			Populations: map[string]model.Population{"gnomad_genomes": {AF: fptr(af)}},
			ClinVar:     cv,
		}
	}
	tests := []struct {
		name string
		ann  *model.Annotation
		want bool
	}{
		{"under nominal cutoff", withAF(0.005, nil), true},
		{"over nominal cutoff", withAF(0.02, nil), false},
		{"pathogenic under override cutoff", withAF(0.02, clinvar(t, "Pathogenic")), true},
		{"pathogenic over override cutoff", withAF(0.06, clinvar(t, "Pathogenic")), false},
		{"benign gets no override", withAF(0.02, clinvar(t, "Benign")), false},
		{"population absent", &model.Annotation{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.PassesFrequency(tt.ann); got != tt.want {
				t.Errorf("PassesFrequency = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFrequencyOverrideKeepsACBound(t *testing.T) {
	f, _ := snvFilter(t, &model.SearchRequest{
		Frequencies:   map[string]model.FrequencyFilter{"gnomad_genomes": {AC: iptr(5)}},
		Pathogenicity: &model.PathogenicityFilter{ClinVar: []string{ClinVarPathogenic, ClinVarLikelyPathogenic}},
	})
	withAC := func(ac int, af float64, cv *model.ClinVar) *model.Annotation {
		return &model.Annotation{
			Populations: map[string]model.Population{"gnomad_genomes": {AC: iptr(ac), AF: fptr(af)}},
			ClinVar:     cv,
		}
	}
	tests := []struct {
		name string
		ann  *model.Annotation
		want bool
	}{
		{"pathogenic common variant", withAC(100000, 0.9, clinvar(t, "Pathogenic")), false},
		{"pathogenic within ac", withAC(3, 0.0001, clinvar(t, "Pathogenic")), true},
		{"likely pathogenic over ac", withAC(6, 0.0001, clinvar(t, "Likely_pathogenic")), false},
		{"unannotated within ac", withAC(5, 0.0001, nil), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.PassesFrequency(tt.ann); got != tt.want {
				t.Errorf("PassesFrequency = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFrequencyFields(t *testing.T) {
	f, _ := snvFilter(t, &model.SearchRequest{Frequencies: map[string]model.FrequencyFilter{
		"gnomad_exomes": {AF: fptr(0.01), HH: iptr(1)},
		"callset":       {AC: iptr(3)},
		"not_a_pop":     {AF: fptr(0)},
	}})
	tests := []struct {
		name string
		pops map[string]model.Population
		want bool
	}{
		{"filter af preferred", map[string]model.Population{"gnomad_exomes": {AF: fptr(0.5), FilterAF: fptr(0.001)}}, true},
		{"filter af fails", map[string]model.Population{"gnomad_exomes": {AF: fptr(0.001), FilterAF: fptr(0.2)}}, false},
		{"hom plus hemi over bound", map[string]model.Population{"gnomad_exomes": {Hom: iptr(1), Hemi: iptr(1)}}, false},
		{"callset ac within", map[string]model.Population{"seqr": {AC: iptr(3)}}, true},
		{"callset ac over", map[string]model.Population{"seqr": {AC: iptr(4)}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.PassesFrequency(&model.Annotation{Populations: tt.pops}); got != tt.want {
				t.Errorf("PassesFrequency = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInSilico(t *testing.T) {
	f, cat := snvFilter(t, &model.SearchRequest{InSilico: &model.InSilicoFilter{
		Scores: map[string]string{"cadd": "20", "sift": "0.05", "mut_taster": "D"},
	}})
	dID, _ := cat.ID("mut_taster", "D")
	nID, _ := cat.ID("mut_taster", "N")
	preds := func(kv ...any) *model.Annotation {
		m := make(map[string]*float64)
		for i := 0; i < len(kv); i += 2 {
			m[kv[i].(string)] = fptr(kv[i+1].(float64))
		}
		return &model.Annotation{Predictions: m}
	}
	tests := []struct {
		name string
		ann  *model.Annotation
		want bool
	}{
		{"numeric passes", preds("cadd", 25.0), true},
		{"numeric fails", preds("cadd", 5.0), false},
		{"reversed passes", preds("cadd", 5.0, "sift", 0.01), true},
		{"reversed fails", preds("sift", 0.5), false},
		{"categorical passes", preds("mut_taster", float64(dID)), true},
		{"categorical fails", preds("mut_taster", float64(nID)), false},
		{"no scores pass", preds(), true},
		{"unrequested score ignored", preds("revel", 0.9), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.PassesInSilico(tt.ann); got != tt.want {
				t.Errorf("PassesInSilico = %v, want %v", got, tt.want)
			}
		})
	}

	strict, _ := snvFilter(t, &model.SearchRequest{InSilico: &model.InSilicoFilter{
		Scores: map[string]string{"cadd": "20"}, RequireScore: true,
	}})
	if strict.PassesInSilico(preds()) {
		t.Error("requireScore should reject a variant with no scores")
	}
}

func TestNewValidation(t *testing.T) {
	cat := globals.NewCatalog(searchtest.Enums(model.SNVIndel))
	cfg := datatype.MustGet(model.SNVIndel)
	tests := []struct {
		name string
		req  *model.SearchRequest
	}{
		{"bad clinvar term", &model.SearchRequest{Pathogenicity: &model.PathogenicityFilter{ClinVar: []string{"very_bad"}}}},
		{"bad hgmd term", &model.SearchRequest{Pathogenicity: &model.PathogenicityFilter{HGMD: []string{"DM"}}}},
		{"non numeric score", &model.SearchRequest{InSilico: &model.InSilicoFilter{Scores: map[string]string{"cadd": "high"}}}},
		{"unknown category", &model.SearchRequest{InSilico: &model.InSilicoFilter{Scores: map[string]string{"fathmm": "X"}}}},
		{"negative af", &model.SearchRequest{Frequencies: map[string]model.FrequencyFilter{"seqr": {AF: fptr(-0.1)}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(cfg, cat, tt.req); !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("err = %v, want invalid input", err)
			}
		})
	}
}

func transcriptRow(t *testing.T, terms ...string) *model.Variant {
	ids := make([]int, len(terms))
	for i, term := range terms {
		ids[i] = searchtest.EnumID(t, searchtest.TranscriptConsequences, term)
	}
	return &model.Variant{
		DataType:   model.SNVIndel,
		Annotation: &model.Annotation{Transcripts: []model.Transcript{{GeneID: "G1", ConsequenceTermIDs: ids}}},
		GeneIDs:    []string{"G1"},
	}
}

func TestPrimarySecondaryFlags(t *testing.T) {
	f, _ := snvFilter(t, &model.SearchRequest{
		Annotations:          &model.AnnotationRequest{Consequences: []string{"stop_gained", "frameshift_variant"}},
		AnnotationsSecondary: &model.AnnotationRequest{Consequences: []string{"missense_variant"}, SpliceAI: fptr(0.5)},
		Pathogenicity:        &model.PathogenicityFilter{ClinVar: []string{ClinVarPathogenic}},
	})
	if !f.HasSecondary() {
		t.Fatal("secondary criteria expected")
	}

	spliced := transcriptRow(t, "intron_variant")
	spliced.Annotation.Predictions = map[string]*float64{"splice_ai": fptr(0.8)}
	path := transcriptRow(t, "synonymous_variant")
	path.Annotation.ClinVar = clinvar(t, "Pathogenic")

	tests := []struct {
		name          string
		row           *model.Variant
		keep          bool
		primary, secd bool
	}{
		{"primary consequence", transcriptRow(t, "stop_gained"), true, true, false},
		{"secondary consequence", transcriptRow(t, "missense_variant"), true, false, true},
		{"secondary splice override", spliced, true, false, true},
		{"pathogenic overrides both arms", path, true, true, true},
		{"no match", transcriptRow(t, "synonymous_variant"), false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := f.Apply(tt.row)
			if ok != tt.keep {
				t.Fatalf("keep = %v, want %v", ok, tt.keep)
			}
			if !ok {
				return
			}
			if out.IsPrimary != tt.primary || out.IsSecondary != tt.secd {
				t.Errorf("flags = %v/%v, want %v/%v", out.IsPrimary, out.IsSecondary, tt.primary, tt.secd)
			}
		})
	}
}

func TestNoAnnotationCriteriaMarksPrimary(t *testing.T) {
	f, _ := snvFilter(t, &model.SearchRequest{})
	out, ok := f.Apply(transcriptRow(t, "intron_variant"))
	if !ok || !out.IsPrimary || out.IsSecondary {
		t.Errorf("Apply = %v, primary %v", ok, out != nil && out.IsPrimary)
	}
}

func TestGeneAndRsIDRestriction(t *testing.T) {
	f, _ := snvFilter(t, &model.SearchRequest{GeneIDs: []string{"G2"}})
	row := transcriptRow(t, "missense_variant")
	row.GeneIDs = []string{"G1", "G2", "G3"}
	out, ok := f.Apply(row)
	if !ok {
		t.Fatal("row overlapping a requested gene should be kept")
	}
	if diff := cmp.Diff([]string{"G2"}, out.GeneIDs); diff != "" {
		t.Errorf("genes (-want +got):\n%s", diff)
	}
	if _, ok := f.Apply(transcriptRow(t, "missense_variant")); ok {
		t.Error("row outside the requested genes should be dropped")
	}

	f, _ = snvFilter(t, &model.SearchRequest{RsIDs: []string{"rs123"}})
	hit := transcriptRow(t, "missense_variant")
	hit.Annotation.RsID = "rs123"
	if _, ok := f.Apply(hit); !ok {
		t.Error("matching rsid dropped")
	}
	if _, ok := f.Apply(transcriptRow(t, "missense_variant")); ok {
		t.Error("row without the rsid kept")
	}
	sv, _ := New(datatype.MustGet(model.SVWGS), globals.NewCatalog(searchtest.Enums(model.SVWGS)), &model.SearchRequest{RsIDs: []string{"rs1"}})
	if sv.Applies() {
		t.Error("rs ids should exclude structural data types")
	}
}

func TestStructuralOverrides(t *testing.T) {
	cat := globals.NewCatalog(searchtest.Enums(model.SVWES))
	f, err := New(datatype.MustGet(model.SVWES), cat, &model.SearchRequest{
		Annotations: &model.AnnotationRequest{
			SVTypes:        []string{"DEL"},
			SVConsequences: []string{"LOF"},
			NewStructural:  []string{"NEW"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	dup := searchtest.EnumID(t, searchtest.SVTypes, "DUP")
	del := searchtest.EnumID(t, searchtest.SVTypes, "DEL")
	lof := searchtest.EnumID(t, searchtest.SVConsequences, "LOF")
	intronic := searchtest.EnumID(t, searchtest.SVConsequences, "INTRONIC")
	newCall := &model.Entry{GT: model.GTHet, Concordance: &model.Concordance{NewCall: true}}

	tests := []struct {
		name string
		row  *model.Variant
		want bool
	}{
		{"sv type", &model.Variant{Annotation: &model.Annotation{SVTypeID: &del}}, true},
		{"gene consequence", &model.Variant{Annotation: &model.Annotation{SVTypeID: &dup, GeneConsequences: []model.GeneConsequence{{GeneID: "G1", MajorConsequenceID: lof}}}}, true},
		{"new call", &model.Variant{Annotation: &model.Annotation{SVTypeID: &dup}, Families: []model.FamilyGroup{{newCall}}}, true},
		{"nothing", &model.Variant{Annotation: &model.Annotation{SVTypeID: &dup, GeneConsequences: []model.GeneConsequence{{GeneID: "G1", MajorConsequenceID: intronic}}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := f.Apply(tt.row); ok != tt.want {
				t.Errorf("Apply = %v, want %v", ok, tt.want)
			}
		})
	}
}
