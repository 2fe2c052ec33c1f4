package inheritance

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/datatype"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/errors"
)

func call(id string, affected model.Affected, sex model.Sex, gt model.Genotype) *model.Entry {
	return &model.Entry{
		Sample: model.Sample{SampleID: id, IndividualGUID: id, FamilyGUID: "F1", Affected: affected, Sex: sex},
		GT:     gt,
	}
}

func variantAt(chrom string, pos int, groups ...model.FamilyGroup) *model.Variant {
	guids := make([]string, len(groups))
	for i := range groups {
		guids[i] = "F" + string(rune('1'+i))
	}
	return &model.Variant{
		Key:      genome.Locus{Chrom: chrom, Pos: pos, Ref: "A", Alt: "G"}.ID(),
		DataType: model.SNVIndel,
		XPos:     genome.XPos(chrom, pos),
		EndXPos:  genome.XPos(chrom, pos),
		Schema:   &model.Schema{DataType: model.SNVIndel, FamilyGUIDs: guids},
		Families: groups,
	}
}

func evaluator(t *testing.T, mode string, filter *model.InheritanceFilter) *Evaluator {
	t.Helper()
	ev, err := New(datatype.MustGet(model.SNVIndel), mode, filter)
	if err != nil {
		t.Fatal(err)
	}
	return ev
}

func TestSinglePathModes(t *testing.T) {
	A, N, U := model.AffectedYes, model.AffectedNo, model.AffectedUnknown
	M, F := model.Male, model.Female
	het, hom, ref, miss := model.GTHet, model.GTHomAlt, model.GTRef, model.GTMissing

	tests := []struct {
		name  string
		mode  string
		chrom string
		group model.FamilyGroup
		want  bool
	}{
		{"de novo trio", model.ModeDeNovo, "1", model.FamilyGroup{call("c", A, F, het), call("m", N, F, ref), call("f", N, M, ref)}, true},
		{"de novo inherited", model.ModeDeNovo, "1", model.FamilyGroup{call("c", A, F, het), call("m", N, F, het), call("f", N, M, ref)}, false},
		{"de novo missing parent call", model.ModeDeNovo, "1", model.FamilyGroup{call("c", A, F, het), call("m", N, F, miss)}, false},
		{"de novo unknown status unconstrained", model.ModeDeNovo, "1", model.FamilyGroup{call("c", A, F, het), call("u", U, F, hom)}, true},
		{"de novo without affected", model.ModeDeNovo, "1", model.FamilyGroup{call("u", U, F, het)}, false},
		{"hom recessive", model.ModeHomozygousRecessive, "1", model.FamilyGroup{call("c", A, F, hom), call("s", N, F, het)}, true},
		{"hom recessive unaffected hom", model.ModeHomozygousRecessive, "1", model.FamilyGroup{call("c", A, F, hom), call("s", N, F, hom)}, false},
		{"hom recessive affected het", model.ModeHomozygousRecessive, "1", model.FamilyGroup{call("c", A, F, het)}, false},
		{"x linked on X", model.ModeXLinkedRecessive, "X", model.FamilyGroup{call("c", A, M, hom), call("m", N, F, het), call("f", N, M, ref)}, true},
		{"x linked unaffected male carrier", model.ModeXLinkedRecessive, "X", model.FamilyGroup{call("c", A, M, hom), call("f", N, M, het)}, false},
		{"x linked off X", model.ModeXLinkedRecessive, "1", model.FamilyGroup{call("c", A, M, hom), call("m", N, F, het)}, false},
		{"recessive takes hom path", model.ModeRecessive, "2", model.FamilyGroup{call("c", A, F, hom), call("m", N, F, het)}, true},
		{"recessive rejects het only", model.ModeRecessive, "2", model.FamilyGroup{call("c", A, F, het)}, false},
		{"any affected", model.ModeAnyAffected, "1", model.FamilyGroup{call("c", A, F, het), call("m", N, F, hom)}, true},
		{"any affected no affected carrier", model.ModeAnyAffected, "1", model.FamilyGroup{call("c", A, F, ref), call("m", N, F, hom)}, false},
		{"no mode needs a carrier", "", "1", model.FamilyGroup{call("c", U, F, ref), call("m", N, F, het)}, true},
		{"no mode all ref", "", "1", model.FamilyGroup{call("c", A, F, ref)}, false},
		{"comp het mode has no single path", model.ModeCompoundHet, "1", model.FamilyGroup{call("c", A, F, het)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := evaluator(t, tt.mode, nil)
			v := variantAt(tt.chrom, 1000, tt.group)
			if got := ev.Single(v, tt.group); got != tt.want {
				t.Errorf("Single = %v, want %v", got, tt.want)
			}
		})
	}
}

// Flipping one sample's required pattern through a genotype override must
// flip the family decision while leaving other families untouched.
func TestOverrideFlipsOnlyThatFamily(t *testing.T) {
	f1 := model.FamilyGroup{call("c1", model.AffectedYes, model.Female, model.GTHet), call("m1", model.AffectedNo, model.Female, model.GTRef)}
	f2 := model.FamilyGroup{
		{Sample: model.Sample{SampleID: "c2", IndividualGUID: "c2", Affected: model.AffectedYes}, GT: model.GTHet},
		{Sample: model.Sample{SampleID: "m2", IndividualGUID: "m2", Affected: model.AffectedNo}, GT: model.GTRef},
	}
	v := variantAt("1", 500, f1, f2)

	base := evaluator(t, model.ModeDeNovo, nil)
	if !base.Single(v, f1) || !base.Single(v, f2) {
		t.Fatal("both families should pass de novo without overrides")
	}
	flipped := evaluator(t, model.ModeDeNovo, &model.InheritanceFilter{
		Genotype: map[string]model.GenotypePattern{"m1": model.HasAlt},
	})
	if flipped.Single(v, f1) {
		t.Error("family 1 should fail once m1 must carry the variant")
	}
	if !flipped.Single(v, f2) {
		t.Error("family 2 must be unaffected by an override for m1")
	}
}

func TestAffectedOverride(t *testing.T) {
	g := model.FamilyGroup{call("c", model.AffectedYes, model.Female, model.GTHet), call("s", model.AffectedUnknown, model.Female, model.GTHet)}
	v := variantAt("1", 10, g)
	ev := evaluator(t, model.ModeDeNovo, &model.InheritanceFilter{Affected: map[string]model.Affected{"s": model.AffectedNo}})
	if ev.Single(v, g) {
		t.Error("sibling marked unaffected by override must be ref/ref for de novo")
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	cfg := datatype.MustGet(model.SNVIndel)
	if _, err := New(cfg, "dominant", nil); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("unsupported mode: got %v", err)
	}
	_, err := New(cfg, "", &model.InheritanceFilter{Genotype: map[string]model.GenotypePattern{"x": model.CompHetAlt}})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("internal genotype pattern should be rejected, got %v", err)
	}
}

func TestCompHetCarrierExclusion(t *testing.T) {
	ev := evaluator(t, model.ModeCompoundHet, nil)
	het, ref := model.GTHet, model.GTRef
	tests := []struct {
		name  string
		group model.FamilyGroup
		want  bool
	}{
		{"one unaffected carrier", model.FamilyGroup{call("c", model.AffectedYes, model.Female, het), call("m", model.AffectedNo, model.Female, het), call("f", model.AffectedNo, model.Male, ref)}, true},
		{"two carriers no hom ref", model.FamilyGroup{call("c", model.AffectedYes, model.Female, het), call("m", model.AffectedNo, model.Female, het), call("f", model.AffectedNo, model.Male, het)}, false},
		{"two carriers with hom ref sibling", model.FamilyGroup{call("c", model.AffectedYes, model.Female, het), call("m", model.AffectedNo, model.Female, het), call("f", model.AffectedNo, model.Male, het), call("s", model.AffectedNo, model.Male, ref)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ev.CompHet(variantAt("1", 1, tt.group), tt.group); got != tt.want {
				t.Errorf("CompHet = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyRecessiveKeepsBothPaths(t *testing.T) {
	ev := evaluator(t, model.ModeRecessive, nil)
	homFam := model.FamilyGroup{call("c1", model.AffectedYes, model.Female, model.GTHomAlt)}
	hetFam := model.FamilyGroup{call("c2", model.AffectedYes, model.Female, model.GTHet)}
	v := variantAt("3", 100, homFam, hetFam)

	out, ok := ev.Apply(v)
	if !ok {
		t.Fatal("expected the variant to survive")
	}
	if out.Families[0] == nil || out.Families[1] != nil {
		t.Errorf("single path families = %v", out.Families)
	}
	if out.CompHetFamilies[0] == nil || out.CompHetFamilies[1] == nil {
		t.Errorf("comp het families = %v", out.CompHetFamilies)
	}
	if v.Families[1] == nil {
		t.Error("Apply modified its input")
	}
}

func compHetVariant(t *testing.T, pos int, genes []string, group model.FamilyGroup) *model.Variant {
	t.Helper()
	ev := evaluator(t, model.ModeCompoundHet, nil)
	v, ok := ev.Apply(variantAt("1", pos, group))
	if !ok {
		t.Fatalf("variant at %d not valid for compound het", pos)
	}
	v.GeneIDs = genes
	v.IsPrimary = true
	return v
}

func byPosition(a, b *model.Variant) bool {
	if a.XPos != b.XPos {
		return a.XPos < b.XPos
	}
	return a.ID() < b.ID()
}

func TestPairsOrderIndependent(t *testing.T) {
	child := func(gt model.Genotype) model.FamilyGroup {
		return model.FamilyGroup{call("c", model.AffectedYes, model.Female, gt)}
	}
	v3 := compHetVariant(t, 300, []string{"G1"}, child(model.GTHet))
	v4 := compHetVariant(t, 400, []string{"G1"}, child(model.GTHet))

	opts := PairOptions{Less: byPosition}
	ab := Pairs([]*model.Variant{v3, v4}, opts)
	ba := Pairs([]*model.Variant{v4, v3}, opts)
	if len(ab) != 1 || len(ba) != 1 {
		t.Fatalf("pairs = %d and %d, want 1 each", len(ab), len(ba))
	}
	if ab[0].Key != ba[0].Key {
		t.Errorf("keys differ: %q vs %q", ab[0].Key, ba[0].Key)
	}
	if ab[0].V1.Key != v3.Key || ab[0].V2.Key != v4.Key {
		t.Errorf("members not sorted: %s, %s", ab[0].V1.Key, ab[0].V2.Key)
	}
	if diff := cmp.Diff([]string{"G1"}, ab[0].GeneIDs); diff != "" {
		t.Errorf("genes (-want +got):\n%s", diff)
	}
}

func TestPairsSharedGenesCollapse(t *testing.T) {
	g := model.FamilyGroup{call("c", model.AffectedYes, model.Female, model.GTHet)}
	a := compHetVariant(t, 10, []string{"G1", "G2"}, g)
	b := compHetVariant(t, 20, []string{"G2", "G1", "G3"}, g)
	c := compHetVariant(t, 30, []string{"G3"}, g)
	pairs := Pairs([]*model.Variant{a, b, c}, PairOptions{Less: byPosition})
	if len(pairs) != 2 {
		t.Fatalf("pairs = %d, want 2", len(pairs))
	}
	for _, p := range pairs {
		if p.V1.Key == a.Key {
			if diff := cmp.Diff([]string{"G1", "G2"}, p.GeneIDs); diff != "" {
				t.Errorf("genes of a|b (-want +got):\n%s", diff)
			}
		}
	}
}

func TestPairsExcludeSharedUnaffectedCarrier(t *testing.T) {
	mk := func(momGT model.Genotype) model.FamilyGroup {
		return model.FamilyGroup{
			call("c", model.AffectedYes, model.Female, model.GTHet),
			call("m", model.AffectedNo, model.Female, momGT),
			call("f", model.AffectedNo, model.Male, model.GTRef),
		}
	}
	a := compHetVariant(t, 10, []string{"G1"}, mk(model.GTHet))
	b := compHetVariant(t, 20, []string{"G1"}, mk(model.GTHet))
	if pairs := Pairs([]*model.Variant{a, b}, PairOptions{Less: byPosition}); len(pairs) != 0 {
		t.Errorf("mother carries both variants; got %d pairs", len(pairs))
	}

	c := compHetVariant(t, 30, []string{"G1"}, mk(model.GTRef))
	pairs := Pairs([]*model.Variant{a, c}, PairOptions{Less: byPosition})
	if len(pairs) != 1 {
		t.Fatalf("expected a trans pair, got %d", len(pairs))
	}
}

func TestPairsPrimarySecondary(t *testing.T) {
	g := model.FamilyGroup{call("c", model.AffectedYes, model.Female, model.GTHet)}
	a := compHetVariant(t, 10, []string{"G1"}, g)
	b := compHetVariant(t, 20, []string{"G1"}, g)
	c := compHetVariant(t, 30, []string{"G1"}, g)
	b.IsPrimary, b.IsSecondary = false, true
	c.IsPrimary, c.IsSecondary = false, true

	pairs := Pairs([]*model.Variant{a, b, c}, PairOptions{Secondary: true, Less: byPosition})
	if len(pairs) != 2 {
		t.Fatalf("pairs = %d, want 2 (b and c cannot pair with each other)", len(pairs))
	}
	for _, p := range pairs {
		if !strings.Contains(p.Key, a.Key) {
			t.Errorf("pair %s lacks the primary variant", p.Key)
		}
	}
	if pairs := Pairs([]*model.Variant{a, b, c}, PairOptions{Less: byPosition}); len(pairs) != 0 {
		t.Errorf("without secondary criteria only primary variants pair, got %d", len(pairs))
	}
}

func TestPairsTransDeletion(t *testing.T) {
	homChild := model.FamilyGroup{call("c", model.AffectedYes, model.Female, model.GTHomAlt)}
	snv := compHetVariant(t, 5000, []string{"G1"}, homChild)
	other := compHetVariant(t, 6000, []string{"G1"}, model.FamilyGroup{call("c", model.AffectedYes, model.Female, model.GTHet)})

	svEntry := &model.Entry{Sample: model.Sample{SampleID: "c", IndividualGUID: "c", Affected: model.AffectedYes}, GT: model.GTHet}
	del := &model.Variant{
		Key:             "DEL_1",
		DataType:        model.SVWGS,
		XPos:            genome.XPos("1", 4000),
		EndXPos:         genome.XPos("1", 9000),
		Schema:          &model.Schema{DataType: model.SVWGS, FamilyGUIDs: []string{"F1"}},
		Families:        []model.FamilyGroup{nil},
		CompHetFamilies: []model.FamilyGroup{{svEntry}},
		GeneIDs:         []string{"G1"},
		IsPrimary:       true,
	}
	isDel := func(v *model.Variant) bool { return v.Key == "DEL_1" }

	pairs := Pairs([]*model.Variant{snv, other, del}, PairOptions{Less: byPosition, IsDeletion: isDel})
	var keys []string
	for _, p := range pairs {
		keys = append(keys, p.Key)
	}
	want := []string{PairKey(del, snv), PairKey(del, other)}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("pairs (-want +got):\n%s", diff)
	}

	if pairs := Pairs([]*model.Variant{snv, del}, PairOptions{Less: byPosition}); len(pairs) != 0 {
		t.Error("without a deletion type the homozygous call must not pair")
	}
}
