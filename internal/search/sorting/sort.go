// Package sorting computes result sort vectors, formats rows for display
// and aggregates gene counts.
package sorting

import (
	"math"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/annotation"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/datatype"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/globals"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/errors"
)

// Sort options.
const (
	ByXPos               = "xpos"
	ByProteinConsequence = "protein_consequence"
	ByPathogenicity      = "pathogenicity"
	ByGnomad             = "gnomad"
	ByGnomadExomes       = "gnomad_exomes"
	ByCallsetAF          = "callset_af"
	ByCADD               = "cadd"
	ByREVEL              = "revel"
	ByEigen              = "eigen"
	ByMPC                = "mpc"
	ByPrimateAI          = "primate_ai"
	BySpliceAI           = "splice_ai"
	ByOMIM               = "in_omim"
	ByPrioritizedGene    = "prioritized_gene"
	BySize               = "size"
)

// TransContigSVSize is the size given to a structural variant whose ends
// lie on different contigs.
const TransContigSVSize = 50

// predictorSorts sort descending by score.
var predictorSorts = map[string]bool{
	ByCADD: true, ByREVEL: true, ByEigen: true, ByMPC: true, ByPrimateAI: true, BySpliceAI: true,
}

// width is the number of components each option contributes before xpos.
var width = map[string]int{
	ByXPos:               0,
	ByProteinConsequence: 1,
	ByPathogenicity:      2,
	ByGnomad:             1,
	ByGnomadExomes:       1,
	ByCallsetAF:          1,
	ByOMIM:               1,
	ByPrioritizedGene:    1,
	BySize:               1,
}

// ValidSort reports whether a sort option is supported; the empty option
// sorts by position.
func ValidSort(key string) bool {
	if key == "" || predictorSorts[key] {
		return true
	}
	_, ok := width[key]
	return ok
}

// Sorter computes sort vectors for one request.
type Sorter struct {
	key      string
	genes    map[string]float64
	catalogs map[model.DataType]*globals.Catalog
}

// NewSorter validates the sort option. Gene metadata is required by the
// omim and prioritized gene sorts.
func NewSorter(key string, meta *model.SortMetadata, catalogs map[model.DataType]*globals.Catalog) (*Sorter, error) {
	if key == "" {
		key = ByXPos
	}
	if !ValidSort(key) {
		return nil, apperrors.Invalidf("unsupported sort %q", key)
	}
	s := &Sorter{key: key, catalogs: catalogs}
	if meta != nil {
		s.genes = meta.Genes
	}
	if (key == ByOMIM || key == ByPrioritizedGene) && s.genes == nil {
		return nil, apperrors.Invalidf("sort %q requires sort_metadata", key)
	}
	return s, nil
}

// Key returns the sort option.
func (s *Sorter) Key() string { return s.key }

// Width returns the vector length before the xpos tiebreak.
func (s *Sorter) Width() int {
	if predictorSorts[s.key] {
		return 1
	}
	return width[s.key]
}

// Vector returns the sort vector of an annotated row, padded to Width and
// followed by its xpos. Missing values sort last.
func (s *Sorter) Vector(v *model.Variant) []float64 {
	cfg := datatype.MustGet(v.DataType)
	cat := s.catalogs[v.DataType]
	a := v.Annotation
	var out []float64
	switch {
	case s.key == ByXPos:
	case predictorSorts[s.key]:
		out = append(out, negated(a.Predictions[s.key]))
	case s.key == ByProteinConsequence:
		out = append(out, consequenceRank(cfg, a))
	case s.key == ByPathogenicity:
		out = append(out, clinvarRank(cat, a), hgmdRank(a))
	case s.key == ByGnomad:
		pop := "gnomad_genomes"
		if cfg.IsSV {
			pop = "gnomad_svs"
		}
		out = append(out, af(a, pop))
	case s.key == ByGnomadExomes:
		out = append(out, af(a, "gnomad_exomes"))
	case s.key == ByCallsetAF:
		out = append(out, af(a, cfg.CallsetPopulation))
	case s.key == ByOMIM:
		n := 0
		for _, g := range v.GeneIDs {
			if _, ok := s.genes[g]; ok {
				n++
			}
		}
		out = append(out, -float64(n))
	case s.key == ByPrioritizedGene:
		best := math.Inf(1)
		for _, g := range v.GeneIDs {
			if r, ok := s.genes[g]; ok && r < best {
				best = r
			}
		}
		out = append(out, best)
	case s.key == BySize:
		out = append(out, -size(cfg, v))
	}
	for len(out) < s.Width() {
		out = append(out, 0)
	}
	return append(out, float64(v.XPos))
}

func negated(p *float64) float64 {
	if p == nil {
		return math.Inf(1)
	}
	return -*p
}

func af(a *model.Annotation, pop string) float64 {
	p, ok := a.Populations[pop]
	if !ok || p.AF == nil {
		return math.Inf(1)
	}
	return *p.AF
}

// consequenceRank is the most severe consequence id of the row, shifted by
// the data type's offset so that point and structural ranks do not mix.
func consequenceRank(cfg *datatype.Config, a *model.Annotation) float64 {
	best := math.Inf(1)
	for _, t := range a.Transcripts {
		for _, id := range t.ConsequenceTermIDs {
			best = math.Min(best, float64(id))
		}
	}
	for _, gc := range a.GeneConsequences {
		best = math.Min(best, float64(gc.MajorConsequenceID))
	}
	return best + cfg.ConsequenceOffset
}

// clinvarRank places variants absent from the clinical database just before
// those asserted to carry no pathogenicity.
func clinvarRank(cat *globals.Catalog, a *model.Annotation) float64 {
	if a.ClinVar != nil {
		return float64(a.ClinVar.PathogenicityID)
	}
	if cat != nil {
		if id, ok := cat.ID(datatype.EnumClinVarPathogenicity, annotation.ClinVarNoAssertion); ok {
			return float64(id) - 0.5
		}
	}
	return math.Inf(1)
}

func hgmdRank(a *model.Annotation) float64 {
	if a.HGMD == nil {
		return math.Inf(1)
	}
	return float64(a.HGMD.ClassID)
}

// size is the span of a structural variant; point variants have none.
func size(cfg *datatype.Config, v *model.Variant) float64 {
	if !cfg.IsSV {
		return 0
	}
	a := v.Annotation
	if a.EndChrom != "" && genome.NormalizeChrom(a.EndChrom) != genome.NormalizeChrom(a.Chrom) {
		return TransContigSVSize
	}
	end := a.End
	if end == 0 {
		_, end = genome.FromXPos(v.EndXPos)
	}
	return float64(end - a.Pos)
}

// Compare orders two sort vectors lexicographically; a shorter vector that
// is a prefix of a longer one sorts first.
func Compare(a, b []float64) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// LessVariant orders variants by sort vector, then id.
func LessVariant(a, b *model.Variant) bool {
	if c := Compare(a.Sort, b.Sort); c != 0 {
		return c < 0
	}
	return a.ID() < b.ID()
}

// LessRow orders result rows by sort vector, then key.
func LessRow(a, b model.Row) bool {
	if c := Compare(a.SortKey(), b.SortKey()); c != 0 {
		return c < 0
	}
	return strings.Compare(a.Key(), b.Key()) < 0
}
