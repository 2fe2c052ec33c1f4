package inheritance

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/datatype"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
)

// PairOptions configures compound-het pairing.
type PairOptions struct {
	// Secondary is set when the request carries secondary annotation
	// criteria; the second member must then be secondary.
	Secondary bool
	// Affected overrides sample affected status by individual guid.
	Affected map[string]model.Affected
	// IsDeletion reports whether a structural variant can mask a point
	// variant as homozygous.
	IsDeletion func(v *model.Variant) bool
	// Less orders variants; pair members are sorted with it.
	Less func(a, b *model.Variant) bool
}

type candidate struct {
	v     *model.Variant
	cfg   *datatype.Config
	index map[string]int
}

// Pairs builds the compound-het pairs among rows. Only rows carrying
// compound-het groups and a primary or secondary annotation flag take
// part. Each unordered pair is returned once, restricted to the families in
// which no unaffected individual carries both variants, with the shared
// genes it was found through.
func Pairs(rows []*model.Variant, opts PairOptions) []*model.Pair {
	indexes := make(map[*model.Schema]map[string]int)
	byGene := make(map[string][]*candidate)
	for _, v := range rows {
		if !model.HasFamilies(v.CompHetFamilies) || !(v.IsPrimary || v.IsSecondary) {
			continue
		}
		idx, ok := indexes[v.Schema]
		if !ok {
			idx = make(map[string]int, len(v.Schema.FamilyGUIDs))
			for i, g := range v.Schema.FamilyGUIDs {
				idx[g] = i
			}
			indexes[v.Schema] = idx
		}
		c := &candidate{v: v, cfg: datatype.MustGet(v.DataType), index: idx}
		for _, gene := range v.GeneIDs {
			byGene[gene] = append(byGene[gene], c)
		}
	}

	type result struct {
		pair  *model.Pair
		genes map[string]bool
	}
	seen := make(map[string]*result)
	var order []string
	for gene, cands := range byGene {
		for i, a := range cands {
			for _, b := range cands[i+1:] {
				if a.v.ID() == b.v.ID() || !armsAllowed(a.v, b.v, opts.Secondary) {
					continue
				}
				first, second := a, b
				if opts.Less != nil && opts.Less(b.v, a.v) {
					first, second = b, a
				}
				key := PairKey(first.v, second.v)
				if r, ok := seen[key]; ok {
					if r != nil {
						r.genes[gene] = true
					}
					continue
				}
				p := buildPair(first, second, opts)
				if p == nil {
					seen[key] = nil
					continue
				}
				p.Key = key
				seen[key] = &result{pair: p, genes: map[string]bool{gene: true}}
				order = append(order, key)
			}
		}
	}

	sort.Strings(order)
	out := make([]*model.Pair, 0, len(order))
	for _, key := range order {
		r := seen[key]
		r.pair.GeneIDs = sortedGenes(r.genes)
		out = append(out, r.pair)
	}
	return out
}

// armsAllowed reports whether the two variants can fill the two arms in
// some order: one primary and the other secondary when secondary criteria
// exist, or both primary otherwise.
func armsAllowed(a, b *model.Variant, secondary bool) bool {
	if !secondary {
		return a.IsPrimary && b.IsPrimary
	}
	return (a.IsPrimary && b.IsSecondary) || (b.IsPrimary && a.IsSecondary)
}

// buildPair returns the pair restricted to its valid families, or nil.
func buildPair(a, b *candidate, opts PairOptions) *model.Pair {
	v1 := restrict(a.v)
	v2 := restrict(b.v)
	valid := false
	for guid, ia := range a.index {
		ib, ok := b.index[guid]
		if !ok {
			continue
		}
		ga, gb := a.v.CompHetFamilies[ia], b.v.CompHetFamilies[ib]
		if ga == nil || gb == nil || !familyValid(a, b, ga, gb, opts) {
			continue
		}
		v1.Families[ia] = ga
		v2.Families[ib] = gb
		valid = true
	}
	if !valid {
		return nil
	}
	return &model.Pair{V1: v1, V2: v2}
}

// restrict copies v with no valid family; callers fill in the valid ones.
func restrict(v *model.Variant) *model.Variant {
	c := *v
	c.Families = make([]model.FamilyGroup, len(v.CompHetFamilies))
	c.CompHetFamilies = nil
	return &c
}

func familyValid(a, b *candidate, ga, gb model.FamilyGroup, opts PairOptions) bool {
	ca := unaffectedCarrierSet(ga, opts.Affected)
	for ind := range unaffectedCarrierSet(gb, opts.Affected) {
		if ca[ind] {
			return false
		}
	}
	return homAltAllowed(a, b, ga, opts) && homAltAllowed(b, a, gb, opts)
}

// homAltAllowed rejects a point variant with a homozygous affected call
// unless the partner is a deletion spanning it, which explains the call as
// one allele on the other haplotype being deleted.
func homAltAllowed(c, partner *candidate, g model.FamilyGroup, opts PairOptions) bool {
	if c.cfg.IsSV {
		return true
	}
	homAlt := false
	for _, e := range g {
		if status(e, opts.Affected) == model.AffectedYes && datatype.IsHomAlt(c.cfg, e) {
			homAlt = true
			break
		}
	}
	if !homAlt {
		return true
	}
	return partner.cfg.IsSV && opts.IsDeletion != nil && opts.IsDeletion(partner.v) &&
		c.v.XPos >= partner.v.XPos && c.v.XPos <= partner.v.EndXPos
}

func status(e *model.Entry, overrides map[string]model.Affected) model.Affected {
	return e.StatusIn(overrides)
}

func unaffectedCarrierSet(g model.FamilyGroup, overrides map[string]model.Affected) map[string]bool {
	out := make(map[string]bool)
	for _, e := range g {
		if status(e, overrides) == model.AffectedNo && e.GT.IsNonRef() {
			out[e.IndividualGUID] = true
		}
	}
	return out
}
