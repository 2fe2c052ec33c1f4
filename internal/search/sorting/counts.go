package sorting

import "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"

// GeneCounts aggregates result rows per gene. A single row counts once for
// each of its genes; a pair counts once for each gene its members share,
// across the union of both members' families.
func GeneCounts(rows []model.Row) model.GeneCounts {
	out := make(model.GeneCounts)
	add := func(gene string, families map[string]bool) {
		gc, ok := out[gene]
		if !ok {
			gc = &model.GeneCount{Families: make(map[string]int)}
			out[gene] = gc
		}
		gc.Total++
		for fam := range families {
			gc.Families[fam]++
		}
	}
	for _, r := range rows {
		if r.Pair != nil {
			fams := familySet(r.Pair.V1)
			for g := range familySet(r.Pair.V2) {
				fams[g] = true
			}
			for _, gene := range r.Pair.GeneIDs {
				add(gene, fams)
			}
			continue
		}
		fams := familySet(r.Variant)
		for _, gene := range r.Variant.GeneIDs {
			add(gene, fams)
		}
	}
	return out
}

func familySet(v *model.Variant) map[string]bool {
	out := make(map[string]bool)
	for _, g := range v.ValidFamilyGUIDs(v.Families) {
		out[g] = true
	}
	return out
}
