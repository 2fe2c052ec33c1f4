package merge

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
)

// Status is the evaluation of one family group on one sample type.
type Status struct {
	Quality bool
	Single  bool
	CompHet bool
}

// Evaluator evaluates family group fam of row v.
type Evaluator func(v *model.Variant, fam int) Status

// deNovoMinAffected is the number of affected carriers required on the
// passing sample type when the other sample type rejects a de novo call.
const deNovoMinAffected = 2

// SampleTypes joins the WES and WGS tables of one data type on variant key
// and decides every family from the evaluation of each side. Quality passes
// when either side passes; inheritance must pass on every side holding the
// family, except that a de novo call rejected by one side survives when the
// passing side has at least two affected carriers. The passing entries of
// both sides are concatenated. Invalid groups are nil. compHet controls
// whether the compound-het groups are produced. affected overrides the
// descriptor status of individuals when counting affected carriers.
func SampleTypes(a, b *model.Table, eval Evaluator, mode string, compHet bool, affected map[string]model.Affected) *model.Table {
	guidSet := make(map[string]bool)
	for _, t := range []*model.Table{a, b} {
		for _, g := range t.Schema.FamilyGUIDs {
			guidSet[g] = true
		}
	}
	guids := make([]string, 0, len(guidSet))
	for g := range guidSet {
		guids = append(guids, g)
	}
	sort.Strings(guids)
	schema := &model.Schema{
		DataType:    a.Schema.DataType,
		FamilyGUIDs: guids,
		EntryFields: UnionFields(a.Schema.EntryFields, b.Schema.EntryFields),
	}

	type side struct {
		v     *model.Variant
		index map[string]int
	}
	indexOf := func(s *model.Schema) map[string]int {
		m := make(map[string]int, len(s.FamilyGUIDs))
		for i, g := range s.FamilyGUIDs {
			m[g] = i
		}
		return m
	}
	aIndex, bIndex := indexOf(a.Schema), indexOf(b.Schema)

	joined := make(map[string][2]*model.Variant)
	for _, v := range a.Rows {
		p := joined[v.Key]
		p[0] = v
		joined[v.Key] = p
	}
	for _, v := range b.Rows {
		p := joined[v.Key]
		p[1] = v
		joined[v.Key] = p
	}

	rows := make([]*model.Variant, 0, len(joined))
	for _, pair := range joined {
		sides := [2]side{{pair[0], aIndex}, {pair[1], bIndex}}
		base := pair[0]
		if base == nil {
			base = pair[1]
		}
		out := *base
		out.Schema = schema
		out.Families = make([]model.FamilyGroup, len(guids))
		out.CompHetFamilies = nil
		if compHet {
			out.CompHetFamilies = make([]model.FamilyGroup, len(guids))
		}

		keep := false
		for fi, guid := range guids {
			var groups [2]model.FamilyGroup
			var status [2]Status
			present := 0
			quality := false
			for si, s := range sides {
				if s.v == nil {
					continue
				}
				idx, ok := s.index[guid]
				if !ok || s.v.Families[idx] == nil {
					continue
				}
				groups[si] = s.v.Families[idx]
				status[si] = eval(s.v, idx)
				quality = quality || status[si].Quality
				present++
			}
			if present == 0 || !quality {
				continue
			}
			out.Families[fi] = combine(groups, status, present, mode, affected, func(s Status) bool { return s.Single })
			if compHet {
				out.CompHetFamilies[fi] = combine(groups, status, present, "", affected, func(s Status) bool { return s.CompHet })
			}
			keep = keep || out.Families[fi] != nil || (compHet && out.CompHetFamilies[fi] != nil)
		}
		if keep {
			rows = append(rows, &out)
		}
	}
	SortByPosition(rows)
	return &model.Table{Schema: schema, Rows: rows}
}

func combine(groups [2]model.FamilyGroup, status [2]Status, present int, mode string, affected map[string]model.Affected, passes func(Status) bool) model.FamilyGroup {
	var passing []int
	for si := range groups {
		if groups[si] != nil && passes(status[si]) {
			passing = append(passing, si)
		}
	}
	switch {
	case len(passing) == 0:
		return nil
	case len(passing) == present:
		var out model.FamilyGroup
		for _, si := range passing {
			out = append(out, groups[si]...)
		}
		return out
	case mode == model.ModeDeNovo && affectedCarriers(groups[passing[0]], affected) >= deNovoMinAffected:
		return append(model.FamilyGroup(nil), groups[passing[0]]...)
	}
	return nil
}

func affectedCarriers(g model.FamilyGroup, affected map[string]model.Affected) int {
	n := 0
	for _, e := range g {
		if e.StatusIn(affected) == model.AffectedYes && e.GT.IsNonRef() {
			n++
		}
	}
	return n
}
