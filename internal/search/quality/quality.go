// Package quality compiles genotype quality criteria into per-entry and
// per-family predicates.
package quality

import (
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/datatype"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
)

// VCFFilterPass is the vcf_filter value requiring a clean site.
const VCFFilterPass = "pass"

type criterion struct {
	field datatype.QualityField
	min   float64
}

// Filter is a compiled quality filter. The zero value passes everything.
type Filter struct {
	affected     map[string]model.Affected
	criteria     []criterion
	requirePass  bool
	affectedOnly bool
}

// New compiles the criteria of qf that apply to a data type. Criteria for
// metrics the data type does not record are ignored. affected overrides the
// descriptor status of individuals for affected_only.
func New(cfg *datatype.Config, qf *model.QualityFilter, affected map[string]model.Affected) *Filter {
	f := &Filter{affected: affected}
	if qf == nil {
		return f
	}
	for _, field := range cfg.Quality {
		if v, ok := qf.Min[field.Request]; ok && v > 0 {
			f.criteria = append(f.criteria, criterion{field: field, min: field.Threshold(v)})
		}
	}
	f.requirePass = qf.VCFFilter == VCFFilterPass
	f.affectedOnly = qf.AffectedOnly
	return f
}

// Empty reports whether the filter constrains nothing.
func (f *Filter) Empty() bool {
	return f == nil || (len(f.criteria) == 0 && !f.requirePass)
}

// PassesSite reports whether the variant's site-level filters are clean when
// that is required.
func (f *Filter) PassesSite(v *model.Variant) bool {
	return f == nil || !f.requirePass || len(v.Filters) == 0
}

// PassesEntry reports whether every criterion holds for one call. A missing
// metric passes, a het-only criterion ignores other calls, and with
// affected_only every non-affected sample passes.
func (f *Filter) PassesEntry(e *model.Entry) bool {
	if f == nil || (f.affectedOnly && e.StatusIn(f.affected) != model.AffectedYes) {
		return true
	}
	for _, c := range f.criteria {
		if c.field.HetOnly && e.GT != model.GTHet {
			continue
		}
		v, ok := e.Metric(c.field.Metric)
		if !ok {
			continue
		}
		if v < c.min {
			return false
		}
	}
	return true
}

// PassesGroup reports whether the site and every entry of a family pass.
func (f *Filter) PassesGroup(v *model.Variant, g model.FamilyGroup) bool {
	if g == nil || !f.PassesSite(v) {
		return false
	}
	for _, e := range g {
		if !f.PassesEntry(e) {
			return false
		}
	}
	return true
}

// Apply returns a copy of v with failing family groups nulled, and false
// when no group survives.
func (f *Filter) Apply(v *model.Variant) (*model.Variant, bool) {
	if f.Empty() {
		return v, true
	}
	out := v.Clone()
	ok := false
	for i, g := range out.Families {
		passes := f.PassesGroup(v, g)
		if !passes {
			out.Families[i] = nil
		}
		if out.CompHetFamilies != nil && !passes {
			out.CompHetFamilies[i] = nil
		}
		ok = ok || out.Families[i] != nil || (out.CompHetFamilies != nil && out.CompHetFamilies[i] != nil)
	}
	return out, ok
}
