// Package annotation filters annotated rows by population frequency,
// in-silico scores, clinical significance and consequence, and marks each
// surviving row as primary and/or secondary for compound-het pairing.
package annotation

import (
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/datatype"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/globals"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
)

// arm is one compiled annotations object.
type arm struct {
	consequences map[int]bool
	motif        map[int]bool
	regulatory   map[int]bool
	screen       map[int]bool
	svTypes      map[int]bool
	svDetails    map[int]bool
	spliceAI     *float64
	newCalls     bool
}

func compileArm(cfg *datatype.Config, cat *globals.Catalog, req *model.AnnotationRequest) *arm {
	if req.Empty() {
		return nil
	}
	terms := append(append([]string(nil), req.Consequences...), req.SVConsequences...)
	a := &arm{
		consequences: cat.IDs(cfg.ConsequenceEnum, terms),
		motif:        cat.IDs(datatype.EnumMotifConsequence, req.MotifFeatures),
		regulatory:   cat.IDs(datatype.EnumRegulatoryConsequence, req.RegulatoryFeatures),
		screen:       cat.IDs(datatype.EnumScreenRegion, req.Screen),
		svTypes:      cat.IDs(datatype.EnumSVType, req.SVTypes),
		svDetails:    cat.IDs(datatype.EnumSVTypeDetail, req.SVTypes),
		newCalls:     cfg.Concordance && len(req.NewStructural) > 0,
	}
	if !cfg.IsSV {
		a.spliceAI = req.SpliceAI
	}
	return a
}

// hasConsequence reports whether any transcript, gene or feature consequence
// of the row is allowed.
func (a *arm) hasConsequence(v *model.Variant) bool {
	ann := v.Annotation
	for _, t := range ann.Transcripts {
		for _, id := range t.ConsequenceTermIDs {
			if a.consequences[id] {
				return true
			}
		}
	}
	for _, gc := range ann.GeneConsequences {
		if a.consequences[gc.MajorConsequenceID] {
			return true
		}
	}
	for _, f := range ann.MotifFeatures {
		for _, id := range f.ConsequenceTermIDs {
			if a.motif[id] {
				return true
			}
		}
	}
	for _, f := range ann.RegulatoryFeatures {
		for _, id := range f.ConsequenceTermIDs {
			if a.regulatory[id] {
				return true
			}
		}
	}
	return false
}

// hasOverride reports whether a non-consequence annotation selects the row.
func (a *arm) hasOverride(v *model.Variant) bool {
	ann := v.Annotation
	if a.spliceAI != nil {
		if s := ann.Predictions["splice_ai"]; s != nil && *s >= *a.spliceAI {
			return true
		}
	}
	for _, id := range ann.ScreenRegions {
		if a.screen[id] {
			return true
		}
	}
	if ann.SVTypeID != nil && a.svTypes[*ann.SVTypeID] {
		return true
	}
	if ann.SVTypeDetailID != nil && a.svDetails[*ann.SVTypeDetailID] {
		return true
	}
	return a.newCalls && hasNewCall(v)
}

func hasNewCall(v *model.Variant) bool {
	for _, groups := range [][]model.FamilyGroup{v.Families, v.CompHetFamilies} {
		for _, g := range groups {
			for _, e := range g {
				if e.Concordance != nil && e.Concordance.NewCall && e.GT.IsNonRef() {
					return true
				}
			}
		}
	}
	return false
}

// Filter is the compiled annotation stage of one data type.
type Filter struct {
	cfg *datatype.Config

	freqs        []freqCriterion
	pathOverride bool
	overrideCV   map[int]bool
	overrideHGMD map[int]bool

	scores       []scoreCriterion
	requireScore bool

	clinvar map[int]bool
	hgmd    map[int]bool

	primary   *arm
	secondary *arm

	genes map[string]bool
	rsIDs map[string]bool
}

// New compiles the annotation criteria of req against the catalog of a data
// type. Terms the catalog does not define select nothing.
func New(cfg *datatype.Config, cat *globals.Catalog, req *model.SearchRequest) (*Filter, error) {
	f := &Filter{cfg: cfg}
	var err error
	if f.freqs, err = compileFrequencies(cfg, req.Frequencies); err != nil {
		return nil, err
	}
	if f.scores, err = compileInSilico(cfg, cat, req.InSilico); err != nil {
		return nil, err
	}
	f.requireScore = req.InSilico != nil && req.InSilico.RequireScore

	if !req.Pathogenicity.Empty() && cfg.HasPathogenicity {
		if f.clinvar, err = clinvarIDs(cat, req.Pathogenicity.ClinVar); err != nil {
			return nil, err
		}
		if f.hgmd, err = hgmdIDs(cat, req.Pathogenicity.HGMD); err != nil {
			return nil, err
		}
		var cvPath, hgmdPath []string
		for _, t := range req.Pathogenicity.ClinVar {
			if isPathTerm(t) {
				cvPath = append(cvPath, t)
			}
		}
		for _, t := range req.Pathogenicity.HGMD {
			if isPathTerm(t) {
				hgmdPath = append(hgmdPath, t)
			}
		}
		f.pathOverride = len(cvPath)+len(hgmdPath) > 0
		f.overrideCV, _ = clinvarIDs(cat, cvPath)
		f.overrideHGMD, _ = hgmdIDs(cat, hgmdPath)
	}

	f.primary = compileArm(cfg, cat, req.Annotations)
	f.secondary = compileArm(cfg, cat, req.AnnotationsSecondary)

	if len(req.GeneIDs) > 0 {
		f.genes = make(map[string]bool, len(req.GeneIDs))
		for _, g := range req.GeneIDs {
			f.genes[g] = true
		}
	}
	if len(req.RsIDs) > 0 {
		f.rsIDs = make(map[string]bool, len(req.RsIDs))
		for _, id := range req.RsIDs {
			f.rsIDs[id] = true
		}
	}
	return f, nil
}

// HasSecondary reports whether secondary annotation criteria were given.
func (f *Filter) HasSecondary() bool { return f.secondary != nil }

// Applies reports whether the data type can contribute rows at all; rs id
// restrictions exclude structural data types.
func (f *Filter) Applies() bool {
	return f.rsIDs == nil || !f.cfg.IsSV
}

func (f *Filter) hasPathogenicity() bool {
	return len(f.clinvar) > 0 || len(f.hgmd) > 0
}

func (f *Filter) pathogenicityMatch(a *model.Annotation, clinvar, hgmd map[int]bool) bool {
	if a.ClinVar != nil && clinvar[a.ClinVar.PathogenicityID] {
		return true
	}
	return a.HGMD != nil && hgmd[a.HGMD.ClassID]
}

// PassesFrequency reports whether every requested population bound holds.
func (f *Filter) PassesFrequency(a *model.Annotation) bool {
	override := f.pathOverride && f.pathogenicityMatch(a, f.overrideCV, f.overrideHGMD)
	for _, c := range f.freqs {
		p, ok := a.Populations[c.pop.Name]
		if !c.passes(p, ok, override) {
			return false
		}
	}
	return true
}

// PassesInSilico reports whether any requested predictor passes.
func (f *Filter) PassesInSilico(a *model.Annotation) bool {
	return passesInSilico(f.scores, f.requireScore, a)
}

// Apply sets the primary and secondary flags of an annotated row and
// restricts its genes to the requested ones. It reports false when the row
// is excluded. The row is modified in place.
func (f *Filter) Apply(v *model.Variant) (*model.Variant, bool) {
	a := v.Annotation
	if a == nil {
		return nil, false
	}
	if f.rsIDs != nil && !f.rsIDs[a.RsID] {
		return nil, false
	}
	if f.genes != nil {
		var kept []string
		for _, g := range v.GeneIDs {
			if f.genes[g] {
				kept = append(kept, g)
			}
		}
		if len(kept) == 0 {
			return nil, false
		}
		v.GeneIDs = kept
	}
	if !f.PassesFrequency(a) || !f.PassesInSilico(a) {
		return nil, false
	}

	path := f.hasPathogenicity() && f.pathogenicityMatch(a, f.clinvar, f.hgmd)
	switch {
	case f.primary == nil && !f.hasPathogenicity():
		v.IsPrimary = true
	case path:
		v.IsPrimary = true
	case f.primary != nil:
		v.IsPrimary = f.primary.hasConsequence(v) || f.primary.hasOverride(v)
	default:
		v.IsPrimary = false
	}
	v.IsSecondary = false
	if f.secondary != nil {
		v.IsSecondary = path || f.secondary.hasConsequence(v) || f.secondary.hasOverride(v)
	}
	return v, v.IsPrimary || v.IsSecondary
}
