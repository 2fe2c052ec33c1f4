// Package inheritance evaluates family genotype patterns for an inheritance
// mode and builds compound-heterozygous pairs.
package inheritance

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/datatype"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/errors"
)

// patterns assigns the required genotype per affected status for each mode
// evaluated sample by sample. Unknown-status samples are unconstrained.
var patterns = map[string]map[model.Affected]model.GenotypePattern{
	model.ModeDeNovo: {
		model.AffectedYes: model.HasAlt,
		model.AffectedNo:  model.RefRef,
	},
	model.ModeHomozygousRecessive: {
		model.AffectedYes: model.AltAlt,
		model.AffectedNo:  model.HasRef,
	},
	model.ModeXLinkedRecessive: {
		model.AffectedYes: model.AltAlt,
		model.AffectedNo:  model.HasRef,
	},
	model.ModeCompoundHet: {
		model.AffectedYes: model.CompHetAlt,
		model.AffectedNo:  model.HasRef,
	},
}

// ValidMode reports whether mode is a supported inheritance mode. The empty
// mode is valid and only requires a non-reference call.
func ValidMode(mode string) bool {
	switch mode {
	case "", model.ModeAnyAffected, model.ModeRecessive:
		return true
	}
	_, ok := patterns[mode]
	return ok
}

// Evaluator decides family validity for one data type and request.
type Evaluator struct {
	cfg       *datatype.Config
	mode      string
	genotypes map[string]model.GenotypePattern
	affected  map[string]model.Affected
}

// New validates the inheritance parameters of a request.
func New(cfg *datatype.Config, mode string, filter *model.InheritanceFilter) (*Evaluator, error) {
	if !ValidMode(mode) {
		return nil, apperrors.Invalidf("unsupported inheritance mode %q", mode)
	}
	ev := &Evaluator{cfg: cfg, mode: mode}
	if filter != nil {
		for ind, p := range filter.Genotype {
			if !datatype.ValidPattern(p) {
				return nil, apperrors.Invalidf("unsupported genotype %q for individual %s", p, ind)
			}
		}
		for ind, a := range filter.Affected {
			switch a {
			case model.AffectedYes, model.AffectedNo, model.AffectedUnknown:
			default:
				return nil, apperrors.Invalidf("unsupported affected status %q for individual %s", a, ind)
			}
		}
		ev.genotypes = filter.Genotype
		ev.affected = filter.Affected
	}
	return ev, nil
}

// Mode returns the inheritance mode.
func (ev *Evaluator) Mode() string { return ev.mode }

// SinglePath reports whether variants can be returned on their own.
func (ev *Evaluator) SinglePath() bool { return ev.mode != model.ModeCompoundHet }

// CompHetPath reports whether compound-het pairs are built.
func (ev *Evaluator) CompHetPath() bool {
	return ev.mode == model.ModeCompoundHet || ev.mode == model.ModeRecessive
}

func (ev *Evaluator) affectedStatus(e *model.Entry) model.Affected {
	return status(e, ev.affected)
}

// Single reports whether a family group is valid on the single-variant path.
func (ev *Evaluator) Single(v *model.Variant, g model.FamilyGroup) bool {
	if g == nil {
		return false
	}
	switch ev.mode {
	case model.ModeRecessive:
		if ev.matches(v, g, model.ModeHomozygousRecessive) {
			return true
		}
		return isChrX(v) && ev.matches(v, g, model.ModeXLinkedRecessive)
	case model.ModeXLinkedRecessive:
		return isChrX(v) && ev.matches(v, g, ev.mode)
	case model.ModeCompoundHet:
		return false
	}
	return ev.matches(v, g, ev.mode)
}

// CompHet reports whether a family group can take part in a compound-het
// pair. A family with two or more unaffected carriers and no unaffected
// homozygous reference sample is not informative and is rejected.
func (ev *Evaluator) CompHet(v *model.Variant, g model.FamilyGroup) bool {
	if g == nil || !ev.CompHetPath() || !ev.matches(v, g, model.ModeCompoundHet) {
		return false
	}
	carriers, homRef := 0, false
	for _, e := range g {
		if ev.affectedStatus(e) != model.AffectedNo {
			continue
		}
		switch {
		case e.GT.IsNonRef():
			carriers++
		case e.GT == model.GTRef:
			homRef = true
		}
	}
	return carriers < 2 || homRef
}

// matches evaluates mode over every sample of the group.
func (ev *Evaluator) matches(v *model.Variant, g model.FamilyGroup, mode string) bool {
	nonRef, hasAffected := false, false
	affectedCarrier := false
	for _, e := range g {
		st := ev.affectedStatus(e)
		if e.GT.IsNonRef() {
			nonRef = true
			if st == model.AffectedYes {
				affectedCarrier = true
			}
		}
		if st == model.AffectedYes {
			hasAffected = true
		}
		if p, ok := ev.genotypes[e.IndividualGUID]; ok {
			if !datatype.MatchGenotype(ev.cfg, p, e) {
				return false
			}
			continue
		}
		required, ok := patterns[mode][st]
		if !ok {
			continue
		}
		if mode == model.ModeXLinkedRecessive && st == model.AffectedNo && e.Sex == model.Male {
			required = model.RefRef
		}
		if !datatype.MatchGenotype(ev.cfg, required, e) {
			return false
		}
	}
	switch mode {
	case "":
		return nonRef
	case model.ModeAnyAffected:
		return affectedCarrier
	}
	return nonRef && hasAffected
}

// Apply returns a copy of v whose Families hold the groups valid on the
// single path and whose CompHetFamilies hold the groups valid for pairing,
// and false when neither holds any group.
func (ev *Evaluator) Apply(v *model.Variant) (*model.Variant, bool) {
	out := v.Clone()
	statuses := ev.Evaluate(v)
	compHet := ev.CompHetPath()
	if compHet {
		out.CompHetFamilies = make([]model.FamilyGroup, len(v.Families))
	} else {
		out.CompHetFamilies = nil
	}
	ok := false
	for i, g := range v.Families {
		if !statuses[i].Single {
			out.Families[i] = nil
		}
		if compHet && statuses[i].CompHet {
			out.CompHetFamilies[i] = g
		}
		ok = ok || out.Families[i] != nil || (compHet && out.CompHetFamilies[i] != nil)
	}
	return out, ok
}

// Status is the evaluation of one family group.
type Status struct {
	Single  bool
	CompHet bool
}

// Evaluate returns the status of every family group of v.
func (ev *Evaluator) Evaluate(v *model.Variant) []Status {
	out := make([]Status, len(v.Families))
	for i, g := range v.Families {
		if g == nil {
			continue
		}
		out[i] = Status{Single: ev.Single(v, g), CompHet: ev.CompHet(v, g)}
	}
	return out
}

func isChrX(v *model.Variant) bool {
	chrom, _ := genome.FromXPos(v.XPos)
	return chrom == "X"
}

// PairKey joins two variant ids in order.
func PairKey(a, b *model.Variant) string {
	return a.ID() + "|" + b.ID()
}

func sortedGenes(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for g := range set {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// String describes the evaluator in log lines.
func (ev *Evaluator) String() string {
	var b strings.Builder
	b.WriteString(string(ev.cfg.DataType))
	b.WriteString(":")
	if ev.mode == "" {
		b.WriteString("none")
	} else {
		b.WriteString(ev.mode)
	}
	if len(ev.genotypes) > 0 {
		b.WriteString("+custom")
	}
	return b.String()
}
