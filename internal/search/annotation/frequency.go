package annotation

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/datatype"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/errors"
)

// PathFreqOverrideCutoff is the allele frequency ceiling applied to
// known-pathogenic variants when the request enables the override.
const PathFreqOverrideCutoff = 0.05

// CallsetAlias names the data type's own callset in frequency requests.
const CallsetAlias = "callset"

type freqCriterion struct {
	pop datatype.Population
	af  *float64
	ac  *int
	hh  *int
}

// compileFrequencies keeps the populations the data type defines. An af of
// 1 or more does not constrain; af takes precedence over ac.
func compileFrequencies(cfg *datatype.Config, req map[string]model.FrequencyFilter) ([]freqCriterion, error) {
	var out []freqCriterion
	for name, ff := range req {
		if ff.AF != nil && (*ff.AF < 0 || math.IsNaN(*ff.AF)) {
			return nil, apperrors.Invalidf("frequencies.%s.af must be between 0 and 1", name)
		}
		if ff.AC != nil && *ff.AC < 0 {
			return nil, apperrors.Invalidf("frequencies.%s.ac must not be negative", name)
		}
		if ff.HH != nil && *ff.HH < 0 {
			return nil, apperrors.Invalidf("frequencies.%s.hh must not be negative", name)
		}
		if name == CallsetAlias {
			name = cfg.CallsetPopulation
		}
		pop, ok := cfg.Population(name)
		if !ok {
			continue
		}
		c := freqCriterion{pop: pop}
		switch {
		case ff.AF != nil && *ff.AF < 1:
			c.af = ff.AF
		case ff.AC != nil:
			c.ac = ff.AC
		}
		if pop.HasHH {
			c.hh = ff.HH
		}
		if c.af != nil || c.ac != nil || c.hh != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

// passes reports whether a population's values are within bounds. Absent
// values pass. With override set the af cutoff is raised to the override
// ceiling; the ac and hom/hemi bounds still apply.
func (c freqCriterion) passes(p model.Population, present, override bool) bool {
	if !present {
		return true
	}
	if c.af != nil {
		af := p.AF
		if c.pop.FilterAF && p.FilterAF != nil {
			af = p.FilterAF
		}
		cutoff := *c.af
		if override {
			cutoff = math.Max(cutoff, PathFreqOverrideCutoff)
		}
		if af != nil && *af > cutoff {
			return false
		}
	}
	if c.ac != nil && p.AC != nil && *p.AC > *c.ac {
		return false
	}
	if c.hh != nil {
		hh := 0
		if p.Hom != nil {
			hh += *p.Hom
		}
		if p.Hemi != nil {
			hh += *p.Hemi
		}
		if hh > *c.hh {
			return false
		}
	}
	return true
}
