package datatype

import "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"

// MatchGenotype reports whether an entry's call satisfies a pattern. A
// missing call satisfies nothing.
func MatchGenotype(cfg *Config, pattern model.GenotypePattern, e *model.Entry) bool {
	if e.GT == model.GTMissing {
		return false
	}
	homAlt := e.GT == model.GTHomAlt
	if cfg.HasCN {
		homAlt = e.GT.IsNonRef() && copyNumberHomAlt(e)
	}
	switch pattern {
	case model.RefRef:
		return e.GT == model.GTRef
	case model.RefAlt:
		return e.GT.IsNonRef() && !homAlt
	case model.AltAlt:
		return homAlt
	case model.HasAlt:
		return e.GT.IsNonRef()
	case model.HasRef:
		return e.GT == model.GTRef || (e.GT.IsNonRef() && !homAlt)
	case model.CompHetAlt:
		return e.GT.IsNonRef()
	}
	return false
}

// IsHomAlt reports whether a non-missing call is homozygous alternate under
// the data type's rules.
func IsHomAlt(cfg *Config, e *model.Entry) bool {
	return MatchGenotype(cfg, model.AltAlt, e)
}

// copyNumberHomAlt treats a full deletion or a high duplication as
// homozygous.
func copyNumberHomAlt(e *model.Entry) bool {
	if e.CN == nil {
		return e.GT == model.GTHomAlt
	}
	return *e.CN == 0 || *e.CN >= 4
}

// ValidPattern reports whether p is a caller-facing genotype pattern.
func ValidPattern(p model.GenotypePattern) bool {
	switch p {
	case model.RefRef, model.RefAlt, model.AltAlt, model.HasAlt, model.HasRef:
		return true
	}
	return false
}
