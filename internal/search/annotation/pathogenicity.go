package annotation

import (
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/datatype"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/globals"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/errors"
)

// Clinical-significance request terms.
const (
	ClinVarPathogenic       = "pathogenic"
	ClinVarLikelyPathogenic = "likely_pathogenic"
	ClinVarVUS              = "vus_or_conflicting"
	ClinVarLikelyBenign     = "likely_benign"
	ClinVarBenign           = "benign"

	HGMDDiseaseCausing       = "disease_causing"
	HGMDLikelyDiseaseCausing = "likely_disease_causing"
	HGMDOther                = "hgmd_other"
)

// ClinVarNoAssertion is the pathogenicity label of a variant absent from
// the clinical database; absent variants sort just above it.
const ClinVarNoAssertion = "No_pathogenic_assertion"

// clinvarRanges maps a request term to an inclusive label range of the
// severity-ordered pathogenicity enum.
var clinvarRanges = map[string][2]string{
	ClinVarPathogenic:       {"Pathogenic", "Pathogenic/Likely_risk_allele"},
	ClinVarLikelyPathogenic: {"Pathogenic/Likely_pathogenic", "Likely_risk_allele"},
	ClinVarVUS:              {"Conflicting_classifications_of_pathogenicity", ClinVarNoAssertion},
	ClinVarLikelyBenign:     {"Likely_benign", "Benign/Likely_benign"},
	ClinVarBenign:           {"Benign/Likely_benign", "Benign"},
}

var hgmdClasses = map[string][]string{
	HGMDDiseaseCausing:       {"DM"},
	HGMDLikelyDiseaseCausing: {"DM?"},
	HGMDOther:                {"DP", "DFP", "FP", "R"},
}

// clinvarIDs resolves request terms to pathogenicity ids.
func clinvarIDs(cat *globals.Catalog, terms []string) (map[int]bool, error) {
	out := make(map[int]bool)
	for _, term := range terms {
		rng, ok := clinvarRanges[term]
		if !ok {
			return nil, apperrors.Invalidf("unsupported clinvar pathogenicity %q", term)
		}
		lo, okLo := cat.ID(datatype.EnumClinVarPathogenicity, rng[0])
		hi, okHi := cat.ID(datatype.EnumClinVarPathogenicity, rng[1])
		if !okLo || !okHi {
			continue
		}
		for id := lo; id <= hi; id++ {
			out[id] = true
		}
	}
	return out, nil
}

func hgmdIDs(cat *globals.Catalog, terms []string) (map[int]bool, error) {
	out := make(map[int]bool)
	for _, term := range terms {
		classes, ok := hgmdClasses[term]
		if !ok {
			return nil, apperrors.Invalidf("unsupported hgmd class %q", term)
		}
		for id := range cat.IDs(datatype.EnumHGMDClass, classes) {
			out[id] = true
		}
	}
	return out, nil
}

// isPathTerm reports whether a request term selects known-pathogenic
// variants, which enables the frequency override.
func isPathTerm(term string) bool {
	switch term {
	case ClinVarPathogenic, ClinVarLikelyPathogenic, HGMDDiseaseCausing:
		return true
	}
	return false
}
