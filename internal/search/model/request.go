package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/genome"
)

// Inheritance modes.
const (
	ModeAnyAffected         = "any_affected"
	ModeDeNovo              = "de_novo"
	ModeHomozygousRecessive = "homozygous_recessive"
	ModeXLinkedRecessive    = "x_linked_recessive"
	ModeRecessive           = "recessive"
	ModeCompoundHet         = "compound_het"
)

// GenotypePattern names a required genotype for one sample.
type GenotypePattern string

const (
	RefRef     GenotypePattern = "ref_ref"
	RefAlt     GenotypePattern = "ref_alt"
	AltAlt     GenotypePattern = "alt_alt"
	HasAlt     GenotypePattern = "has_alt"
	HasRef     GenotypePattern = "has_ref"
	CompHetAlt GenotypePattern = "comp_het_alt"
)

// SearchRequest describes one search: samples, filters, sort and size.
type SearchRequest struct {
	SampleData           map[DataType][]Sample      `json:"sample_data"`
	GenomeVersion        string                     `json:"genome_version"`
	InheritanceMode      string                     `json:"inheritance_mode,omitempty"`
	InheritanceFilter    *InheritanceFilter         `json:"inheritance_filter,omitempty"`
	QualityFilter        *QualityFilter             `json:"quality_filter,omitempty"`
	Frequencies          map[string]FrequencyFilter `json:"frequencies,omitempty"`
	InSilico             *InSilicoFilter            `json:"in_silico,omitempty"`
	Pathogenicity        *PathogenicityFilter       `json:"pathogenicity,omitempty"`
	Annotations          *AnnotationRequest         `json:"annotations,omitempty"`
	AnnotationsSecondary *AnnotationRequest         `json:"annotations_secondary,omitempty"`
	GeneIDs              []string                   `json:"gene_ids,omitempty"`
	RsIDs                []string                   `json:"rs_ids,omitempty"`
	VariantIDs           []string                   `json:"variant_ids,omitempty"`
	VariantKeys          []string                   `json:"variant_keys,omitempty"`
	Intervals            []string                   `json:"intervals,omitempty"`
	ExcludeIntervals     []string                   `json:"exclude_intervals,omitempty"`
	PaddedInterval       *genome.PaddedInterval     `json:"padded_interval,omitempty"`
	Sort                 string                     `json:"sort,omitempty"`
	SortMetadata         *SortMetadata              `json:"sort_metadata,omitempty"`
	NumResults           int                        `json:"num_results,omitempty"`
}

// InheritanceFilter carries per-individual overrides.
type InheritanceFilter struct {
	Genotype map[string]GenotypePattern `json:"genotype,omitempty"`
	Affected map[string]Affected        `json:"affected,omitempty"`
}

// QualityFilter holds numeric minimums keyed by request field (min_gq,
// min_ab, min_qs, min_hl, min_gq_sv) plus site-level options.
type QualityFilter struct {
	Min          map[string]float64
	VCFFilter    string
	AffectedOnly bool
}

func (q *QualityFilter) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	q.Min = make(map[string]float64)
	for k, v := range raw {
		switch {
		case k == "vcf_filter":
			if string(v) != "null" {
				if err := json.Unmarshal(v, &q.VCFFilter); err != nil {
					return fmt.Errorf("quality_filter.vcf_filter: %w", err)
				}
			}
		case k == "affected_only":
			if err := json.Unmarshal(v, &q.AffectedOnly); err != nil {
				return fmt.Errorf("quality_filter.affected_only: %w", err)
			}
		case strings.HasPrefix(k, "min_"):
			f, ok, err := number(v)
			if err != nil {
				return fmt.Errorf("quality_filter.%s: %w", k, err)
			}
			if ok {
				q.Min[k] = f
			}
		}
	}
	return nil
}

func (q QualityFilter) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(q.Min)+2)
	for k, v := range q.Min {
		out[k] = v
	}
	if q.VCFFilter != "" {
		out["vcf_filter"] = q.VCFFilter
	}
	if q.AffectedOnly {
		out["affected_only"] = true
	}
	return json.Marshal(out)
}

// FrequencyFilter bounds one population's frequency fields.
type FrequencyFilter struct {
	AF *float64 `json:"af,omitempty"`
	AC *int     `json:"ac,omitempty"`
	HH *int     `json:"hh,omitempty"`
}

// InSilicoFilter holds per-predictor thresholds as strings: numeric for
// score predictors, an enum label for categorical ones.
type InSilicoFilter struct {
	Scores       map[string]string
	RequireScore bool
}

func (f *InSilicoFilter) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	f.Scores = make(map[string]string)
	for k, v := range raw {
		if k == "requireScore" {
			if err := json.Unmarshal(v, &f.RequireScore); err != nil {
				return fmt.Errorf("in_silico.requireScore: %w", err)
			}
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			if s != "" {
				f.Scores[k] = s
			}
			continue
		}
		n, ok, err := number(v)
		if err != nil {
			return fmt.Errorf("in_silico.%s: %w", k, err)
		}
		if ok {
			f.Scores[k] = strconv.FormatFloat(n, 'f', -1, 64)
		}
	}
	return nil
}

func (f InSilicoFilter) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.Scores)+1)
	for k, v := range f.Scores {
		out[k] = v
	}
	if f.RequireScore {
		out["requireScore"] = true
	}
	return json.Marshal(out)
}

// PathogenicityFilter selects clinical-significance categories.
type PathogenicityFilter struct {
	ClinVar []string `json:"clinvar,omitempty"`
	HGMD    []string `json:"hgmd,omitempty"`
}

// Empty reports whether no category is requested.
func (p *PathogenicityFilter) Empty() bool {
	return p == nil || (len(p.ClinVar) == 0 && len(p.HGMD) == 0)
}

// Reserved annotation request keys; every other key lists consequence terms.
const (
	AnnotationSpliceAI      = "splice_ai"
	AnnotationScreen        = "SCREEN"
	AnnotationStructural    = "structural"
	AnnotationSVConsequence = "structural_consequence"
	AnnotationNewSV         = "new_structural_variants"
	AnnotationMotifFeature  = "motif_feature"
	AnnotationRegulatory    = "regulatory_feature"
)

// AnnotationRequest is the decoded form of an annotations object.
type AnnotationRequest struct {
	Consequences       []string
	SpliceAI           *float64
	Screen             []string
	SVTypes            []string
	SVConsequences     []string
	NewStructural      []string
	MotifFeatures      []string
	RegulatoryFeatures []string
}

func (a *AnnotationRequest) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*a = AnnotationRequest{}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := raw[k]
		if string(v) == "null" {
			continue
		}
		if k == AnnotationSpliceAI {
			f, ok, err := number(v)
			if err != nil {
				return fmt.Errorf("annotations.splice_ai: %w", err)
			}
			if ok {
				a.SpliceAI = &f
			}
			continue
		}
		var terms []string
		if err := json.Unmarshal(v, &terms); err != nil {
			return fmt.Errorf("annotations.%s: %w", k, err)
		}
		switch k {
		case AnnotationScreen:
			a.Screen = append(a.Screen, terms...)
		case AnnotationStructural:
			a.SVTypes = append(a.SVTypes, terms...)
		case AnnotationSVConsequence:
			a.SVConsequences = append(a.SVConsequences, terms...)
		case AnnotationNewSV:
			a.NewStructural = append(a.NewStructural, terms...)
		case AnnotationMotifFeature:
			a.MotifFeatures = append(a.MotifFeatures, terms...)
		case AnnotationRegulatory:
			a.RegulatoryFeatures = append(a.RegulatoryFeatures, terms...)
		default:
			a.Consequences = append(a.Consequences, terms...)
		}
	}
	return nil
}

func (a AnnotationRequest) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)
	if len(a.Consequences) > 0 {
		out["consequences"] = a.Consequences
	}
	if a.SpliceAI != nil {
		out[AnnotationSpliceAI] = *a.SpliceAI
	}
	put := func(k string, v []string) {
		if len(v) > 0 {
			out[k] = v
		}
	}
	put(AnnotationScreen, a.Screen)
	put(AnnotationStructural, a.SVTypes)
	put(AnnotationSVConsequence, a.SVConsequences)
	put(AnnotationNewSV, a.NewStructural)
	put(AnnotationMotifFeature, a.MotifFeatures)
	put(AnnotationRegulatory, a.RegulatoryFeatures)
	return json.Marshal(out)
}

// Empty reports whether the request constrains nothing.
func (a *AnnotationRequest) Empty() bool {
	return a == nil || (len(a.Consequences) == 0 && a.SpliceAI == nil && len(a.Screen) == 0 &&
		len(a.SVTypes) == 0 && len(a.SVConsequences) == 0 && len(a.NewStructural) == 0 &&
		len(a.MotifFeatures) == 0 && len(a.RegulatoryFeatures) == 0)
}

// SortMetadata is caller-supplied gene metadata for sorting: either a list
// of gene ids (membership) or a map of gene id to rank.
type SortMetadata struct {
	Genes map[string]float64
}

func (m *SortMetadata) UnmarshalJSON(b []byte) error {
	m.Genes = make(map[string]float64)
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		for _, g := range list {
			m.Genes[g] = 1
		}
		return nil
	}
	var ranks map[string]float64
	if err := json.Unmarshal(b, &ranks); err != nil {
		return fmt.Errorf("sort_metadata must be a gene list or a gene rank map: %w", err)
	}
	m.Genes = ranks
	return nil
}

func (m SortMetadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Genes)
}

// number decodes a JSON number or numeric string; null and "" are absent.
func number(v json.RawMessage) (float64, bool, error) {
	if string(v) == "null" {
		return 0, false, nil
	}
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return f, true, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return 0, false, fmt.Errorf("expected a number")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("expected a number, got %q", s)
	}
	return f, true, nil
}

// LookupRequest asks for annotations of one or more variants.
type LookupRequest struct {
	VariantIDs    []string `json:"variant_ids"`
	GenomeVersion string   `json:"genome_version"`
	DataType      DataType `json:"data_type,omitempty"`
}
