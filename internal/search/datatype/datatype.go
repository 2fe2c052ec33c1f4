// Package datatype holds one configuration record per variant data type.
// Pipeline stages never branch on the data type name; they read the fields
// of the record selected by Get.
package datatype

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
)

// QualityField maps a request criterion onto an entry metric.
type QualityField struct {
	Request string
	Metric  string
	// Scale divides the request value before comparison; percentages in
	// the request become fractions.
	Scale float64
	// HetOnly restricts the criterion to heterozygous calls.
	HetOnly bool
}

// Threshold converts a request value into metric units.
func (q QualityField) Threshold(v float64) float64 {
	if q.Scale == 0 {
		return v
	}
	return v / q.Scale
}

// Population describes a population frequency source.
type Population struct {
	Name string
	// HasHH marks populations carrying hom and hemi counts.
	HasHH bool
	// FilterAF marks populations whose filtering allele frequency is
	// preferred over af when present.
	FilterAF bool
}

// Predictor describes an in-silico score.
type Predictor struct {
	Name string
	// Enum names the catalog enum of a categorical predictor.
	Enum string
	// Reversed predictors pass at or below the threshold.
	Reversed bool
}

// Config is the per-data-type behaviour record.
type Config struct {
	DataType    model.DataType
	SampleTypes []model.SampleType

	Quality      []QualityField
	QualityFirst bool
	HasCN        bool
	IsSV         bool
	// Concordance marks tables carrying new/previous call flags.
	Concordance bool

	Populations []Population
	Predictors  []Predictor

	// ConsequenceEnum is the catalog enum of the variant's consequences;
	// ConsequenceOffset shifts its ranks so that structural and point
	// consequences occupy disjoint ranges.
	ConsequenceEnum   string
	ConsequenceOffset float64
	HasPathogenicity  bool
	// CallsetPopulation is the population sorted on by callset_af.
	CallsetPopulation string
}

// Catalog enum names.
const (
	EnumTranscriptConsequence = "transcript_consequence"
	EnumMotifConsequence      = "motif_consequence"
	EnumRegulatoryConsequence = "regulatory_consequence"
	EnumClinVarPathogenicity  = "clinvar_pathogenicity"
	EnumClinVarAssertion      = "clinvar_assertion"
	EnumHGMDClass             = "hgmd_class"
	EnumScreenRegion          = "screen_region_type"
	EnumSVType                = "sv_type"
	EnumSVTypeDetail          = "sv_type_detail"
	EnumSVConsequence         = "sv_consequence"
)

// SVConsequenceRankOffset separates structural consequence ranks from
// point-variant consequence ranks.
const SVConsequenceRankOffset = 1000

var (
	snvIndel = &Config{
		DataType:    model.SNVIndel,
		SampleTypes: []model.SampleType{model.WES, model.WGS},
		Quality: []QualityField{
			{Request: "min_gq", Metric: "gq"},
			{Request: "min_ab", Metric: "ab", Scale: 100, HetOnly: true},
		},
		QualityFirst: true,
		Populations: []Population{
			{Name: "seqr"},
			{Name: "topmed", HasHH: true},
			{Name: "exac", HasHH: true},
			{Name: "gnomad_exomes", HasHH: true, FilterAF: true},
			{Name: "gnomad_genomes", HasHH: true, FilterAF: true},
		},
		Predictors: []Predictor{
			{Name: "cadd"},
			{Name: "eigen"},
			{Name: "mpc"},
			{Name: "primate_ai"},
			{Name: "revel"},
			{Name: "splice_ai"},
			{Name: "vest"},
			{Name: "mut_pred"},
			{Name: "gnomad_noncoding"},
			{Name: "sift", Reversed: true},
			{Name: "polyphen"},
			{Name: "mut_taster", Enum: "mut_taster"},
			{Name: "fathmm", Enum: "fathmm"},
		},
		ConsequenceEnum:   EnumTranscriptConsequence,
		HasPathogenicity:  true,
		CallsetPopulation: "seqr",
	}

	mito = &Config{
		DataType:    model.Mito,
		SampleTypes: []model.SampleType{model.WES, model.WGS},
		Quality: []QualityField{
			{Request: "min_gq", Metric: "gq"},
			{Request: "min_hl", Metric: "hl", Scale: 100},
		},
		QualityFirst: true,
		Populations: []Population{
			{Name: "seqr"},
			{Name: "gnomad_mito"},
			{Name: "helix"},
		},
		Predictors: []Predictor{
			{Name: "apogee"},
			{Name: "hmtvar"},
			{Name: "mlc"},
			{Name: "sift", Reversed: true},
			{Name: "mut_taster", Enum: "mut_taster"},
			{Name: "fathmm", Enum: "fathmm"},
			{Name: "mitotip", Enum: "mitotip"},
		},
		ConsequenceEnum:   EnumTranscriptConsequence,
		HasPathogenicity:  true,
		CallsetPopulation: "seqr",
	}

	svWES = &Config{
		DataType:    model.SVWES,
		SampleTypes: []model.SampleType{model.WES},
		Quality: []QualityField{
			{Request: "min_qs", Metric: "qs"},
		},
		HasCN:       true,
		IsSV:        true,
		Concordance: true,
		Populations: []Population{
			{Name: "sv_callset"},
		},
		Predictors: []Predictor{
			{Name: "strvctvre"},
		},
		ConsequenceEnum:   EnumSVConsequence,
		ConsequenceOffset: SVConsequenceRankOffset,
		CallsetPopulation: "sv_callset",
	}

	svWGS = &Config{
		DataType:    model.SVWGS,
		SampleTypes: []model.SampleType{model.WGS},
		Quality: []QualityField{
			{Request: "min_gq_sv", Metric: "gq"},
		},
		IsSV: true,
		Populations: []Population{
			{Name: "sv_callset"},
			{Name: "gnomad_svs"},
		},
		Predictors: []Predictor{
			{Name: "strvctvre"},
		},
		ConsequenceEnum:   EnumSVConsequence,
		ConsequenceOffset: SVConsequenceRankOffset,
		CallsetPopulation: "sv_callset",
	}

	configs = map[model.DataType]*Config{
		model.SNVIndel: snvIndel,
		model.Mito:     mito,
		model.SVWES:    svWES,
		model.SVWGS:    svWGS,
	}
)

// Get returns the configuration of a data type.
func Get(dt model.DataType) (*Config, error) {
	cfg, ok := configs[dt]
	if !ok {
		return nil, fmt.Errorf("unsupported data type %q", dt)
	}
	return cfg, nil
}

// MustGet is Get for data types known at compile time.
func MustGet(dt model.DataType) *Config {
	cfg, err := Get(dt)
	if err != nil {
		panic(err)
	}
	return cfg
}

// QualityField returns the field mapped to a request criterion.
func (c *Config) QualityField(request string) (QualityField, bool) {
	for _, q := range c.Quality {
		if q.Request == request {
			return q, true
		}
	}
	return QualityField{}, false
}

// Population returns a population by request name.
func (c *Config) Population(name string) (Population, bool) {
	for _, p := range c.Populations {
		if p.Name == name {
			return p, true
		}
	}
	return Population{}, false
}

// Predictor returns a predictor by request name.
func (c *Config) Predictor(name string) (Predictor, bool) {
	for _, p := range c.Predictors {
		if p.Name == name {
			return p, true
		}
	}
	return Predictor{}, false
}

// SupportsSampleType reports whether tables of this data type exist for st.
func (c *Config) SupportsSampleType(st model.SampleType) bool {
	for _, s := range c.SampleTypes {
		if s == st {
			return true
		}
	}
	return false
}
