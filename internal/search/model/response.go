package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Result is a display-ready variant with enum ids expanded to labels.
type Result struct {
	VariantID     string   `json:"variantId"`
	Key           string   `json:"key"`
	DataType      DataType `json:"dataType"`
	GenomeVersion string   `json:"genomeVersion"`
	Chrom         string   `json:"chrom"`
	Pos           int      `json:"pos"`
	Ref           string   `json:"ref,omitempty"`
	Alt           string   `json:"alt,omitempty"`
	End           int      `json:"end,omitempty"`
	EndChrom      string   `json:"endChrom,omitempty"`
	XPos          int64    `json:"xpos"`
	RsID          string   `json:"rsid,omitempty"`

	FamilyGUIDs     []string                      `json:"familyGuids"`
	Genotypes       map[string]map[string]any     `json:"genotypes"`
	GenotypeFilters string                        `json:"genotypeFilters"`
	Transcripts     map[string][]ResultTranscript `json:"transcripts,omitempty"`

	MainTranscriptID         string `json:"mainTranscriptId,omitempty"`
	SelectedMainTranscriptID string `json:"selectedMainTranscriptId,omitempty"`

	SVType             string                `json:"svType,omitempty"`
	SVTypeDetail       string                `json:"svTypeDetail,omitempty"`
	SVGeneConsequences []ResultGeneConseq    `json:"svGeneConsequences,omitempty"`
	MotifFeatures      []ResultFeature       `json:"motifFeatures,omitempty"`
	RegulatoryFeatures []ResultFeature       `json:"regulatoryFeatures,omitempty"`
	ScreenRegionType   []string              `json:"screenRegionType,omitempty"`
	Populations        map[string]Population `json:"populations,omitempty"`
	Predictions        map[string]any        `json:"predictions,omitempty"`
	ClinVar            *ResultClinVar        `json:"clinvar,omitempty"`
	HGMD               *ResultHGMD           `json:"hgmd,omitempty"`
	LiftedOverGenome   string                `json:"liftedOverGenomeVersion,omitempty"`
	LiftedOverChrom    string                `json:"liftedOverChrom,omitempty"`
	LiftedOverPos      int                   `json:"liftedOverPos,omitempty"`
	Sort               []float64             `json:"_sort"`
}

// ResultTranscript is a transcript consequence with labels.
type ResultTranscript struct {
	TranscriptID     string   `json:"transcriptId"`
	GeneID           string   `json:"geneId"`
	ConsequenceTerms []string `json:"consequenceTerms"`
	MajorConsequence string   `json:"majorConsequence,omitempty"`
	Canonical        bool     `json:"canonical,omitempty"`
	HGVSc            string   `json:"hgvsc,omitempty"`
	HGVSp            string   `json:"hgvsp,omitempty"`
	TranscriptRank   int      `json:"transcriptRank"`
}

// ResultGeneConseq is a structural variant gene consequence with labels.
type ResultGeneConseq struct {
	GeneID           string `json:"geneId"`
	MajorConsequence string `json:"majorConsequence"`
}

// ResultFeature is a motif or regulatory feature with labels.
type ResultFeature struct {
	FeatureID        string   `json:"featureId,omitempty"`
	ConsequenceTerms []string `json:"consequenceTerms"`
}

// ResultClinVar is a clinical-significance record with labels.
type ResultClinVar struct {
	AlleleID      int      `json:"alleleId,omitempty"`
	Pathogenicity string   `json:"pathogenicity"`
	Assertions    []string `json:"assertions,omitempty"`
	GoldStars     *int     `json:"goldStars,omitempty"`
}

// ResultHGMD is a disease-database classification with labels.
type ResultHGMD struct {
	Accession string `json:"accession,omitempty"`
	Class     string `json:"class"`
}

// ResultRow is either a single result or a compound-het pair; it
// serializes as the bare object or a two-element array.
type ResultRow struct {
	Single *Result
	Pair   []*Result
}

func (r ResultRow) MarshalJSON() ([]byte, error) {
	if r.Pair != nil {
		return json.Marshal(r.Pair)
	}
	return json.Marshal(r.Single)
}

func (r *ResultRow) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var pair []*Result
		if err := json.Unmarshal(b, &pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("compound het row must have 2 members, got %d", len(pair))
		}
		r.Pair = pair
		return nil
	}
	r.Single = new(Result)
	return json.Unmarshal(b, r.Single)
}

// SortKey returns the serialized sort vector of the row.
func (r ResultRow) SortKey() []float64 {
	if r.Pair != nil {
		return r.Pair[0].Sort
	}
	return r.Single.Sort
}

// SearchResponse is returned by a search.
type SearchResponse struct {
	Results []ResultRow `json:"results"`
	Total   int         `json:"total"`
}

// GeneCount aggregates results for one gene.
type GeneCount struct {
	Total    int            `json:"total"`
	Families map[string]int `json:"families"`
}

// GeneCounts maps gene id to its aggregate.
type GeneCounts map[string]*GeneCount
