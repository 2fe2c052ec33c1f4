package model

// Annotation is one row of a data type's annotation catalog. Enumerated
// fields hold integer ids resolved through the catalog's enum table.
type Annotation struct {
	Key       string `json:"key"`
	VariantID string `json:"variant_id"`
	Chrom     string `json:"chrom"`
	Pos       int    `json:"pos"`
	Ref       string `json:"ref,omitempty"`
	Alt       string `json:"alt,omitempty"`
	End       int    `json:"end,omitempty"`
	EndChrom  string `json:"end_chrom,omitempty"`
	XPos      int64  `json:"xpos"`
	RsID      string `json:"rsid,omitempty"`

	Transcripts        []Transcript      `json:"transcripts,omitempty"`
	MotifFeatures      []Feature         `json:"motif_features,omitempty"`
	RegulatoryFeatures []Feature         `json:"regulatory_features,omitempty"`
	GeneConsequences   []GeneConsequence `json:"gene_consequences,omitempty"`

	Populations map[string]Population `json:"populations,omitempty"`
	Predictions map[string]*float64   `json:"predictions,omitempty"`

	ClinVar        *ClinVar `json:"clinvar,omitempty"`
	HGMD           *HGMD    `json:"hgmd,omitempty"`
	ScreenRegions  []int    `json:"screen_region_type_ids,omitempty"`
	SVTypeID       *int     `json:"sv_type_id,omitempty"`
	SVTypeDetailID *int     `json:"sv_type_detail_id,omitempty"`

	LiftedOver *LiftedOver `json:"lifted_over,omitempty"`
}

// Transcript is one transcript consequence of a point variant.
type Transcript struct {
	GeneID             string `json:"gene_id"`
	TranscriptID       string `json:"transcript_id"`
	ConsequenceTermIDs []int  `json:"consequence_term_ids"`
	Canonical          bool   `json:"canonical,omitempty"`
	HGVSc              string `json:"hgvsc,omitempty"`
	HGVSp              string `json:"hgvsp,omitempty"`
}

// Feature is a motif or regulatory feature consequence.
type Feature struct {
	FeatureID          string `json:"feature_id,omitempty"`
	ConsequenceTermIDs []int  `json:"consequence_term_ids"`
}

// GeneConsequence is a structural variant's effect on one gene.
type GeneConsequence struct {
	GeneID             string `json:"gene_id"`
	MajorConsequenceID int    `json:"major_consequence_id"`
}

// Population holds frequency fields; any may be absent.
type Population struct {
	AF       *float64 `json:"af,omitempty"`
	AC       *int     `json:"ac,omitempty"`
	AN       *int     `json:"an,omitempty"`
	Hom      *int     `json:"hom,omitempty"`
	Hemi     *int     `json:"hemi,omitempty"`
	FilterAF *float64 `json:"filter_af,omitempty"`
}

// ClinVar holds the clinical-significance record of a variant.
type ClinVar struct {
	AlleleID        int   `json:"allele_id,omitempty"`
	PathogenicityID int   `json:"pathogenicity_id"`
	AssertionIDs    []int `json:"assertion_ids,omitempty"`
	GoldStars       *int  `json:"gold_stars,omitempty"`
}

// HGMD holds the disease-database classification of a variant.
type HGMD struct {
	Accession string `json:"accession,omitempty"`
	ClassID   int    `json:"class_id"`
}

// LiftedOver holds coordinates on the other reference build.
type LiftedOver struct {
	GenomeVersion string `json:"genome_version"`
	Chrom         string `json:"chrom"`
	Pos           int    `json:"pos"`
}

// GeneIDs returns the distinct genes of the annotation in first-seen order.
func (a *Annotation) GeneIDs() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(g string) {
		if g != "" && !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	for _, t := range a.Transcripts {
		add(t.GeneID)
	}
	for _, c := range a.GeneConsequences {
		add(c.GeneID)
	}
	return out
}
