package sorting

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/datatype"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/globals"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
)

// Formatter turns rows into display-ready results.
type Formatter struct {
	build    genome.Build
	catalogs map[model.DataType]*globals.Catalog
	// genes restricts the selected main transcript.
	genes map[string]bool
}

func NewFormatter(build genome.Build, catalogs map[model.DataType]*globals.Catalog, geneIDs []string) *Formatter {
	f := &Formatter{build: build, catalogs: catalogs}
	if len(geneIDs) > 0 {
		f.genes = make(map[string]bool, len(geneIDs))
		for _, g := range geneIDs {
			f.genes[g] = true
		}
	}
	return f
}

// Row formats a single variant or both members of a pair.
func (f *Formatter) Row(r model.Row) model.ResultRow {
	if r.Pair != nil {
		return model.ResultRow{Pair: []*model.Result{f.Variant(r.Pair.V1), f.Variant(r.Pair.V2)}}
	}
	return model.ResultRow{Single: f.Variant(r.Variant)}
}

// Variant formats a row with its valid families' genotypes.
func (f *Formatter) Variant(v *model.Variant) *model.Result {
	res := f.Annotation(v.DataType, v.Annotation)
	res.Key = v.Key
	if res.VariantID == "" {
		res.VariantID = v.VariantID
	}
	res.XPos = v.XPos
	res.GenotypeFilters = strings.Join(v.Filters, ",")
	res.Sort = v.Sort
	res.FamilyGUIDs = []string{}
	res.Genotypes = make(map[string]map[string]any)

	var fields []string
	if v.Schema != nil {
		fields = v.Schema.EntryFields
	}
	guids := make(map[string]bool)
	for i, g := range v.Families {
		if g == nil {
			continue
		}
		if v.Schema != nil && i < len(v.Schema.FamilyGUIDs) {
			guids[v.Schema.FamilyGUIDs[i]] = true
		}
		for _, e := range g {
			res.Genotypes[e.IndividualGUID] = genotype(e, fields)
		}
	}
	for g := range guids {
		res.FamilyGUIDs = append(res.FamilyGUIDs, g)
	}
	sort.Strings(res.FamilyGUIDs)

	if f.genes != nil && res.MainTranscriptID != "" {
		if sel := f.selectedTranscript(res); sel != res.MainTranscriptID {
			res.SelectedMainTranscriptID = sel
		}
	}
	return res
}

// genotype renders one call. Every entry field of the schema is present;
// fields the call lacks are null.
func genotype(e *model.Entry, fields []string) map[string]any {
	out := map[string]any{
		"sampleId":       e.SampleID,
		"sampleType":     e.SampleType,
		"individualGuid": e.IndividualGUID,
		"familyGuid":     e.FamilyGUID,
		"numAlt":         int(e.GT),
	}
	for _, field := range fields {
		switch field {
		case "gt":
			continue
		case "cn":
			if e.CN != nil {
				out["cn"] = *e.CN
			} else {
				out["cn"] = nil
			}
		case "new_call", "prev_call", "prev_overlap":
			if e.Concordance == nil {
				out[camel(field)] = nil
				continue
			}
			switch field {
			case "new_call":
				out["newCall"] = e.Concordance.NewCall
			case "prev_call":
				out["prevCall"] = e.Concordance.PrevCall
			default:
				out["prevOverlap"] = e.Concordance.PrevOverlap
			}
		default:
			if m, ok := e.Metric(field); ok {
				out[field] = m
			} else {
				out[field] = nil
			}
		}
	}
	return out
}

func camel(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

// Annotation formats an annotation without genotypes, as returned by
// lookups.
func (f *Formatter) Annotation(dt model.DataType, a *model.Annotation) *model.Result {
	cfg := datatype.MustGet(dt)
	cat := f.catalogs[dt]
	if cat == nil {
		cat = globals.NewCatalog(nil)
	}
	res := &model.Result{
		DataType:      dt,
		GenomeVersion: string(f.build),
		Genotypes:     map[string]map[string]any{},
		FamilyGUIDs:   []string{},
	}
	if a == nil {
		return res
	}
	res.VariantID = a.VariantID
	res.Key = a.Key
	res.Chrom = a.Chrom
	res.Pos = a.Pos
	res.Ref = a.Ref
	res.Alt = a.Alt
	res.End = a.End
	res.EndChrom = a.EndChrom
	res.XPos = a.XPos
	res.RsID = a.RsID
	res.Populations = a.Populations

	f.transcripts(cfg, cat, a, res)

	if a.SVTypeID != nil {
		res.SVType = cat.Label(datatype.EnumSVType, *a.SVTypeID)
	}
	if a.SVTypeDetailID != nil {
		res.SVTypeDetail = cat.Label(datatype.EnumSVTypeDetail, *a.SVTypeDetailID)
	}
	for _, gc := range a.GeneConsequences {
		res.SVGeneConsequences = append(res.SVGeneConsequences, model.ResultGeneConseq{
			GeneID:           gc.GeneID,
			MajorConsequence: cat.Label(cfg.ConsequenceEnum, gc.MajorConsequenceID),
		})
	}
	for _, mf := range a.MotifFeatures {
		res.MotifFeatures = append(res.MotifFeatures, model.ResultFeature{
			FeatureID:        mf.FeatureID,
			ConsequenceTerms: cat.Labels(datatype.EnumMotifConsequence, mf.ConsequenceTermIDs),
		})
	}
	for _, rf := range a.RegulatoryFeatures {
		res.RegulatoryFeatures = append(res.RegulatoryFeatures, model.ResultFeature{
			FeatureID:        rf.FeatureID,
			ConsequenceTerms: cat.Labels(datatype.EnumRegulatoryConsequence, rf.ConsequenceTermIDs),
		})
	}
	if len(a.ScreenRegions) > 0 {
		res.ScreenRegionType = cat.Labels(datatype.EnumScreenRegion, a.ScreenRegions)
	}

	if len(a.Predictions) > 0 {
		res.Predictions = make(map[string]any, len(a.Predictions))
		for name, p := range a.Predictions {
			if p == nil {
				res.Predictions[name] = nil
				continue
			}
			if pred, ok := cfg.Predictor(name); ok && pred.Enum != "" {
				res.Predictions[name] = cat.Label(pred.Enum, int(*p))
				continue
			}
			res.Predictions[name] = *p
		}
	}
	if a.ClinVar != nil {
		res.ClinVar = &model.ResultClinVar{
			AlleleID:      a.ClinVar.AlleleID,
			Pathogenicity: cat.Label(datatype.EnumClinVarPathogenicity, a.ClinVar.PathogenicityID),
			Assertions:    cat.Labels(datatype.EnumClinVarAssertion, a.ClinVar.AssertionIDs),
			GoldStars:     a.ClinVar.GoldStars,
		}
	}
	if a.HGMD != nil {
		res.HGMD = &model.ResultHGMD{
			Accession: a.HGMD.Accession,
			Class:     cat.Label(datatype.EnumHGMDClass, a.HGMD.ClassID),
		}
	}
	if lo := a.LiftedOver; lo != nil {
		res.LiftedOverGenome = lo.GenomeVersion
		res.LiftedOverChrom = lo.Chrom
		res.LiftedOverPos = lo.Pos
	}
	return res
}

type rankedTranscript struct {
	model.ResultTranscript
	worst int
}

// transcripts groups transcripts by gene, ranked by most severe
// consequence with canonical transcripts first among equals. The main
// transcript is the best ranked overall.
func (f *Formatter) transcripts(cfg *datatype.Config, cat *globals.Catalog, a *model.Annotation, res *model.Result) {
	if len(a.Transcripts) == 0 {
		return
	}
	ranked := make([]rankedTranscript, 0, len(a.Transcripts))
	for _, t := range a.Transcripts {
		worst := int(^uint(0) >> 1)
		for _, id := range t.ConsequenceTermIDs {
			if id < worst {
				worst = id
			}
		}
		terms := cat.Labels(cfg.ConsequenceEnum, t.ConsequenceTermIDs)
		rt := rankedTranscript{
			ResultTranscript: model.ResultTranscript{
				TranscriptID:     t.TranscriptID,
				GeneID:           t.GeneID,
				ConsequenceTerms: terms,
				Canonical:        t.Canonical,
				HGVSc:            t.HGVSc,
				HGVSp:            t.HGVSp,
			},
			worst: worst,
		}
		rt.MajorConsequence = cat.Label(cfg.ConsequenceEnum, worst)
		ranked = append(ranked, rt)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].worst != ranked[j].worst {
			return ranked[i].worst < ranked[j].worst
		}
		if ranked[i].Canonical != ranked[j].Canonical {
			return ranked[i].Canonical
		}
		return ranked[i].TranscriptID < ranked[j].TranscriptID
	})
	res.Transcripts = make(map[string][]model.ResultTranscript)
	for i, rt := range ranked {
		rt.TranscriptRank = i
		res.Transcripts[rt.GeneID] = append(res.Transcripts[rt.GeneID], rt.ResultTranscript)
	}
	res.MainTranscriptID = ranked[0].TranscriptID
}

// selectedTranscript is the best ranked transcript in a requested gene.
func (f *Formatter) selectedTranscript(res *model.Result) string {
	best, bestRank := "", -1
	for gene, ts := range res.Transcripts {
		if !f.genes[gene] || len(ts) == 0 {
			continue
		}
		if bestRank < 0 || ts[0].TranscriptRank < bestRank {
			best, bestRank = ts[0].TranscriptID, ts[0].TranscriptRank
		}
	}
	if best == "" {
		return res.MainTranscriptID
	}
	return best
}
