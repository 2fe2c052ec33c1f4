package loader

import (
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/datatype"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/errors"
)

// Prefilter restricts entries rows by position and identity while they are
// read, before any genotype is decoded.
type Prefilter struct {
	Intervals   []genome.Interval
	Exclude     []genome.Interval
	Padded      *genome.PaddedInterval
	VariantIDs  map[string]bool
	VariantKeys map[string]bool
	// Clustered is set when Intervals were merged to satisfy the interval
	// ceiling and are wider than requested.
	Clustered bool
}

// NewPrefilter validates the positional parts of a request. More than
// maxIntervals intervals are clustered.
func NewPrefilter(build genome.Build, req *model.SearchRequest, maxIntervals int) (*Prefilter, error) {
	pf := &Prefilter{}
	var err error
	if pf.Intervals, err = genome.ParseIntervals(build, req.Intervals); err != nil {
		return nil, apperrors.Invalidf("%s", err.Error())
	}
	if maxIntervals > 0 && len(pf.Intervals) > maxIntervals {
		pf.Intervals = genome.ClusterIntervals(pf.Intervals, maxIntervals)
		pf.Clustered = true
	}
	if pf.Exclude, err = genome.ParseIntervals(build, req.ExcludeIntervals); err != nil {
		return nil, apperrors.Invalidf("exclude_intervals: %s", err.Error())
	}
	if req.PaddedInterval != nil {
		p := *req.PaddedInterval
		p.Chrom = genome.NormalizeChrom(p.Chrom)
		iv := genome.Interval{Chrom: p.Chrom, Start: p.Start, End: p.End}
		if err := iv.Validate(build); err != nil {
			return nil, apperrors.Invalidf("padded_interval: %s", err.Error())
		}
		if p.Padding < 0 {
			return nil, apperrors.Invalidf("padded_interval: padding must not be negative")
		}
		pf.Padded = &p
	}
	if len(req.VariantIDs) > 0 {
		pf.VariantIDs = make(map[string]bool, len(req.VariantIDs))
		for _, id := range req.VariantIDs {
			loc, err := genome.ParseVariantID(id)
			if err != nil {
				return nil, apperrors.Invalidf("invalid variant id %q", id)
			}
			pf.VariantIDs[loc.ID()] = true
		}
	}
	if len(req.VariantKeys) > 0 {
		pf.VariantKeys = make(map[string]bool, len(req.VariantKeys))
		for _, k := range req.VariantKeys {
			pf.VariantKeys[k] = true
		}
	}
	return pf, nil
}

// Keep reports whether an entries row of a data type passes the prefilter.
func (pf *Prefilter) Keep(cfg *datatype.Config, row *model.EntryRow) bool {
	if pf == nil {
		return true
	}
	end := row.EndXPos
	if end < row.XPos {
		end = row.XPos
	}
	if len(pf.Intervals) > 0 && !overlapsAny(pf.Intervals, row.XPos, end) {
		return false
	}
	if len(pf.Exclude) > 0 && overlapsAny(pf.Exclude, row.XPos, end) {
		return false
	}
	if pf.Padded != nil && cfg.IsSV && !pf.Padded.Matches(row.XPos, end) {
		return false
	}
	if pf.VariantIDs != nil && (cfg.IsSV || !pf.VariantIDs[row.VariantID]) {
		return false
	}
	if pf.VariantKeys != nil && !pf.VariantKeys[row.Key] {
		return false
	}
	return true
}

// Applies reports whether any restriction applies to the data type. A
// variant id restriction excludes structural data types entirely.
func (pf *Prefilter) Applies(cfg *datatype.Config) bool {
	return !(pf.VariantIDs != nil && cfg.IsSV)
}

func overlapsAny(ivs []genome.Interval, start, end int64) bool {
	for _, iv := range ivs {
		if iv.Overlaps(start, end) {
			return true
		}
	}
	return false
}
