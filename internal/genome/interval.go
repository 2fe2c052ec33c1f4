package genome

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Interval is a closed 1-based range on one contig.
type Interval struct {
	Chrom string `json:"chrom"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

func (iv Interval) String() string {
	return fmt.Sprintf("%s:%d-%d", iv.Chrom, iv.Start, iv.End)
}

// StartXPos and EndXPos bound the interval in absolute coordinates.
func (iv Interval) StartXPos() int64 { return XPos(iv.Chrom, iv.Start) }
func (iv Interval) EndXPos() int64   { return XPos(iv.Chrom, iv.End) }

// Contains reports whether xpos falls inside the interval.
func (iv Interval) Contains(xpos int64) bool {
	return xpos >= iv.StartXPos() && xpos <= iv.EndXPos()
}

// Overlaps reports whether [startXPos, endXPos] intersects the interval.
func (iv Interval) Overlaps(startXPos, endXPos int64) bool {
	if endXPos < startXPos {
		endXPos = startXPos
	}
	return startXPos <= iv.EndXPos() && endXPos >= iv.StartXPos()
}

// ParseInterval parses "chrom:start-end".
func ParseInterval(s string) (Interval, error) {
	chrom, rng, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Interval{}, fmt.Errorf("invalid interval %q", s)
	}
	startStr, endStr, ok := strings.Cut(rng, "-")
	if !ok {
		return Interval{}, fmt.Errorf("invalid interval %q", s)
	}
	start, err := strconv.Atoi(strings.ReplaceAll(startStr, ",", ""))
	if err != nil {
		return Interval{}, fmt.Errorf("invalid interval %q: bad start", s)
	}
	end, err := strconv.Atoi(strings.ReplaceAll(endStr, ",", ""))
	if err != nil {
		return Interval{}, fmt.Errorf("invalid interval %q: bad end", s)
	}
	return Interval{Chrom: NormalizeChrom(chrom), Start: start, End: end}, nil
}

// Validate checks the interval against the contig lengths of build.
func (iv Interval) Validate(build Build) error {
	length, ok := ContigLength(build, iv.Chrom)
	if !ok {
		return fmt.Errorf("invalid interval %s: unknown contig for %s", iv, build)
	}
	if iv.Start < 1 || iv.End < iv.Start {
		return fmt.Errorf("invalid interval %s: start must be positive and not after end", iv)
	}
	if iv.End > length {
		return fmt.Errorf("invalid interval %s: end exceeds contig length %d", iv, length)
	}
	return nil
}

// ParseIntervals parses and validates every interval, reporting all invalid
// ones in a single error.
func ParseIntervals(build Build, raw []string) ([]Interval, error) {
	out := make([]Interval, 0, len(raw))
	var bad []string
	for _, s := range raw {
		iv, err := ParseInterval(s)
		if err == nil {
			err = iv.Validate(build)
		}
		if err != nil {
			bad = append(bad, s)
			continue
		}
		out = append(out, iv)
	}
	if len(bad) > 0 {
		return nil, fmt.Errorf("invalid intervals: %s", strings.Join(bad, ", "))
	}
	return out, nil
}

// SortIntervals orders intervals by absolute start, then end.
func SortIntervals(intervals []Interval) {
	sort.Slice(intervals, func(i, j int) bool {
		a, b := intervals[i], intervals[j]
		if a.StartXPos() != b.StartXPos() {
			return a.StartXPos() < b.StartXPos()
		}
		return a.EndXPos() < b.EndXPos()
	})
}

const (
	clusterStartDistance = 100_000
	clusterStep          = 100_000
	maxContigLength      = 250_000_000
)

// ClusterIntervals greedily merges same-contig intervals whose gap is below a
// growing distance until at most maxIntervals remain. The merged set covers
// every input interval, so callers must re-apply precise filters (gene ids)
// afterwards. The input is not modified.
func ClusterIntervals(intervals []Interval, maxIntervals int) []Interval {
	if len(intervals) <= maxIntervals {
		return intervals
	}
	merged := append([]Interval(nil), intervals...)
	SortIntervals(merged)
	for distance := clusterStartDistance; len(merged) > maxIntervals; distance += clusterStep {
		merged = mergeWithin(merged, distance)
		if distance > maxContigLength {
			break
		}
	}
	return merged
}

func mergeWithin(sorted []Interval, distance int) []Interval {
	out := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		prev := &out[len(out)-1]
		if iv.Chrom == prev.Chrom && iv.Start-prev.End < distance {
			if iv.End > prev.End {
				prev.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// PaddedInterval matches structural variants whose breakpoints fall within
// padding * length of the requested start and end.
type PaddedInterval struct {
	Chrom   string  `json:"chrom"`
	Start   int     `json:"start"`
	End     int     `json:"end"`
	Padding float64 `json:"padding"`
}

// Matches reports whether a variant spanning [startXPos, endXPos] has both
// breakpoints inside the padded windows.
func (p PaddedInterval) Matches(startXPos, endXPos int64) bool {
	pad := int64(float64(p.End-p.Start) * p.Padding)
	start := XPos(p.Chrom, p.Start)
	end := XPos(p.Chrom, p.End)
	return startXPos >= start-pad && startXPos <= start+pad &&
		endXPos >= end-pad && endXPos <= end+pad
}
