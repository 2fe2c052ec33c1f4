// Package genome holds reference-build facts (contigs and their lengths) and
// the coordinate helpers built on them: absolute positions (xpos), intervals
// and variant ids.
package genome

import (
	"fmt"
	"strconv"
	"strings"
)

// Build is a reference genome version.
type Build string

const (
	GRCh37 Build = "GRCh37"
	GRCh38 Build = "GRCh38"
)

// ParseBuild validates a genome version string.
func ParseBuild(s string) (Build, error) {
	switch Build(s) {
	case GRCh37, GRCh38:
		return Build(s), nil
	}
	return "", fmt.Errorf("unsupported genome version %q", s)
}

// xposOffset separates contigs in absolute coordinates.
const xposOffset int64 = 1_000_000_000

var contigOrder = []string{
	"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12",
	"13", "14", "15", "16", "17", "18", "19", "20", "21", "22",
	"X", "Y", "M",
}

var contigIndex = func() map[string]int {
	m := make(map[string]int, len(contigOrder))
	for i, c := range contigOrder {
		m[c] = i + 1
	}
	return m
}()

var contigLengths = map[Build]map[string]int{
	GRCh37: {
		"1": 249250621, "2": 243199373, "3": 198022430, "4": 191154276,
		"5": 180915260, "6": 171115067, "7": 159138663, "8": 146364022,
		"9": 141213431, "10": 135534747, "11": 135006516, "12": 133851895,
		"13": 115169878, "14": 107349540, "15": 102531392, "16": 90354753,
		"17": 81195210, "18": 78077248, "19": 59128983, "20": 63025520,
		"21": 48129895, "22": 51304566, "X": 155270560, "Y": 59373566,
		"M": 16569,
	},
	GRCh38: {
		"1": 248956422, "2": 242193529, "3": 198295559, "4": 190214555,
		"5": 181538259, "6": 170805979, "7": 159345973, "8": 145138636,
		"9": 138394717, "10": 133797422, "11": 135086622, "12": 133275309,
		"13": 114364328, "14": 107043718, "15": 101991189, "16": 90338345,
		"17": 83257441, "18": 80373285, "19": 58617616, "20": 64444167,
		"21": 46709983, "22": 50818468, "X": 156040895, "Y": 57227415,
		"M": 16569,
	},
}

// NormalizeChrom strips a "chr" prefix and maps MT to M.
func NormalizeChrom(chrom string) string {
	c := strings.TrimPrefix(chrom, "chr")
	switch c {
	case "MT":
		return "M"
	case "x":
		return "X"
	case "y":
		return "Y"
	}
	return c
}

// ContigLength returns the length of chrom in build, or false if the contig
// is not part of the build.
func ContigLength(build Build, chrom string) (int, bool) {
	n, ok := contigLengths[build][NormalizeChrom(chrom)]
	return n, ok
}

// XPos returns the absolute position of chrom:pos. Unknown contigs yield 0.
func XPos(chrom string, pos int) int64 {
	idx, ok := contigIndex[NormalizeChrom(chrom)]
	if !ok {
		return 0
	}
	return int64(idx)*xposOffset + int64(pos)
}

// FromXPos splits an absolute position back into contig and position.
func FromXPos(xpos int64) (string, int) {
	idx := int(xpos / xposOffset)
	if idx < 1 || idx > len(contigOrder) {
		return "", 0
	}
	return contigOrder[idx-1], int(xpos % xposOffset)
}

// Locus is a point variant: contig, position and alleles.
type Locus struct {
	Chrom string
	Pos   int
	Ref   string
	Alt   string
}

// XPos returns the locus' absolute position.
func (l Locus) XPos() int64 { return XPos(l.Chrom, l.Pos) }

// ID renders the locus as a chrom-pos-ref-alt variant id.
func (l Locus) ID() string {
	return fmt.Sprintf("%s-%d-%s-%s", l.Chrom, l.Pos, l.Ref, l.Alt)
}

// ParseVariantID parses "chrom-pos-ref-alt". The chrom may carry a "chr"
// prefix; it is normalized in the result.
func ParseVariantID(id string) (Locus, error) {
	parts := strings.Split(strings.TrimSpace(id), "-")
	if len(parts) != 4 {
		return Locus{}, fmt.Errorf("invalid variant id %q", id)
	}
	chrom := NormalizeChrom(parts[0])
	if _, ok := contigIndex[chrom]; !ok {
		return Locus{}, fmt.Errorf("invalid variant id %q: unknown contig %q", id, parts[0])
	}
	pos, err := strconv.Atoi(parts[1])
	if err != nil || pos < 1 {
		return Locus{}, fmt.Errorf("invalid variant id %q: bad position", id)
	}
	if parts[2] == "" || parts[3] == "" {
		return Locus{}, fmt.Errorf("invalid variant id %q: empty allele", id)
	}
	return Locus{Chrom: chrom, Pos: pos, Ref: strings.ToUpper(parts[2]), Alt: strings.ToUpper(parts[3])}, nil
}
