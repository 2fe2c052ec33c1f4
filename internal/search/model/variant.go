package model

// Genotype is the number of alt alleles in a call, or GTMissing.
type Genotype int8

const (
	GTMissing Genotype = -1
	GTRef     Genotype = 0
	GTHet     Genotype = 1
	GTHomAlt  Genotype = 2
)

// IsNonRef reports whether the call carries at least one alt allele.
func (g Genotype) IsNonRef() bool { return g == GTHet || g == GTHomAlt }

// Concordance flags compare a structural call with the previous callset.
type Concordance struct {
	NewCall     bool `json:"new_call"`
	PrevCall    bool `json:"prev_call"`
	PrevOverlap bool `json:"prev_overlap"`
}

// Entry is one genotype call for one sample at one variant, enriched with
// the sample's identity. Entries are shared between row copies and must
// not be mutated after loading.
type Entry struct {
	Sample
	GT          Genotype
	Metrics     map[string]float64
	CN          *int
	Concordance *Concordance
}

// Metric returns a quality metric, or false if absent.
func (e *Entry) Metric(name string) (float64, bool) {
	v, ok := e.Metrics[name]
	return v, ok
}

// FamilyGroup holds the entries of one family at one variant. A nil group
// means the family is not valid for the variant.
type FamilyGroup []*Entry

// Schema is shared by every row of an entries table: the family guids the
// row's family groups are aligned with, and the entry fields present.
type Schema struct {
	DataType    DataType
	FamilyGUIDs []string
	EntryFields []string
}

// Variant is one row flowing through the pipeline. Families is aligned with
// Schema.FamilyGUIDs. CompHetFamilies is the parallel set of groups valid for
// the compound-het path and is nil when that path is not active.
type Variant struct {
	Key       string
	VariantID string
	DataType  DataType
	XPos      int64
	EndXPos   int64
	Filters   []string

	Schema          *Schema
	Families        []FamilyGroup
	CompHetFamilies []FamilyGroup

	Annotation  *Annotation
	GeneIDs     []string
	IsPrimary   bool
	IsSecondary bool
	Sort        []float64
}

// Clone returns a shallow copy whose family slices may be replaced or
// nulled without affecting v.
func (v *Variant) Clone() *Variant {
	c := *v
	c.Families = append([]FamilyGroup(nil), v.Families...)
	if v.CompHetFamilies != nil {
		c.CompHetFamilies = append([]FamilyGroup(nil), v.CompHetFamilies...)
	}
	return &c
}

// ID identifies a row across data types.
func (v *Variant) ID() string { return string(v.DataType) + ":" + v.Key }

// HasFamilies reports whether any family group is non-nil.
func HasFamilies(groups []FamilyGroup) bool {
	for _, g := range groups {
		if g != nil {
			return true
		}
	}
	return false
}

// ValidFamilyGUIDs returns the guids of the non-nil groups.
func (v *Variant) ValidFamilyGUIDs(groups []FamilyGroup) []string {
	var out []string
	for i, g := range groups {
		if g != nil {
			out = append(out, v.Schema.FamilyGUIDs[i])
		}
	}
	return out
}

// Pair is a compound-het candidate: two variants sharing GeneIDs, ordered by
// sort vector. V1 and V2 are private copies restricted to the families in
// which the pair is valid.
type Pair struct {
	Key     string
	GeneIDs []string
	V1, V2  *Variant
}

// Row is a result row: a single variant or a compound-het pair.
type Row struct {
	Variant *Variant
	Pair    *Pair
}

// SortKey returns the row's sort vector. A pair sorts by its first member,
// which holds the smaller vector.
func (r Row) SortKey() []float64 {
	if r.Pair != nil {
		return r.Pair.V1.Sort
	}
	return r.Variant.Sort
}

// Key returns the row's de-duplication key.
func (r Row) Key() string {
	if r.Pair != nil {
		return r.Pair.Key
	}
	return r.Variant.ID()
}

// StoredCall is one sample's call in an entries table row.
type StoredCall struct {
	GT          *int8              `json:"gt"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
	CN          *int               `json:"cn,omitempty"`
	Concordance *Concordance       `json:"concordance,omitempty"`
}

// EntryRow is one row of a project or family entries table. FamilyEntries
// is aligned with the table's family guids, each inner slice with that
// family's sample list; a null family carries no calls at the variant.
type EntryRow struct {
	Key           string          `json:"key"`
	VariantID     string          `json:"variant_id"`
	XPos          int64           `json:"xpos"`
	EndXPos       int64           `json:"end_xpos,omitempty"`
	Filters       []string        `json:"filters,omitempty"`
	FamilyEntries [][]*StoredCall `json:"family_entries"`
}

// TableGlobals describes an entries table.
type TableGlobals struct {
	SampleType    SampleType          `json:"sample_type"`
	FamilyGUIDs   []string            `json:"family_guids"`
	FamilySamples map[string][]string `json:"family_samples"`
	EntryFields   []string            `json:"entry_fields"`
}

// Table is a materialized set of rows sharing one schema.
type Table struct {
	Schema     *Schema
	SampleType SampleType
	Rows       []*Variant
}
