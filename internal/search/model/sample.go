// Package model defines the request, response and in-flight row types shared
// by the search pipeline stages.
package model

// DataType is a variant-call category with its own schema and tables.
type DataType string

const (
	SNVIndel DataType = "SNV_INDEL"
	Mito     DataType = "MITO"
	SVWES    DataType = "SV_WES"
	SVWGS    DataType = "SV_WGS"
)

// DataTypes lists every supported data type in merge order.
var DataTypes = []DataType{SNVIndel, Mito, SVWES, SVWGS}

// SampleType is the sequencing technology a sample was profiled on.
type SampleType string

const (
	WES SampleType = "WES"
	WGS SampleType = "WGS"
)

// Affected status of an individual.
type Affected string

const (
	AffectedYes     Affected = "A"
	AffectedNo      Affected = "N"
	AffectedUnknown Affected = "U"
)

// Sex of an individual.
type Sex string

const (
	Male       Sex = "M"
	Female     Sex = "F"
	SexUnknown Sex = "U"
)

// Sample is an immutable sample descriptor supplied by the caller.
type Sample struct {
	SampleID       string     `json:"sample_id"`
	IndividualGUID string     `json:"individual_guid"`
	FamilyGUID     string     `json:"family_guid"`
	ProjectGUID    string     `json:"project_guid"`
	SampleType     SampleType `json:"sample_type"`
	Affected       Affected   `json:"affected"`
	Sex            Sex        `json:"sex"`
}

// IsAffected reports whether the sample is affected.
func (s Sample) IsAffected() bool { return s.Affected == AffectedYes }

// IsUnaffected reports whether the sample is known unaffected.
func (s Sample) IsUnaffected() bool { return s.Affected == AffectedNo }

// StatusIn returns the affected status of the sample, preferring an
// override keyed by individual guid.
func (s Sample) StatusIn(overrides map[string]Affected) Affected {
	if a, ok := overrides[s.IndividualGUID]; ok {
		return a
	}
	return s.Affected
}
