// Package samples groups requested sample descriptors by project, sample
// type and family, and reports requested samples missing from loaded tables.
package samples

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/errors"
)

// Families maps family guid to the family's requested samples, in request
// order.
type Families map[string][]model.Sample

// GUIDs returns the family guids in sorted order.
func (f Families) GUIDs() []string {
	out := make([]string, 0, len(f))
	for g := range f {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Cohort groups samples as project -> sample type -> family -> samples.
type Cohort map[string]map[model.SampleType]Families

// Resolve validates and groups sample descriptors.
func Resolve(in []model.Sample) (Cohort, error) {
	if len(in) == 0 {
		return nil, apperrors.Invalidf("at least one sample is required")
	}
	c := make(Cohort)
	seen := make(map[string]bool)
	for _, s := range in {
		switch {
		case s.SampleID == "":
			return nil, apperrors.Invalidf("sample descriptor without sample_id")
		case s.ProjectGUID == "" || s.FamilyGUID == "":
			return nil, apperrors.Invalidf("sample %s lacks a project or family guid", s.SampleID)
		case s.SampleType != model.WES && s.SampleType != model.WGS:
			return nil, apperrors.Invalidf("sample %s has unsupported sample type %q", s.SampleID, s.SampleType)
		}
		if s.IndividualGUID == "" {
			s.IndividualGUID = s.SampleID
		}
		if s.Affected == "" {
			s.Affected = model.AffectedUnknown
		}
		if s.Sex == "" {
			s.Sex = model.SexUnknown
		}
		dup := s.ProjectGUID + "/" + string(s.SampleType) + "/" + s.SampleID
		if seen[dup] {
			return nil, apperrors.Invalidf("sample %s is requested twice", s.SampleID)
		}
		seen[dup] = true

		byType, ok := c[s.ProjectGUID]
		if !ok {
			byType = make(map[model.SampleType]Families)
			c[s.ProjectGUID] = byType
		}
		fams, ok := byType[s.SampleType]
		if !ok {
			fams = make(Families)
			byType[s.SampleType] = fams
		}
		fams[s.FamilyGUID] = append(fams[s.FamilyGUID], s)
	}
	return c, nil
}

// Projects returns the project guids in sorted order.
func (c Cohort) Projects() []string {
	out := make([]string, 0, len(c))
	for p := range c {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// SampleTypes returns the sample types present in any project, WES first.
func (c Cohort) SampleTypes() []model.SampleType {
	var out []model.SampleType
	for _, st := range []model.SampleType{model.WES, model.WGS} {
		for _, byType := range c {
			if _, ok := byType[st]; ok {
				out = append(out, st)
				break
			}
		}
	}
	return out
}

// FamilyCount returns the number of distinct families of one sample type.
func (c Cohort) FamilyCount(st model.SampleType) int {
	n := 0
	for _, byType := range c {
		n += len(byType[st])
	}
	return n
}

// MissingSampleError lists requested samples absent from the loaded tables.
type MissingSampleError struct {
	SampleIDs []string
}

func (e *MissingSampleError) Error() string {
	return "The following samples are missing from the loaded data: " + strings.Join(e.SampleIDs, ", ")
}

func (e *MissingSampleError) Unwrap() error { return apperrors.ErrMissingSamples }

// Checker accumulates missing samples over every table loaded for a search.
type Checker struct {
	missing map[string]bool
}

// Check records the requested samples of each family that the table's
// family sample lists lack.
func (ch *Checker) Check(fams Families, available map[string][]string) {
	for guid, requested := range fams {
		have := make(map[string]bool, len(available[guid]))
		for _, id := range available[guid] {
			have[id] = true
		}
		for _, s := range requested {
			if !have[s.SampleID] {
				if ch.missing == nil {
					ch.missing = make(map[string]bool)
				}
				ch.missing[s.SampleID] = true
			}
		}
	}
}

// CheckAll records every requested sample of the families as missing.
func (ch *Checker) CheckAll(fams Families) {
	ch.Check(fams, nil)
}

// Err returns the accumulated error with sample ids sorted, or nil.
func (ch *Checker) Err() error {
	if len(ch.missing) == 0 {
		return nil
	}
	ids := make([]string, 0, len(ch.missing))
	for id := range ch.missing {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	mse := &MissingSampleError{SampleIDs: ids}
	return &apperrors.AppError{Err: mse, Message: mse.Error(), StatusCode: http.StatusBadRequest}
}

// String is used in log lines.
func (c Cohort) String() string {
	var b strings.Builder
	for _, p := range c.Projects() {
		for _, st := range []model.SampleType{model.WES, model.WGS} {
			if fams, ok := c[p][st]; ok {
				fmt.Fprintf(&b, "%s/%s:%d ", p, st, len(fams))
			}
		}
	}
	return strings.TrimSpace(b.String())
}
