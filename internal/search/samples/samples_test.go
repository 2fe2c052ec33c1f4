package samples

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/errors"
)

func sample(id, fam, project string, st model.SampleType) model.Sample {
	return model.Sample{SampleID: id, FamilyGUID: fam, ProjectGUID: project, SampleType: st, Affected: model.AffectedYes}
}

func TestResolveGroups(t *testing.T) {
	c, err := Resolve([]model.Sample{
		sample("S1", "F1", "P1", model.WES),
		sample("S2", "F1", "P1", model.WES),
		sample("S3", "F2", "P1", model.WGS),
		sample("S4", "F3", "P2", model.WES),
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"P1", "P2"}, c.Projects()); diff != "" {
		t.Errorf("projects (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]model.SampleType{model.WES, model.WGS}, c.SampleTypes()); diff != "" {
		t.Errorf("sample types (-want +got):\n%s", diff)
	}
	if got := len(c["P1"][model.WES]["F1"]); got != 2 {
		t.Errorf("F1 samples = %d, want 2", got)
	}
	if got := c.FamilyCount(model.WES); got != 2 {
		t.Errorf("WES families = %d, want 2", got)
	}
	if got := c["P1"][model.WES]["F1"][0].IndividualGUID; got != "S1" {
		t.Errorf("individual guid default = %q, want S1", got)
	}
}

func TestResolveRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		in   []model.Sample
	}{
		{"empty", nil},
		{"no sample id", []model.Sample{sample("", "F1", "P1", model.WES)}},
		{"no family", []model.Sample{sample("S1", "", "P1", model.WES)}},
		{"bad sample type", []model.Sample{sample("S1", "F1", "P1", "RNA")}},
		{"duplicate", []model.Sample{sample("S1", "F1", "P1", model.WES), sample("S1", "F1", "P1", model.WES)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.in)
			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCheckerReportsSortedMissingSamples(t *testing.T) {
	c, err := Resolve([]model.Sample{
		sample("S9", "F1", "P1", model.WES),
		sample("S1", "F1", "P1", model.WES),
		sample("S5", "F2", "P1", model.WES),
		sample("S2", "F2", "P1", model.WES),
	})
	if err != nil {
		t.Fatal(err)
	}
	var ch Checker
	ch.Check(c["P1"][model.WES], map[string][]string{
		"F1": {"S1"},
		"F2": {"S2", "S7"},
	})
	err = ch.Err()
	var mse *MissingSampleError
	if !errors.As(err, &mse) {
		t.Fatalf("expected MissingSampleError, got %v", err)
	}
	if diff := cmp.Diff([]string{"S5", "S9"}, mse.SampleIDs); diff != "" {
		t.Errorf("missing ids (-want +got):\n%s", diff)
	}
	if !errors.Is(err, apperrors.ErrMissingSamples) {
		t.Error("error should match ErrMissingSamples")
	}
	if apperrors.HTTPStatusCode(err) != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", apperrors.HTTPStatusCode(err))
	}
	if got := apperrors.Message(err); got != "The following samples are missing from the loaded data: S5, S9" {
		t.Errorf("message = %q", got)
	}
}

func TestCheckerNoMissing(t *testing.T) {
	var ch Checker
	ch.Check(Families{"F1": {sample("S1", "F1", "P1", model.WES)}}, map[string][]string{"F1": {"S1"}})
	if err := ch.Err(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
