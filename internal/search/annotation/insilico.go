package annotation

import (
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/datatype"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/globals"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/errors"
)

type scoreCriterion struct {
	pred datatype.Predictor
	// min is the numeric threshold; for categorical predictors it holds
	// the enum id that must match.
	min float64
}

func compileInSilico(cfg *datatype.Config, cat *globals.Catalog, req *model.InSilicoFilter) ([]scoreCriterion, error) {
	if req == nil {
		return nil, nil
	}
	var out []scoreCriterion
	for name, raw := range req.Scores {
		pred, ok := cfg.Predictor(name)
		if !ok {
			continue
		}
		if pred.Enum != "" {
			id, ok := cat.ID(pred.Enum, raw)
			if !ok {
				return nil, apperrors.Invalidf("in_silico.%s: unknown value %q", name, raw)
			}
			out = append(out, scoreCriterion{pred: pred, min: float64(id)})
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, apperrors.Invalidf("in_silico.%s: expected a number, got %q", name, raw)
		}
		out = append(out, scoreCriterion{pred: pred, min: v})
	}
	return out, nil
}

// passesInSilico ORs the criteria. A variant with none of the requested
// scores passes unless requireScore is set.
func passesInSilico(criteria []scoreCriterion, requireScore bool, a *model.Annotation) bool {
	if len(criteria) == 0 {
		return true
	}
	anyScore := false
	for _, c := range criteria {
		p := a.Predictions[c.pred.Name]
		if p == nil {
			continue
		}
		anyScore = true
		switch {
		case c.pred.Enum != "":
			if int(*p) == int(c.min) {
				return true
			}
		case c.pred.Reversed:
			if *p <= c.min {
				return true
			}
		default:
			if *p >= c.min {
				return true
			}
		}
	}
	return !anyScore && !requireScore
}
