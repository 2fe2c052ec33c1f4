package query

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/datatype"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/globals"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/sorting"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/logger"
)

// mitoContig is routed to the mitochondrial catalog by multi lookups.
const mitoContig = "M"

// Lookup returns the annotations of exactly one variant.
func (e *Engine) Lookup(ctx context.Context, req *model.LookupRequest) (*model.Result, error) {
	var out *model.Result
	err := e.run(ctx, OpLookup, func(ctx context.Context) error {
		if len(req.VariantIDs) != 1 {
			return apperrors.Invalidf("lookup takes exactly one variant id, got %d", len(req.VariantIDs))
		}
		build, err := genome.ParseBuild(req.GenomeVersion)
		if err != nil {
			return apperrors.Invalidf("%s", err.Error())
		}
		dt := req.DataType
		if dt == "" {
			dt = model.SNVIndel
		}
		if _, err := datatype.Get(dt); err != nil {
			return apperrors.Invalidf("%s", err.Error())
		}
		id := normalizeID(dt, req.VariantIDs[0])
		results, err := e.lookup(ctx, build, map[model.DataType][]string{dt: {id}})
		if err != nil {
			return err
		}
		res, ok := results[dt][id]
		if !ok {
			return apperrors.NotFoundf("variant %s not found in %s %s", req.VariantIDs[0], build, dt)
		}
		out = res
		return nil
	})
	return out, err
}

// MultiLookup returns the annotations of every id found, in request order.
// Without an explicit data type, point ids on the mitochondrial contig are
// looked up in the mitochondrial catalog, other point ids in the SNV/indel
// catalog and anything else in every configured structural catalog. Missing
// ids are skipped. A routed catalog that is configured but not loaded fails
// the whole lookup with ErrCatalogUnavailable.
func (e *Engine) MultiLookup(ctx context.Context, req *model.LookupRequest) ([]*model.Result, error) {
	var out []*model.Result
	err := e.run(ctx, OpMultiLookup, func(ctx context.Context) error {
		build, err := genome.ParseBuild(req.GenomeVersion)
		if err != nil {
			return apperrors.Invalidf("%s", err.Error())
		}
		if req.DataType != "" {
			if _, err := datatype.Get(req.DataType); err != nil {
				return apperrors.Invalidf("%s", err.Error())
			}
		}

		type route struct {
			id  string
			dts []model.DataType
		}
		routes := make([]route, len(req.VariantIDs))
		wanted := make(map[model.DataType][]string)
		svTypes := e.svTypes(build)
		for i, raw := range req.VariantIDs {
			r := route{id: raw}
			switch loc, perr := genome.ParseVariantID(raw); {
			case req.DataType != "":
				r.dts = []model.DataType{req.DataType}
				r.id = normalizeID(req.DataType, raw)
			case perr == nil && loc.Chrom == mitoContig:
				r.dts, r.id = []model.DataType{model.Mito}, loc.ID()
			case perr == nil:
				r.dts, r.id = []model.DataType{model.SNVIndel}, loc.ID()
			default:
				r.dts = svTypes
			}
			for _, dt := range r.dts {
				wanted[dt] = append(wanted[dt], r.id)
			}
			routes[i] = r
		}

		found, err := e.lookup(ctx, build, wanted)
		if err != nil {
			return err
		}
		out = make([]*model.Result, 0, len(routes))
		for _, r := range routes {
			for _, dt := range r.dts {
				if res, ok := found[dt][r.id]; ok {
					out = append(out, res)
				}
			}
		}
		logger.FromContext(ctx).Info("multi lookup completed", "requested", len(req.VariantIDs), "found", len(out))
		return nil
	})
	return out, err
}

// svTypes returns the structural data types configured for build, or both
// when none is so that the lookup reports the missing catalog.
func (e *Engine) svTypes(build genome.Build) []model.DataType {
	configured := make(map[globals.Key]bool)
	for _, k := range e.catalogs.Keys() {
		configured[k] = true
	}
	var out []model.DataType
	for _, dt := range []model.DataType{model.SVWGS, model.SVWES} {
		if configured[globals.Key{Build: build, DataType: dt}] {
			out = append(out, dt)
		}
	}
	if len(out) == 0 {
		return []model.DataType{model.SVWGS, model.SVWES}
	}
	return out
}

// lookup reads the annotations of the given ids per data type and formats
// them. Any data type whose catalog is not loaded fails the lookup.
func (e *Engine) lookup(ctx context.Context, build genome.Build, wanted map[model.DataType][]string) (map[model.DataType]map[string]*model.Result, error) {
	catalogs := make(map[model.DataType]*globals.Catalog, len(wanted))
	for dt := range wanted {
		cat, err := e.catalogs.Catalog(build, dt)
		if err != nil {
			return nil, err
		}
		catalogs[dt] = cat
	}
	f := sorting.NewFormatter(build, catalogs, nil)
	out := make(map[model.DataType]map[string]*model.Result, len(catalogs))
	for dt := range catalogs {
		anns, err := e.loader.Lookup(ctx, build, dt, wanted[dt])
		if err != nil {
			return nil, err
		}
		out[dt] = make(map[string]*model.Result, len(anns))
		for id, a := range anns {
			out[dt][id] = f.Annotation(dt, a)
		}
	}
	return out, nil
}

// normalizeID canonicalizes point variant ids; structural ids are opaque.
func normalizeID(dt model.DataType, id string) string {
	if datatype.MustGet(dt).IsSV {
		return id
	}
	if loc, err := genome.ParseVariantID(id); err == nil {
		return loc.ID()
	}
	return id
}
