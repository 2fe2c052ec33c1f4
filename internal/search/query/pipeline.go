package query

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/annotation"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/datatype"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/globals"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/inheritance"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/loader"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/merge"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/quality"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/samples"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/sorting"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/table"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/tracing"
)

// svTypeDeletion is the structural variant type that can mask a point
// variant on the other haplotype.
const svTypeDeletion = "DEL"

// stages is the compiled pipeline of one data type.
type stages struct {
	dt      model.DataType
	cfg     *datatype.Config
	cohort  samples.Cohort
	quality *quality.Filter
	inherit *inheritance.Evaluator
	annot   *annotation.Filter
	refs    []*loader.TableRef
}

// plan is a validated request, ready to read.
type plan struct {
	build    genome.Build
	req      *model.SearchRequest
	prefetch *loader.Prefilter
	sorter   *sorting.Sorter
	catalogs map[model.DataType]*globals.Catalog
	stages   []*stages
}

type result struct {
	rows      []model.Row
	formatter *sorting.Formatter
	cohort    string
}

// compile validates every part of a request before any table is read.
func (e *Engine) compile(req *model.SearchRequest) (*plan, error) {
	build, err := genome.ParseBuild(req.GenomeVersion)
	if err != nil {
		return nil, apperrors.Invalidf("%s", err.Error())
	}
	if !inheritance.ValidMode(req.InheritanceMode) {
		return nil, apperrors.Invalidf("unsupported inheritance mode %q", req.InheritanceMode)
	}
	if len(req.SampleData) == 0 {
		return nil, apperrors.Newf(apperrors.ErrMissingSamples, http.StatusBadRequest, "no samples requested")
	}

	p := &plan{build: build, req: req, catalogs: make(map[model.DataType]*globals.Catalog)}
	var types []model.DataType
	for dt := range req.SampleData {
		cfg, err := datatype.Get(dt)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrMissingSamples, http.StatusBadRequest, "%s", err.Error())
		}
		cat, err := e.catalogs.Catalog(build, dt)
		if err != nil {
			return nil, err
		}
		p.catalogs[dt] = cat
		types = append(types, cfg.DataType)
	}
	sort.Slice(types, func(i, j int) bool { return dataTypeOrder(types[i]) < dataTypeOrder(types[j]) })

	if p.sorter, err = sorting.NewSorter(req.Sort, req.SortMetadata, p.catalogs); err != nil {
		return nil, err
	}
	if p.prefetch, err = loader.NewPrefilter(build, req, e.cfg.MaxGeneIntervals); err != nil {
		return nil, err
	}

	for _, dt := range types {
		cfg := datatype.MustGet(dt)
		s := &stages{dt: dt, cfg: cfg, quality: quality.New(cfg, req.QualityFilter, affectedOverrides(req))}
		if s.inherit, err = inheritance.New(cfg, req.InheritanceMode, req.InheritanceFilter); err != nil {
			return nil, err
		}
		if s.annot, err = annotation.New(cfg, p.catalogs[dt], req); err != nil {
			return nil, err
		}
		if s.cohort, err = samples.Resolve(req.SampleData[dt]); err != nil {
			return nil, err
		}
		p.stages = append(p.stages, s)
	}
	return p, nil
}

func dataTypeOrder(dt model.DataType) int {
	for i, d := range model.DataTypes {
		if d == dt {
			return i
		}
	}
	return len(model.DataTypes)
}

// execute runs the full pipeline and returns every matching row, singles
// and pairs, with sort vectors attached.
func (e *Engine) execute(ctx context.Context, req *model.SearchRequest) (*result, error) {
	p, err := e.compile(req)
	if err != nil {
		return nil, err
	}

	checker := &samples.Checker{}
	for _, s := range p.stages {
		if s.refs, err = e.loader.Resolve(ctx, p.build, s.dt, s.cohort, checker); err != nil {
			return nil, err
		}
	}
	if err := checker.Err(); err != nil {
		return nil, err
	}

	sets := make([][]*model.Variant, len(p.stages))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range p.stages {
		if !p.prefetch.Applies(s.cfg) || !s.annot.Applies() {
			continue
		}
		g.Go(func() error {
			rows, err := e.runDataType(gctx, p, s)
			if err != nil {
				return err
			}
			sets[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	all := merge.DataTypes(sets...)

	var rows []model.Row
	for _, v := range all {
		if v.IsPrimary && model.HasFamilies(v.Families) {
			rows = append(rows, model.Row{Variant: v})
		}
	}
	if p.compHet() {
		pairs := inheritance.Pairs(all, inheritance.PairOptions{
			Secondary:  !req.AnnotationsSecondary.Empty(),
			Affected:   affectedOverrides(req),
			IsDeletion: p.isDeletion,
			Less:       sorting.LessVariant,
		})
		for _, pair := range pairs {
			rows = append(rows, model.Row{Pair: pair})
		}
	}

	res := &result{
		rows:      rows,
		formatter: sorting.NewFormatter(p.build, p.catalogs, req.GeneIDs),
		cohort:    p.describe(),
	}
	return res, nil
}

// runDataType reads, filters and annotates the rows of one data type.
func (e *Engine) runDataType(ctx context.Context, p *plan, s *stages) ([]*model.Variant, error) {
	ctx, span := tracing.StartChildSpan(ctx, string(s.dt))
	defer span.End()
	span.SetAttr("tables", len(s.refs))
	span.SetAttr("inheritance", s.inherit.String())

	if len(s.refs) == 0 {
		return nil, nil
	}
	tables, err := e.loader.Load(ctx, s.refs, p.prefetch)
	if err != nil {
		return nil, err
	}

	var rows []*model.Variant
	wes, wgs := tables[model.WES], tables[model.WGS]
	if wes != nil && wgs != nil {
		rows = merge.SampleTypes(wes, wgs, s.evaluate, p.req.InheritanceMode, s.inherit.CompHetPath(), affectedOverrides(p.req)).Rows
	} else {
		t := wes
		if t == nil {
			t = wgs
		}
		pl := table.From("entries", t.Rows).WithPartitions(e.cfg.MaxPartitions).Observe(e.observer(s.dt))
		if s.cfg.QualityFirst {
			pl = pl.Map("quality", s.quality.Apply).Map("inheritance", s.inherit.Apply)
		} else {
			pl = pl.Map("inheritance", s.inherit.Apply).Map("quality", s.quality.Apply)
		}
		if rows, err = pl.Collect(ctx); err != nil {
			return nil, err
		}
	}
	span.SetAttr("genotyped_rows", len(rows))

	if rows, err = e.loader.Annotate(ctx, p.build, s.dt, rows); err != nil {
		return nil, err
	}
	rows, err = table.From("annotated", rows).
		WithPartitions(e.cfg.MaxPartitions).
		Observe(e.observer(s.dt)).
		Map("annotation", s.annot.Apply).
		Map("sort", func(v *model.Variant) (*model.Variant, bool) {
			v.Sort = p.sorter.Vector(v)
			return v, true
		}).
		Collect(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttr("rows", len(rows))
	return rows, nil
}

// evaluate decides one family group of one sample type for the joined path.
func (s *stages) evaluate(v *model.Variant, fam int) merge.Status {
	g := v.Families[fam]
	return merge.Status{
		Quality: s.quality.PassesGroup(v, g),
		Single:  s.inherit.Single(v, g),
		CompHet: s.inherit.CompHet(v, g),
	}
}

func (p *plan) compHet() bool {
	for _, s := range p.stages {
		if s.inherit.CompHetPath() {
			return true
		}
	}
	return false
}

func (p *plan) isDeletion(v *model.Variant) bool {
	if !datatype.MustGet(v.DataType).IsSV || v.Annotation == nil || v.Annotation.SVTypeID == nil {
		return false
	}
	cat := p.catalogs[v.DataType]
	return cat != nil && cat.Label(datatype.EnumSVType, *v.Annotation.SVTypeID) == svTypeDeletion
}

func (p *plan) describe() string {
	parts := make([]string, len(p.stages))
	for i, s := range p.stages {
		parts[i] = string(s.dt) + "[" + s.cohort.String() + "]"
	}
	return strings.Join(parts, " ")
}

func affectedOverrides(req *model.SearchRequest) map[string]model.Affected {
	if req.InheritanceFilter == nil {
		return nil
	}
	return req.InheritanceFilter.Affected
}
