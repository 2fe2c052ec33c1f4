// Package loader reads the entries tables covering a cohort, restricts them
// to the requested families and samples, and joins the annotation catalog.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/datatype"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/merge"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/samples"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/logger"
)

// maxConcurrentReads bounds parallel table reads per search.
const maxConcurrentReads = 8

// Loader reads entries and annotations tables from a store.
type Loader struct {
	src    store.Source
	logger *slog.Logger
}

func New(src store.Source) *Loader {
	return &Loader{
		src:    src,
		logger: logger.WithComponent("loader"),
	}
}

// TableRef is an entries table selected for part of a cohort, with its
// globals already read.
type TableRef struct {
	Build      genome.Build
	DataType   model.DataType
	SampleType model.SampleType
	Project    string
	Path       string
	Families   samples.Families
	Globals    model.TableGlobals
}

// Resolve selects the tables covering the cohort of one data type. A search
// over exactly one family reads that family's table; otherwise each project
// table is read. Requested samples that a table does not list are recorded
// in checker, so that callers can fail before any filtering happens.
func (l *Loader) Resolve(ctx context.Context, build genome.Build, dt model.DataType, cohort samples.Cohort, checker *samples.Checker) ([]*TableRef, error) {
	cfg, err := datatype.Get(dt)
	if err != nil {
		return nil, apperrors.Invalidf("%s", err.Error())
	}
	var refs []*TableRef
	for _, project := range cohort.Projects() {
		for _, st := range []model.SampleType{model.WES, model.WGS} {
			fams, ok := cohort[project][st]
			if !ok {
				continue
			}
			if !cfg.SupportsSampleType(st) {
				return nil, apperrors.Invalidf("%s samples cannot be searched for %s", st, dt)
			}
			ref := &TableRef{Build: build, DataType: dt, SampleType: st, Project: project, Families: fams}
			if len(cohort) == 1 && len(fams) == 1 {
				ref.Path = store.FamilyTablePath(string(build), string(dt), string(st), fams.GUIDs()[0])
			} else {
				ref.Path = store.ProjectTablePath(string(build), string(dt), string(st), project)
			}
			refs = append(refs, ref)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	found := make([]bool, len(refs))
	for i, ref := range refs {
		g.Go(func() error {
			err := store.ReadJSON(gctx, l.src, store.TableGlobalsPath(ref.Path), &ref.Globals)
			if errors.Is(err, store.ErrNotExist) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("reading globals of %s: %w", ref.Path, err)
			}
			found[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := refs[:0]
	for i, ref := range refs {
		if !found[i] {
			l.logger.Debug("entries table missing", "table", ref.Path)
			checker.CheckAll(ref.Families)
			continue
		}
		checker.Check(ref.Families, ref.Globals.FamilySamples)
		out = append(out, ref)
	}
	return out, nil
}

// Load reads every table and outer-joins the project tables of each sample
// type.
func (l *Loader) Load(ctx context.Context, refs []*TableRef, pf *Prefilter) (map[model.SampleType]*model.Table, error) {
	tables := make([]*model.Table, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for i, ref := range refs {
		g.Go(func() error {
			t, err := l.Read(gctx, ref, pf)
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byType := make(map[model.SampleType][]*model.Table)
	for _, t := range tables {
		byType[t.SampleType] = append(byType[t.SampleType], t)
	}
	out := make(map[model.SampleType]*model.Table, len(byType))
	for st, ts := range byType {
		out[st] = merge.Projects(ts)
	}
	return out, nil
}

type familyLayout struct {
	column  int
	samples []model.Sample
	// positions index the table's sample list of the family, aligned
	// with samples.
	positions []int
}

// Read scans one entries table, keeping the rows that pass the prefilter
// and carry calls for at least one requested family.
func (l *Loader) Read(ctx context.Context, ref *TableRef, pf *Prefilter) (*model.Table, error) {
	cfg, err := datatype.Get(ref.DataType)
	if err != nil {
		return nil, err
	}
	guids := ref.Families.GUIDs()
	column := make(map[string]int, len(ref.Globals.FamilyGUIDs))
	for i, g := range ref.Globals.FamilyGUIDs {
		column[g] = i
	}
	layouts := make([]familyLayout, 0, len(guids))
	for _, guid := range guids {
		col, ok := column[guid]
		if !ok {
			return nil, fmt.Errorf("table %s does not hold family %s", ref.Path, guid)
		}
		pos := make(map[string]int)
		for i, id := range ref.Globals.FamilySamples[guid] {
			pos[id] = i
		}
		lay := familyLayout{column: col, samples: ref.Families[guid]}
		for _, s := range lay.samples {
			p, ok := pos[s.SampleID]
			if !ok {
				p = -1
			}
			lay.positions = append(lay.positions, p)
		}
		layouts = append(layouts, lay)
	}

	schema := &model.Schema{DataType: ref.DataType, FamilyGUIDs: guids, EntryFields: ref.Globals.EntryFields}
	t := &model.Table{Schema: schema, SampleType: ref.SampleType}
	scanned := 0
	err = store.ScanTable(ctx, l.src, ref.Path, func(row model.EntryRow) error {
		scanned++
		if !pf.Keep(cfg, &row) {
			return nil
		}
		v := &model.Variant{
			Key:       row.Key,
			VariantID: row.VariantID,
			DataType:  ref.DataType,
			XPos:      row.XPos,
			EndXPos:   row.EndXPos,
			Filters:   row.Filters,
			Schema:    schema,
			Families:  make([]model.FamilyGroup, len(layouts)),
		}
		if v.EndXPos == 0 {
			v.EndXPos = v.XPos
		}
		found := false
		for fi, lay := range layouts {
			if lay.column >= len(row.FamilyEntries) || row.FamilyEntries[lay.column] == nil {
				continue
			}
			calls := row.FamilyEntries[lay.column]
			group := make(model.FamilyGroup, len(lay.samples))
			for si, s := range lay.samples {
				var call *model.StoredCall
				if p := lay.positions[si]; p >= 0 && p < len(calls) {
					call = calls[p]
				}
				group[si] = newEntry(s, call)
			}
			v.Families[fi] = group
			found = true
		}
		if found {
			t.Rows = append(t.Rows, v)
		}
		return nil
	})
	if errors.Is(err, store.ErrNotExist) {
		return nil, fmt.Errorf("entries table %s disappeared: %w", ref.Path, err)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ref.Path, err)
	}
	logger.FromContext(ctx).Debug("entries table read",
		"table", ref.Path,
		"scanned", scanned,
		"kept", len(t.Rows),
	)
	return t, nil
}

func newEntry(s model.Sample, call *model.StoredCall) *model.Entry {
	e := &model.Entry{Sample: s, GT: model.GTMissing}
	if call == nil {
		return e
	}
	if call.GT != nil {
		e.GT = model.Genotype(*call.GT)
	}
	e.Metrics = call.Metrics
	e.CN = call.CN
	e.Concordance = call.Concordance
	return e
}

// Annotate joins the annotation catalog of a data type onto rows. Rows
// without an annotation are dropped.
func (l *Loader) Annotate(ctx context.Context, build genome.Build, dt model.DataType, rows []*model.Variant) ([]*model.Variant, error) {
	if len(rows) == 0 {
		return rows, nil
	}
	wanted := make(map[string]*model.Annotation, len(rows))
	for _, v := range rows {
		wanted[v.Key] = nil
	}
	path := store.AnnotationsPath(string(build), string(dt))
	err := store.ScanTable(ctx, l.src, path, func(a model.Annotation) error {
		if _, ok := wanted[a.Key]; ok {
			ann := a
			wanted[a.Key] = &ann
		}
		return nil
	})
	if err != nil {
		return nil, annotationsError(build, dt, err)
	}
	out := rows[:0:0]
	for _, v := range rows {
		a := wanted[v.Key]
		if a == nil {
			continue
		}
		v.Annotation = a
		v.GeneIDs = a.GeneIDs()
		out = append(out, v)
	}
	if dropped := len(rows) - len(out); dropped > 0 {
		logger.FromContext(ctx).Debug("rows without annotations dropped", "data_type", dt, "dropped", dropped)
	}
	return out, nil
}

// Lookup returns the annotations of the given variant ids found in the
// catalog of a data type, keyed by variant id.
func (l *Loader) Lookup(ctx context.Context, build genome.Build, dt model.DataType, variantIDs []string) (map[string]*model.Annotation, error) {
	wanted := make(map[string]bool, len(variantIDs))
	for _, id := range variantIDs {
		wanted[id] = true
	}
	found := make(map[string]*model.Annotation)
	path := store.AnnotationsPath(string(build), string(dt))
	err := store.ScanTable(ctx, l.src, path, func(a model.Annotation) error {
		if wanted[a.VariantID] {
			ann := a
			found[a.VariantID] = &ann
			if len(found) == len(wanted) {
				return errStopScan
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopScan) {
		return nil, annotationsError(build, dt, err)
	}
	return found, nil
}

var errStopScan = errors.New("stop scan")

func annotationsError(build genome.Build, dt model.DataType, err error) error {
	if errors.Is(err, store.ErrNotExist) {
		return apperrors.Newf(apperrors.ErrCatalogUnavailable, http.StatusInternalServerError,
			"annotations table for %s/%s is missing", build, dt)
	}
	return fmt.Errorf("reading annotations of %s/%s: %w", build, dt, err)
}
