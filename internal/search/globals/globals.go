// Package globals caches the annotation catalog enumerations of every
// genome build and data type. The cache is populated once during service
// bootstrap and replaced wholesale by each Load; readers never observe a
// partially loaded state.
package globals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sort"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/errors"
)

// Catalog is the decoded globals file of one annotations table. Enum ids are
// indexes into the label lists, and list order is severity order.
type Catalog struct {
	Versions map[string]any      `json:"versions"`
	Enums    map[string][]string `json:"enums"`

	ids map[string]map[string]int
}

func (c *Catalog) index() {
	c.ids = make(map[string]map[string]int, len(c.Enums))
	for name, labels := range c.Enums {
		m := make(map[string]int, len(labels))
		for i, l := range labels {
			m[l] = i
		}
		c.ids[name] = m
	}
}

// Label returns the label of an enum id, or "" when out of range.
func (c *Catalog) Label(enum string, id int) string {
	labels := c.Enums[enum]
	if id < 0 || id >= len(labels) {
		return ""
	}
	return labels[id]
}

// Labels maps a list of ids to labels, skipping unknown ids.
func (c *Catalog) Labels(enum string, ids []int) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if l := c.Label(enum, id); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// ID returns the id of a label.
func (c *Catalog) ID(enum, label string) (int, bool) {
	id, ok := c.ids[enum][label]
	return id, ok
}

// IDs maps labels to ids, dropping labels the enum does not define.
func (c *Catalog) IDs(enum string, labels []string) map[int]bool {
	out := make(map[int]bool, len(labels))
	for _, l := range labels {
		if id, ok := c.ID(enum, l); ok {
			out[id] = true
		}
	}
	return out
}

// Has reports whether the catalog defines an enum.
func (c *Catalog) Has(enum string) bool {
	_, ok := c.Enums[enum]
	return ok
}

// NewCatalog builds an indexed catalog from enum lists.
func NewCatalog(enums map[string][]string) *Catalog {
	c := &Catalog{Enums: enums, Versions: map[string]any{}}
	c.index()
	return c
}

// Key identifies one catalog.
type Key struct {
	Build    genome.Build
	DataType model.DataType
}

func (k Key) String() string { return string(k.Build) + "/" + string(k.DataType) }

type snapshot struct {
	catalogs map[Key]*Catalog
	failures map[Key]error
}

// Cache holds the loaded catalogs.
type Cache struct {
	src    store.Source
	keys   []Key
	state  atomic.Pointer[snapshot]
	logger *slog.Logger
}

// New creates an empty cache for the given builds and data types. Call Load
// before serving.
func New(src store.Source, builds []genome.Build, dataTypes []model.DataType) *Cache {
	c := &Cache{
		src:    src,
		logger: slog.Default().With("component", "globals"),
	}
	for _, b := range builds {
		for _, dt := range dataTypes {
			c.keys = append(c.keys, Key{Build: b, DataType: dt})
		}
	}
	c.state.Store(&snapshot{catalogs: map[Key]*Catalog{}, failures: map[Key]error{}})
	return c
}

// NewStatic creates a cache over in-memory catalogs.
func NewStatic(catalogs map[Key]*Catalog) *Cache {
	c := &Cache{logger: slog.Default().With("component", "globals")}
	for k := range catalogs {
		c.keys = append(c.keys, k)
	}
	c.state.Store(&snapshot{catalogs: catalogs, failures: map[Key]error{}})
	return c
}

// Status summarizes a load.
type Status struct {
	Loaded []Key
	Failed map[Key]error
}

// Load reads every configured catalog and swaps the cache. Catalogs that
// fail to load are recorded and make queries of that build and data type
// fail until the next successful load. An error is returned only when no
// catalog could be loaded.
func (c *Cache) Load(ctx context.Context) (Status, error) {
	if c.src == nil {
		return c.status(c.state.Load()), nil
	}
	next := &snapshot{catalogs: map[Key]*Catalog{}, failures: map[Key]error{}}
	for _, k := range c.keys {
		if err := ctx.Err(); err != nil {
			return Status{}, err
		}
		var cat Catalog
		err := store.ReadJSON(ctx, c.src, store.CatalogGlobalsPath(string(k.Build), string(k.DataType)), &cat)
		if err != nil {
			c.logger.Warn("catalog unavailable", "catalog", k.String(), "error", err)
			next.failures[k] = err
			continue
		}
		cat.index()
		next.catalogs[k] = &cat
	}
	st := c.status(next)
	if len(next.catalogs) == 0 && len(c.keys) > 0 {
		return st, fmt.Errorf("no annotation catalog could be loaded from %s", c.src)
	}
	c.state.Store(next)
	c.logger.Info("catalogs loaded", "loaded", len(st.Loaded), "failed", len(st.Failed))
	return st, nil
}

func (c *Cache) status(s *snapshot) Status {
	st := Status{Failed: s.failures}
	for k := range s.catalogs {
		st.Loaded = append(st.Loaded, k)
	}
	sort.Slice(st.Loaded, func(i, j int) bool { return st.Loaded[i].String() < st.Loaded[j].String() })
	return st
}

// Catalog returns the catalog of a build and data type.
func (c *Cache) Catalog(build genome.Build, dt model.DataType) (*Catalog, error) {
	k := Key{Build: build, DataType: dt}
	s := c.state.Load()
	if cat, ok := s.catalogs[k]; ok {
		return cat, nil
	}
	reason := "not loaded"
	if err, ok := s.failures[k]; ok {
		reason = err.Error()
		if errors.Is(err, store.ErrNotExist) {
			reason = "catalog table missing"
		}
	}
	return nil, apperrors.Newf(apperrors.ErrCatalogUnavailable, http.StatusInternalServerError,
		"annotation catalog for %s is unavailable: %s", k, reason)
}

// Keys returns the configured catalog keys.
func (c *Cache) Keys() []Key { return append([]Key(nil), c.keys...) }

// ParseScope validates configured genome versions and data types.
func ParseScope(genomeVersions, dataTypes []string) ([]genome.Build, []model.DataType, error) {
	builds := make([]genome.Build, 0, len(genomeVersions))
	for _, v := range genomeVersions {
		b, err := genome.ParseBuild(v)
		if err != nil {
			return nil, nil, err
		}
		builds = append(builds, b)
	}
	dts := make([]model.DataType, 0, len(dataTypes))
	for _, v := range dataTypes {
		dt := model.DataType(v)
		if !slices.Contains(model.DataTypes, dt) {
			return nil, nil, fmt.Errorf("unsupported data type %q", v)
		}
		dts = append(dts, dt)
	}
	return builds, dts, nil
}
