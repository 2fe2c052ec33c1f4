// Package merge combines row sets: tables of several projects, the two
// sample types of one data type, and the results of several data types.
package merge

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/internal/search/model"
)

// Projects outer-joins project tables of one data type and sample type on
// variant key. The merged schema lists each table's families in input
// order; a row absent from a table gets nil groups for that table's
// families. Entry fields are unioned. Rows come back ordered by position.
func Projects(tables []*model.Table) *model.Table {
	switch len(tables) {
	case 0:
		return nil
	case 1:
		return tables[0]
	}
	schema := &model.Schema{DataType: tables[0].Schema.DataType}
	offsets := make([]int, len(tables))
	compHet := false
	for i, t := range tables {
		offsets[i] = len(schema.FamilyGUIDs)
		schema.FamilyGUIDs = append(schema.FamilyGUIDs, t.Schema.FamilyGUIDs...)
		schema.EntryFields = UnionFields(schema.EntryFields, t.Schema.EntryFields)
		for _, v := range t.Rows {
			if v.CompHetFamilies != nil {
				compHet = true
				break
			}
		}
	}
	width := len(schema.FamilyGUIDs)

	byKey := make(map[string]*model.Variant)
	for ti, t := range tables {
		for _, v := range t.Rows {
			out, ok := byKey[v.Key]
			if !ok {
				c := *v
				c.Schema = schema
				c.Families = make([]model.FamilyGroup, width)
				c.CompHetFamilies = nil
				if compHet {
					c.CompHetFamilies = make([]model.FamilyGroup, width)
				}
				out = &c
				byKey[v.Key] = out
			} else {
				out.IsPrimary = out.IsPrimary || v.IsPrimary
				out.IsSecondary = out.IsSecondary || v.IsSecondary
				if out.Annotation == nil {
					out.Annotation = v.Annotation
					out.GeneIDs = v.GeneIDs
				}
			}
			copy(out.Families[offsets[ti]:], v.Families)
			if v.CompHetFamilies != nil {
				copy(out.CompHetFamilies[offsets[ti]:], v.CompHetFamilies)
			}
		}
	}

	rows := make([]*model.Variant, 0, len(byKey))
	for _, v := range byKey {
		rows = append(rows, v)
	}
	SortByPosition(rows)
	return &model.Table{Schema: schema, SampleType: tables[0].SampleType, Rows: rows}
}

// SortByPosition orders rows by xpos, then key.
func SortByPosition(rows []*model.Variant) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].XPos != rows[j].XPos {
			return rows[i].XPos < rows[j].XPos
		}
		return rows[i].Key < rows[j].Key
	})
}

// UnionFields appends the fields of b missing from a.
func UnionFields(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, f := range a {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, f := range b {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// DataTypes concatenates the rows of several data types, dropping rows whose
// data-type-qualified id was already seen.
func DataTypes(sets ...[]*model.Variant) []*model.Variant {
	seen := make(map[string]bool)
	var out []*model.Variant
	for _, set := range sets {
		for _, v := range set {
			id := v.ID()
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, v)
		}
	}
	return out
}
