package schema

import (
	"fmt"

	"github.com/datasynth-ai/datasynth-engine/pkg/models"
)

// Plan is the generation order for a request: tables sorted so every foreign
// key target is generated before its referrers, and fields within each table
// sorted so locals referenced by templates and prompts exist by the time they
// are expanded.
type Plan struct {
	Tables []PlannedTable
}

// PlannedTable is one table with its field evaluation order.
type PlannedTable struct {
	Table  models.Table
	Fields []models.Field
}

// BuildPlan orders a validated request for generation. It fails on foreign
// key cycles between tables and on reference cycles between sibling fields;
// Validate reports both earlier with richer context.
func BuildPlan(req *models.GenerateRequest) (*Plan, error) {
	tableOrder, err := orderTables(req.Tables)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Tables: make([]PlannedTable, 0, len(tableOrder))}
	for _, table := range tableOrder {
		fields, err := orderFields(table)
		if err != nil {
			return nil, err
		}
		plan.Tables = append(plan.Tables, PlannedTable{Table: table, Fields: fields})
	}
	return plan, nil
}

// orderTables is a stable topological sort on the foreign key graph: a table
// comes after every table it references.
func orderTables(tables []models.Table) ([]models.Table, error) {
	byID := make(map[string]models.Table, len(tables))
	for _, t := range tables {
		byID[t.ID] = t
	}

	placed := make(map[string]bool, len(tables))
	ordered := make([]models.Table, 0, len(tables))

	for len(ordered) < len(tables) {
		progressed := false
		for _, t := range tables {
			if placed[t.ID] {
				continue
			}
			ready := true
			for _, fk := range t.ForeignKeys() {
				target := fk.Params.(models.ForeignKeyParams).TableID
				if _, known := byID[target]; known && !placed[target] && target != t.ID {
					ready = false
					break
				}
			}
			if ready {
				ordered = append(ordered, t)
				placed[t.ID] = true
				progressed = true
			}
		}
		if !progressed {
			return nil, fmt.Errorf("tables cannot be ordered: foreign keys form a cycle")
		}
	}
	return ordered, nil
}

// orderFields is a stable topological sort of one table's fields by their
// local references, so a template never expands a sibling that has not been
// generated yet for the current row.
func orderFields(table models.Table) ([]models.Field, error) {
	placed := make(map[string]bool, len(table.Fields))
	used := make([]bool, len(table.Fields))
	ordered := make([]models.Field, 0, len(table.Fields))

	names := make(map[string]bool, len(table.Fields))
	for _, f := range table.Fields {
		names[f.Name] = true
	}

	for len(ordered) < len(table.Fields) {
		progressed := false
		for i, f := range table.Fields {
			if used[i] {
				continue
			}
			ready := true
			for _, ref := range FieldRefs(f) {
				local := LocalRef(ref)
				// Unknown names are a validation error, not an ordering
				// constraint.
				if names[local] && !placed[local] {
					ready = false
					break
				}
			}
			if ready {
				ordered = append(ordered, f)
				placed[f.Name] = true
				used[i] = true
				progressed = true
			}
		}
		if !progressed {
			return nil, fmt.Errorf("table %q: field references form a cycle", table.Name)
		}
	}
	return ordered, nil
}
