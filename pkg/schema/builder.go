// Package schema owns the in-memory schema model: table and field editing,
// variable resolution, submission-time validation, and generation planning.
package schema

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/datasynth-ai/datasynth-engine/pkg/apperrors"
	"github.com/datasynth-ai/datasynth-engine/pkg/models"
)

// Builder is the schema model for one editing session. All mutations take
// explicit table ids so the model is testable without a UI harness; the
// selected-table pointer is tracked only as a convenience for callers.
type Builder struct {
	config   models.Project
	tables   []models.Table
	selected string
}

// NewBuilder creates a session with default project settings and one starter
// table, so every session has at least one table to edit.
func NewBuilder() *Builder {
	b := &Builder{config: models.DefaultProject()}
	b.AddTable()
	return b
}

// Config returns a copy of the project settings.
func (b *Builder) Config() models.Project { return b.config }

// SetConfig replaces the project settings.
func (b *Builder) SetConfig(config models.Project) { b.config = config }

// Tables returns the tables in creation order.
func (b *Builder) Tables() []models.Table { return b.tables }

// Selected returns the currently selected table.
func (b *Builder) Selected() *models.Table { return b.tableByID(b.selected) }

// SelectTable moves the selection to the given table.
func (b *Builder) SelectTable(id string) error {
	if b.tableByID(id) == nil {
		return fmt.Errorf("select table %q: %w", id, apperrors.ErrNotFound)
	}
	b.selected = id
	return nil
}

// AddTable creates a table with a generated id, a default name, and a starter
// unique identifier field, then selects it.
func (b *Builder) AddTable() *models.Table {
	table := models.Table{
		ID:        "t_" + uuid.NewString()[:8],
		Name:      fmt.Sprintf("table_%d", len(b.tables)+1),
		RowsCount: 10,
		Fields: []models.Field{
			{
				Name:     "id",
				Type:     models.TypeFaker,
				IsUnique: true,
				Params:   models.FakerParams{Method: "uuid4"},
			},
		},
	}
	b.tables = append(b.tables, table)
	b.selected = table.ID
	return &b.tables[len(b.tables)-1]
}

// RemoveTable deletes a table. Removing the last remaining table is refused
// and leaves the model unchanged. Foreign keys in other tables that pointed
// at the removed table are left dangling; submission validation catches them.
func (b *Builder) RemoveTable(id string) error {
	if len(b.tables) <= 1 {
		return apperrors.ErrLastTable
	}
	idx := -1
	for i := range b.tables {
		if b.tables[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("remove table %q: %w", id, apperrors.ErrNotFound)
	}
	b.tables = append(b.tables[:idx], b.tables[idx+1:]...)
	if b.selected == id {
		b.selected = b.tables[0].ID
	}
	return nil
}

// TableUpdate carries the mutable table attributes. Nil fields are left as is.
type TableUpdate struct {
	Name      *string
	RowsCount *int
}

// UpdateTable merges name and rows_count into an existing table. Fields are
// never touched by this operation.
func (b *Builder) UpdateTable(id string, update TableUpdate) error {
	table := b.tableByID(id)
	if table == nil {
		return fmt.Errorf("update table %q: %w", id, apperrors.ErrNotFound)
	}
	if update.Name != nil {
		table.Name = *update.Name
	}
	if update.RowsCount != nil {
		if *update.RowsCount < 0 {
			return fmt.Errorf("update table %q: rows_count must be non-negative", id)
		}
		table.RowsCount = *update.RowsCount
	}
	return nil
}

// AddField appends a field to a table.
func (b *Builder) AddField(tableID string, field models.Field) error {
	table := b.tableByID(tableID)
	if table == nil {
		return fmt.Errorf("add field to table %q: %w", tableID, apperrors.ErrNotFound)
	}
	if err := checkFieldShape(field); err != nil {
		return err
	}
	table.Fields = append(table.Fields, field)
	return nil
}

// UpdateField replaces the field at the given position wholesale. Commits are
// whole-record replaces so a half-edited params record never lands in the
// model; callers switching types build the replacement via
// models.DefaultParams.
func (b *Builder) UpdateField(tableID string, index int, field models.Field) error {
	table := b.tableByID(tableID)
	if table == nil {
		return fmt.Errorf("update field in table %q: %w", tableID, apperrors.ErrNotFound)
	}
	if index < 0 || index >= len(table.Fields) {
		return fmt.Errorf("update field %d in table %q: %w", index, tableID, apperrors.ErrNotFound)
	}
	if err := checkFieldShape(field); err != nil {
		return err
	}
	table.Fields[index] = field
	return nil
}

// RemoveField deletes the field at the given position.
func (b *Builder) RemoveField(tableID string, index int) error {
	table := b.tableByID(tableID)
	if table == nil {
		return fmt.Errorf("remove field from table %q: %w", tableID, apperrors.ErrNotFound)
	}
	if index < 0 || index >= len(table.Fields) {
		return fmt.Errorf("remove field %d from table %q: %w", index, tableID, apperrors.ErrNotFound)
	}
	table.Fields = append(table.Fields[:index], table.Fields[index+1:]...)
	return nil
}

// Request serializes the model into a generation request.
func (b *Builder) Request() models.GenerateRequest {
	return models.GenerateRequest{Config: b.config, Tables: b.tables}
}

// Export wraps the model into a versioned project document.
func (b *Builder) Export() models.ProjectDocument {
	return models.ExportDocument(b.config, b.tables)
}

// Import replaces the whole model from a project document and selects the
// first table.
func (b *Builder) Import(doc *models.ProjectDocument) {
	b.config = doc.Config
	b.tables = doc.Tables
	b.selected = doc.Tables[0].ID
}

func (b *Builder) tableByID(id string) *models.Table {
	for i := range b.tables {
		if b.tables[i].ID == id {
			return &b.tables[i]
		}
	}
	return nil
}

// checkFieldShape rejects fields whose params record does not match the
// declared type. The JSON codec cannot produce such a field, but callers
// constructing fields programmatically can.
func checkFieldShape(field models.Field) error {
	if field.Name == "" {
		return fmt.Errorf("field name is required")
	}
	if !field.Type.Valid() {
		return fmt.Errorf("field %q: unknown type %q", field.Name, field.Type)
	}
	if field.Params == nil {
		return fmt.Errorf("field %q: params are required", field.Name)
	}
	expected := models.DefaultParams(field.Type)
	if fmt.Sprintf("%T", field.Params) != fmt.Sprintf("%T", expected) {
		return fmt.Errorf("field %q: params %T do not match type %q", field.Name, field.Params, field.Type)
	}
	return nil
}
