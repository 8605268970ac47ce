// Package models defines the schema data model shared by the editing
// surface, the generation engine, and the wire contract.
package models

// OutputFormat selects how a finished job's result is delivered.
type OutputFormat string

const (
	FormatJSON OutputFormat = "json"
	FormatCSV  OutputFormat = "csv"
	FormatSQL  OutputFormat = "sql"
)

// Valid reports whether the format is one of the supported values.
func (f OutputFormat) Valid() bool {
	switch f {
	case FormatJSON, FormatCSV, FormatSQL:
		return true
	}
	return false
}

// Binary reports whether results in this format are delivered as an opaque
// byte payload rather than a structured document.
func (f OutputFormat) Binary() bool {
	return f == FormatCSV || f == FormatSQL
}

// Project is the root aggregate for one editing session.
type Project struct {
	JobName       string       `json:"job_name"`
	GlobalContext string       `json:"global_context,omitempty"`
	OutputFormat  OutputFormat `json:"output_format"`
	Locale        string       `json:"locale,omitempty"`
}

// DefaultProject returns the project settings a fresh session starts with.
func DefaultProject() Project {
	return Project{
		JobName:      "My Database",
		OutputFormat: FormatJSON,
		Locale:       "en_US",
	}
}

// Table is one relational table definition. The ID is opaque and stable once
// created; the name is what generated output and foreign keys refer to.
type Table struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	RowsCount int     `json:"rows_count"`
	Fields    []Field `json:"fields"`
}

// FieldByName returns the field with the given name, or nil.
func (t *Table) FieldByName(name string) *Field {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}
	return nil
}

// ForeignKeys returns the table's foreign_key fields in declaration order.
func (t *Table) ForeignKeys() []Field {
	var fks []Field
	for _, f := range t.Fields {
		if f.Type == TypeForeignKey {
			fks = append(fks, f)
		}
	}
	return fks
}
