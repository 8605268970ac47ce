package models

import (
	"encoding/json"
	"fmt"
)

// DocumentVersion is the project document format this build reads and writes.
const DocumentVersion = "2.0"

// GenerateRequest is the submit payload: the project settings plus every
// table, exactly as the generation engine consumes them.
type GenerateRequest struct {
	Config Project `json:"config"`
	Tables []Table `json:"tables"`
}

// TableByID returns the table with the given id, or nil.
func (r *GenerateRequest) TableByID(id string) *Table {
	for i := range r.Tables {
		if r.Tables[i].ID == id {
			return &r.Tables[i]
		}
	}
	return nil
}

// TotalRows is the number of rows the request will generate across all tables.
func (r *GenerateRequest) TotalRows() int {
	total := 0
	for _, t := range r.Tables {
		total += t.RowsCount
	}
	return total
}

// ProjectDocument is the versioned import/export envelope. It is unrelated to
// jobs; it exists so a schema can be saved to a file and loaded back.
type ProjectDocument struct {
	Config  Project `json:"config"`
	Tables  []Table `json:"tables"`
	Version string  `json:"version"`
}

// ExportDocument wraps the current project and tables into a document.
func ExportDocument(config Project, tables []Table) ProjectDocument {
	return ProjectDocument{Config: config, Tables: tables, Version: DocumentVersion}
}

// ImportDocument parses and validates a project document. Documents missing
// the config object or a tables array are rejected.
func ImportDocument(data []byte) (*ProjectDocument, error) {
	var probe struct {
		Config  *json.RawMessage `json:"config"`
		Tables  *json.RawMessage `json:"tables"`
		Version string           `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse project document: %w", err)
	}
	if probe.Config == nil {
		return nil, fmt.Errorf("invalid project document: missing 'config'")
	}
	if probe.Tables == nil || len(*probe.Tables) == 0 || (*probe.Tables)[0] != '[' {
		return nil, fmt.Errorf("invalid project document: missing 'tables' array")
	}

	var doc ProjectDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse project document: %w", err)
	}
	if len(doc.Tables) == 0 {
		return nil, fmt.Errorf("invalid project document: empty 'tables' array")
	}
	return &doc, nil
}
