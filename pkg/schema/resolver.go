package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/datasynth-ai/datasynth-engine/pkg/apperrors"
	"github.com/datasynth-ai/datasynth-engine/pkg/models"
)

// VariableSource tells where a template/prompt variable's value comes from.
type VariableSource string

const (
	// SourceLocal is a sibling field in the same table.
	SourceLocal VariableSource = "local"
	// SourceRemote is a column of a table reached through a foreign key.
	SourceRemote VariableSource = "remote"
)

// Variable is one name usable inside a prompt or template.
type Variable struct {
	Name      string
	Source    VariableSource
	TableName string
}

// Resolver computes the variables available to a field's prompt or template.
type Resolver struct {
	tables []models.Table
}

// NewResolver builds a resolver over the given tables.
func NewResolver(tables []models.Table) *Resolver {
	return &Resolver{tables: tables}
}

// AvailableVariables lists, in field-declaration order, the variables the
// named field may reference: every sibling field except itself, and for each
// sibling foreign_key field with a resolved target table, every column of
// that table as "<fk>.<column>". Only one remote hop is exposed; chained
// foreign keys are deliberately out of reach.
func (r *Resolver) AvailableVariables(tableID, fieldName string) ([]Variable, error) {
	table := r.tableByID(tableID)
	if table == nil {
		return nil, fmt.Errorf("resolve variables for table %q: %w", tableID, apperrors.ErrNotFound)
	}

	var vars []Variable
	for _, f := range table.Fields {
		if f.Name == fieldName {
			continue
		}
		vars = append(vars, Variable{Name: f.Name, Source: SourceLocal, TableName: table.Name})

		fk, ok := f.Params.(models.ForeignKeyParams)
		if !ok {
			continue
		}
		target := r.tableByID(fk.TableID)
		if target == nil {
			continue // dangling mid-edit; submission validation reports it
		}
		for _, remote := range target.Fields {
			vars = append(vars, Variable{
				Name:      f.Name + "." + remote.Name,
				Source:    SourceRemote,
				TableName: target.Name,
			})
		}
	}
	return vars, nil
}

func (r *Resolver) tableByID(id string) *models.Table {
	for i := range r.tables {
		if r.tables[i].ID == id {
			return &r.tables[i]
		}
	}
	return nil
}

var (
	// {name} or {fk.column}; double braces belong to the template syntax and
	// are not prompt placeholders.
	promptRefPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)?)\}`)
	// {{ name }} with optional "| transform" pipes after the variable.
	templateRefPattern = regexp.MustCompile(`\{\{\s*([^}]+?)\s*\}\}`)
)

// PromptRefs extracts the {name} / {name.column} references of an LLM prompt
// template, in order of first appearance, deduplicated.
func PromptRefs(prompt string) []string {
	var refs []string
	seen := make(map[string]bool)
	for _, m := range promptRefPattern.FindAllStringSubmatch(prompt, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			refs = append(refs, m[1])
		}
	}
	return refs
}

// TemplateRefs extracts the {{ name }} references of a template, dropping any
// "| transform" pipe suffix.
func TemplateRefs(template string) []string {
	var refs []string
	seen := make(map[string]bool)
	for _, m := range templateRefPattern.FindAllStringSubmatch(template, -1) {
		name := m[1]
		if i := strings.Index(name, "|"); i >= 0 {
			name = name[:i]
		}
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		refs = append(refs, name)
	}
	return refs
}

// FieldRefs returns the variable references a field's rule uses, derived from
// the rule text itself. The declared dependencies list is carried through
// serialization but is not trusted as an authoritative source.
func FieldRefs(field models.Field) []string {
	switch p := field.Params.(type) {
	case models.LLMParams:
		return PromptRefs(p.PromptTemplate)
	case models.TemplateParams:
		return TemplateRefs(p.Template)
	}
	return nil
}

// LocalRef returns the local part of a reference: "fk.column" -> "fk".
func LocalRef(ref string) string {
	if i := strings.Index(ref, "."); i >= 0 {
		return ref[:i]
	}
	return ref
}
