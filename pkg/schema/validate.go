package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/datasynth-ai/datasynth-engine/pkg/models"
)

// ValidationError describes one schema problem found before submission.
type ValidationError struct {
	Table   string `json:"table,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	switch {
	case e.Table != "" && e.Field != "":
		return fmt.Sprintf("table %q field %q: %s", e.Table, e.Field, e.Message)
	case e.Table != "":
		return fmt.Sprintf("table %q: %s", e.Table, e.Message)
	}
	return e.Message
}

// ValidationErrors collects every problem found in one pass.
type ValidationErrors []*ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return "schema validation failed: " + strings.Join(msgs, "; ")
}

// Validate checks a generation request against every rule the engine relies
// on. A request that passes is safe to hand to the engine: all placeholders
// resolve, all foreign keys point at live columns, and the cross-table
// reference graph is acyclic. Invalid requests are never submitted.
func Validate(req *models.GenerateRequest) error {
	var errs ValidationErrors

	add := func(table, field, format string, args ...any) {
		errs = append(errs, &ValidationError{Table: table, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if !req.Config.OutputFormat.Valid() {
		add("", "", "unsupported output format %q", req.Config.OutputFormat)
	}
	if len(req.Tables) == 0 {
		add("", "", "at least one table is required")
	}

	resolver := NewResolver(req.Tables)

	for _, table := range req.Tables {
		if table.RowsCount < 0 {
			add(table.Name, "", "rows_count must be non-negative")
		}

		seen := make(map[string]bool)
		for _, field := range table.Fields {
			if seen[field.Name] {
				add(table.Name, field.Name, "duplicate field name")
			}
			seen[field.Name] = true

			validateField(&errs, resolver, req, table, field, add)
		}
	}

	if cycle := foreignKeyCycle(req.Tables); cycle != nil {
		add("", "", "foreign keys form a cycle: %s", strings.Join(cycle, " -> "))
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateField(errs *ValidationErrors, resolver *Resolver, req *models.GenerateRequest,
	table models.Table, field models.Field, add func(table, field, format string, args ...any)) {

	switch p := field.Params.(type) {
	case models.FakerParams:
		if p.Method == "" {
			add(table.Name, field.Name, "faker method is required")
		} else if !models.IsFakerMethod(p.Method) {
			add(table.Name, field.Name, "unknown faker method %q", p.Method)
		}

	case models.IntegerParams:
		if p.Min > p.Max {
			add(table.Name, field.Name, "min %d exceeds max %d", p.Min, p.Max)
		}

	case models.BooleanParams:
		if p.Probability < 0 || p.Probability > 100 {
			add(table.Name, field.Name, "probability must be between 0 and 100")
		}

	case models.RegexParams:
		if _, err := regexp.Compile(p.Pattern); err != nil {
			add(table.Name, field.Name, "pattern does not compile: %v", err)
		}

	case models.DistributionParams:
		if len(p.Options) == 0 {
			add(table.Name, field.Name, "at least one option is required")
			return
		}
		if p.Weights == nil {
			return // absent weights mean a uniform choice
		}
		if len(p.Options) != len(p.Weights) {
			add(table.Name, field.Name, "options and weights lengths differ (%d vs %d)", len(p.Options), len(p.Weights))
			return
		}
		total := 0.0
		for _, w := range p.Weights {
			if w < 0 {
				add(table.Name, field.Name, "weights must be non-negative")
				return
			}
			total += w
		}
		if total <= 0 {
			add(table.Name, field.Name, "total weight must be greater than zero")
		}

	case models.LLMParams:
		if p.Temperature < 0 || p.Temperature > 2 {
			add(table.Name, field.Name, "temperature must be in [0, 2]")
		}
		if p.TopP < 0 || p.TopP > 1 {
			add(table.Name, field.Name, "top_p must be in [0, 1]")
		}
		if p.FrequencyPenalty < 0 || p.FrequencyPenalty > 2 {
			add(table.Name, field.Name, "frequency_penalty must be in [0, 2]")
		}
		if p.PresencePenalty < 0 || p.PresencePenalty > 2 {
			add(table.Name, field.Name, "presence_penalty must be in [0, 2]")
		}
		if p.PromptTemplate == "" {
			add(table.Name, field.Name, "prompt_template is required")
		}
		validateRefs(resolver, table, field, PromptRefs(p.PromptTemplate), add)

	case models.TemplateParams:
		if p.Template == "" {
			add(table.Name, field.Name, "template is required")
		}
		validateRefs(resolver, table, field, TemplateRefs(p.Template), add)

	case models.ForeignKeyParams:
		if p.TableID == "" {
			add(table.Name, field.Name, "foreign key has no target table")
			return
		}
		if p.TableID == table.ID {
			add(table.Name, field.Name, "foreign key must not reference its own table")
			return
		}
		target := req.TableByID(p.TableID)
		if target == nil {
			add(table.Name, field.Name, "foreign key targets unknown table %q", p.TableID)
			return
		}
		if p.ColumnName == "" {
			add(table.Name, field.Name, "foreign key has no target column")
			return
		}
		if target.FieldByName(p.ColumnName) == nil {
			add(table.Name, field.Name, "foreign key targets unknown column %q of table %q", p.ColumnName, target.Name)
		}
	}
}

// validateRefs checks that every placeholder resolves against the field's
// available-variable set. An unresolvable placeholder is an error here, never
// a silent empty-string substitution at generation time.
func validateRefs(resolver *Resolver, table models.Table, field models.Field,
	refs []string, add func(table, field, format string, args ...any)) {

	vars, err := resolver.AvailableVariables(table.ID, field.Name)
	if err != nil {
		add(table.Name, field.Name, "resolve variables: %v", err)
		return
	}
	available := make(map[string]bool, len(vars))
	for _, v := range vars {
		available[v.Name] = true
	}
	for _, ref := range refs {
		if !available[ref] {
			add(table.Name, field.Name, "placeholder {%s} does not resolve to an available variable", ref)
		}
	}
}

// foreignKeyCycle reports a cycle in the table reference graph, if any, as a
// path of table names. Resolving variables across a cycle is undefined, so a
// cyclic schema is rejected at submission time.
func foreignKeyCycle(tables []models.Table) []string {
	byID := make(map[string]*models.Table, len(tables))
	for i := range tables {
		byID[tables[i].ID] = &tables[i]
	}

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(tables))

	var path []string
	var visit func(id string) []string
	visit = func(id string) []string {
		table := byID[id]
		if table == nil {
			return nil
		}
		state[id] = inStack
		path = append(path, table.Name)

		for _, fk := range table.ForeignKeys() {
			target := fk.Params.(models.ForeignKeyParams).TableID
			switch state[target] {
			case inStack:
				if t := byID[target]; t != nil {
					return append(append([]string{}, path...), t.Name)
				}
			case unvisited:
				if cycle := visit(target); cycle != nil {
					return cycle
				}
			}
		}

		path = path[:len(path)-1]
		state[id] = done
		return nil
	}

	for i := range tables {
		if state[tables[i].ID] == unvisited {
			if cycle := visit(tables[i].ID); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
