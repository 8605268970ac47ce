// Package engine produces synthetic rows from a validated generation request.
// Tables are generated in foreign-key order so parent rows exist before any
// row references them; within a row, fields are evaluated in plan order so
// template and prompt variables are always already generated.
package engine

import (
	"context"
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/datasynth-ai/datasynth-engine/pkg/llm"
	"github.com/datasynth-ai/datasynth-engine/pkg/models"
	"github.com/datasynth-ai/datasynth-engine/pkg/schema"
)

// maxUniqueAttempts bounds retries for is_unique fields before the run is
// declared failed. Tight ranges exhaust quickly; there is no point grinding.
const maxUniqueAttempts = 30

// Dataset is the in-memory result of one generation run.
type Dataset struct {
	// TableOrder lists table names in generation order.
	TableOrder []string
	// Columns holds each table's column names in declaration order.
	Columns map[string][]string
	// Rows holds the generated rows per table name.
	Rows map[string][]map[string]any
}

// TotalRows counts every generated row across tables.
func (d *Dataset) TotalRows() int {
	total := 0
	for _, rows := range d.Rows {
		total += len(rows)
	}
	return total
}

// ProgressFunc receives the overall completion percentage (0-100). Calls are
// monotonically non-decreasing.
type ProgressFunc func(percent int)

// Engine generates datasets. LLM providers are looked up by the provider name
// on each llm-type field.
type Engine struct {
	providers map[string]llm.Client
	faker     *gofakeit.Faker
	logger    *zap.Logger
}

// New creates an engine. providers may be nil when no llm fields are in play.
func New(providers map[string]llm.Client, logger *zap.Logger) *Engine {
	return &Engine{
		providers: providers,
		faker:     gofakeit.New(0),
		logger:    logger.Named("engine"),
	}
}

// Generate runs one request to completion. The request must already have
// passed schema.Validate; planning failures here mean the caller skipped it.
// Cancellation is observed between rows.
func (e *Engine) Generate(ctx context.Context, req *models.GenerateRequest, onProgress ProgressFunc) (*Dataset, error) {
	plan, err := schema.BuildPlan(req)
	if err != nil {
		return nil, fmt.Errorf("plan generation: %w", err)
	}

	dataset := &Dataset{
		Columns: make(map[string][]string, len(plan.Tables)),
		Rows:    make(map[string][]map[string]any, len(plan.Tables)),
	}

	totalRows := req.TotalRows()
	doneRows := 0

	for _, planned := range plan.Tables {
		table := planned.Table
		dataset.TableOrder = append(dataset.TableOrder, table.Name)
		for _, f := range table.Fields {
			dataset.Columns[table.Name] = append(dataset.Columns[table.Name], f.Name)
		}

		e.logger.Info("generating table",
			zap.String("table", table.Name),
			zap.Int("rows", table.RowsCount))

		unique := newUniqueTracker(planned.Fields)
		rows := make([]map[string]any, 0, table.RowsCount)

		for i := 0; i < table.RowsCount; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			row, err := e.generateRow(ctx, req, planned, dataset, unique)
			if err != nil {
				return nil, fmt.Errorf("table %q row %d: %w", table.Name, i+1, err)
			}
			rows = append(rows, row)

			doneRows++
			if onProgress != nil && totalRows > 0 {
				onProgress(doneRows * 100 / totalRows)
			}
		}
		dataset.Rows[table.Name] = rows
	}

	if onProgress != nil {
		onProgress(100)
	}
	return dataset, nil
}

// generateRow evaluates every field of one row in plan order. rowCtx maps
// variable names (local and fk-qualified remote) to generated values for
// placeholder expansion.
func (e *Engine) generateRow(ctx context.Context, req *models.GenerateRequest,
	planned schema.PlannedTable, dataset *Dataset, unique *uniqueTracker) (map[string]any, error) {

	row := make(map[string]any, len(planned.Fields))
	rowCtx := make(map[string]any, len(planned.Fields))
	if req.Config.GlobalContext != "" {
		rowCtx["global_context"] = req.Config.GlobalContext
	}

	for _, field := range planned.Fields {
		value, err := e.generateValue(ctx, req, field, rowCtx, dataset, unique)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Name, err)
		}
		row[field.Name] = value
		rowCtx[field.Name] = value
	}
	return row, nil
}

// generateValue evaluates one field, retrying for uniqueness when requested.
func (e *Engine) generateValue(ctx context.Context, req *models.GenerateRequest,
	field models.Field, rowCtx map[string]any, dataset *Dataset, unique *uniqueTracker) (any, error) {

	attempts := 1
	if field.IsUnique {
		attempts = maxUniqueAttempts
	}

	var value any
	for attempt := 0; attempt < attempts; attempt++ {
		var err error
		value, err = e.evalField(ctx, req, field, rowCtx, dataset)
		if err != nil {
			return nil, err
		}
		if !field.IsUnique || unique.claim(field.Name, value) {
			return value, nil
		}
	}
	return nil, fmt.Errorf("could not generate a unique value after %d attempts", maxUniqueAttempts)
}

func (e *Engine) evalField(ctx context.Context, req *models.GenerateRequest,
	field models.Field, rowCtx map[string]any, dataset *Dataset) (any, error) {

	switch p := field.Params.(type) {
	case models.FakerParams:
		return e.fakerValue(p)
	case models.IntegerParams:
		return e.integerValue(p)
	case models.BooleanParams:
		return e.booleanValue(p)
	case models.RegexParams:
		return e.regexValue(p)
	case models.TimestampParams:
		return e.timestampValue(p)
	case models.DistributionParams:
		return e.distributionValue(p)
	case models.TemplateParams:
		return expandTemplate(p.Template, rowCtx)
	case models.LLMParams:
		return e.llmValue(ctx, p, rowCtx)
	case models.ForeignKeyParams:
		return e.foreignKeyValue(req, field.Name, p, rowCtx, dataset)
	}
	return nil, fmt.Errorf("unsupported field type %q", field.Type)
}

// llmValue expands the prompt against the row context and asks the field's
// provider for a value.
func (e *Engine) llmValue(ctx context.Context, p models.LLMParams, rowCtx map[string]any) (any, error) {
	client, ok := e.providers[p.Provider]
	if !ok {
		return nil, fmt.Errorf("llm provider %q is not configured", p.Provider)
	}

	prompt, err := expandPrompt(p.PromptTemplate, rowCtx)
	if err != nil {
		return nil, err
	}

	value, err := client.GenerateValue(ctx, prompt, llm.GenerateOptions{
		Model:            p.Model,
		Temperature:      p.Temperature,
		TopP:             p.TopP,
		FrequencyPenalty: p.FrequencyPenalty,
		PresencePenalty:  p.PresencePenalty,
	})
	if err != nil {
		return nil, fmt.Errorf("llm generation: %w", err)
	}
	return value, nil
}

// foreignKeyValue samples a parent row from the already-generated target
// table. The whole parent row is exposed in the row context under
// "<fk>.<column>" names so remote references resolve against the same parent.
func (e *Engine) foreignKeyValue(req *models.GenerateRequest, fieldName string,
	p models.ForeignKeyParams, rowCtx map[string]any, dataset *Dataset) (any, error) {

	target := req.TableByID(p.TableID)
	if target == nil {
		return nil, fmt.Errorf("foreign key targets unknown table %q", p.TableID)
	}
	parents := dataset.Rows[target.Name]
	if len(parents) == 0 {
		return nil, fmt.Errorf("foreign key target table %q has no generated rows", target.Name)
	}

	parent := parents[e.faker.IntRange(0, len(parents)-1)]
	for column, value := range parent {
		rowCtx[fieldName+"."+column] = value
	}

	value, ok := parent[p.ColumnName]
	if !ok {
		return nil, fmt.Errorf("foreign key target column %q missing from table %q", p.ColumnName, target.Name)
	}
	return value, nil
}

// uniqueTracker remembers claimed values for is_unique fields of one table.
type uniqueTracker struct {
	seen map[string]map[string]bool
}

func newUniqueTracker(fields []models.Field) *uniqueTracker {
	t := &uniqueTracker{seen: make(map[string]map[string]bool)}
	for _, f := range fields {
		if f.IsUnique {
			t.seen[f.Name] = make(map[string]bool)
		}
	}
	return t
}

// claim records the value and reports whether it was unseen.
func (t *uniqueTracker) claim(field string, value any) bool {
	values := t.seen[field]
	if values == nil {
		return true
	}
	key := fmt.Sprintf("%v", value)
	if values[key] {
		return false
	}
	values[key] = true
	return true
}
