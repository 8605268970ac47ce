package models

import (
	"encoding/json"
	"fmt"
)

// FieldType identifies which generation rule a field carries.
type FieldType string

const (
	TypeFaker        FieldType = "faker"
	TypeLLM          FieldType = "llm"
	TypeTemplate     FieldType = "template"
	TypeInteger      FieldType = "integer"
	TypeBoolean      FieldType = "boolean"
	TypeRegex        FieldType = "regex"
	TypeTimestamp    FieldType = "timestamp"
	TypeDistribution FieldType = "distribution"
	TypeForeignKey   FieldType = "foreign_key"
)

// Valid reports whether the type is one of the supported generators.
func (t FieldType) Valid() bool {
	switch t {
	case TypeFaker, TypeLLM, TypeTemplate, TypeInteger, TypeBoolean,
		TypeRegex, TypeTimestamp, TypeDistribution, TypeForeignKey:
		return true
	}
	return false
}

// Field is one column definition within a table. Params holds exactly the
// variant matching Type; constructing a mismatched combination is not
// representable through the JSON codec or DefaultParams.
type Field struct {
	Name         string      `json:"name"`
	Type         FieldType   `json:"type"`
	IsUnique     bool        `json:"is_unique"`
	Dependencies []string    `json:"dependencies"`
	Params       FieldParams `json:"params"`
}

// FieldParams is the closed set of per-type parameter records.
type FieldParams interface {
	fieldType() FieldType
}

type FakerParams struct {
	Method string `json:"method"`
}

type LLMParams struct {
	Provider         string  `json:"provider,omitempty"`
	Model            string  `json:"model,omitempty"`
	PromptTemplate   string  `json:"prompt_template,omitempty"`
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"top_p"`
	FrequencyPenalty float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64 `json:"presence_penalty,omitempty"`
}

type TemplateParams struct {
	Template string `json:"template"`
}

type IntegerParams struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

type BooleanParams struct {
	// Probability of generating true, in percent (0-100).
	Probability int `json:"probability"`
}

type RegexParams struct {
	Pattern string `json:"pattern"`
}

type TimestampParams struct {
	// MinDate and MaxDate accept "now", relative offsets such as "-1y" or
	// "+30d", or absolute "YYYY-MM-DD" dates.
	MinDate string `json:"min_date"`
	MaxDate string `json:"max_date"`
	// Format is a strftime-style pattern, or the literals "iso" / "timestamp".
	Format string `json:"format"`
}

type DistributionParams struct {
	Options []string  `json:"options"`
	Weights []float64 `json:"weights,omitempty"`
}

type ForeignKeyParams struct {
	TableID    string `json:"table_id"`
	ColumnName string `json:"column_name"`
}

func (FakerParams) fieldType() FieldType        { return TypeFaker }
func (LLMParams) fieldType() FieldType          { return TypeLLM }
func (TemplateParams) fieldType() FieldType     { return TypeTemplate }
func (IntegerParams) fieldType() FieldType      { return TypeInteger }
func (BooleanParams) fieldType() FieldType      { return TypeBoolean }
func (RegexParams) fieldType() FieldType        { return TypeRegex }
func (TimestampParams) fieldType() FieldType    { return TypeTimestamp }
func (DistributionParams) fieldType() FieldType { return TypeDistribution }
func (ForeignKeyParams) fieldType() FieldType   { return TypeForeignKey }

// DefaultParams returns the starter parameter record for a field type.
// Switching a field's type always goes through here so no property from the
// previous variant leaks into the new one.
func DefaultParams(t FieldType) FieldParams {
	switch t {
	case TypeFaker:
		return FakerParams{Method: "uuid4"}
	case TypeLLM:
		return LLMParams{Provider: "openai", Temperature: 1.0, TopP: 1.0}
	case TypeTemplate:
		return TemplateParams{}
	case TypeInteger:
		return IntegerParams{Min: 0, Max: 100}
	case TypeBoolean:
		return BooleanParams{Probability: 50}
	case TypeRegex:
		return RegexParams{Pattern: `\d{2}-\d{3}`}
	case TypeTimestamp:
		return TimestampParams{MinDate: "-1y", MaxDate: "now", Format: "%Y-%m-%d %H:%M:%S"}
	case TypeDistribution:
		return DistributionParams{
			Options: []string{"BUG", "FEATURE", "DOCS"},
			Weights: []float64{50, 30, 20},
		}
	case TypeForeignKey:
		return ForeignKeyParams{}
	}
	return nil
}

type fieldShell struct {
	Name         string          `json:"name"`
	Type         FieldType       `json:"type"`
	IsUnique     bool            `json:"is_unique"`
	Dependencies []string        `json:"dependencies"`
	Params       json.RawMessage `json:"params"`
}

// UnmarshalJSON decodes the params variant selected by the type tag.
func (f *Field) UnmarshalJSON(data []byte) error {
	var shell fieldShell
	if err := json.Unmarshal(data, &shell); err != nil {
		return err
	}
	if !shell.Type.Valid() {
		return fmt.Errorf("field %q: unknown type %q", shell.Name, shell.Type)
	}

	f.Name = shell.Name
	f.Type = shell.Type
	f.IsUnique = shell.IsUnique
	f.Dependencies = shell.Dependencies

	params, err := decodeParams(shell.Type, shell.Params)
	if err != nil {
		return fmt.Errorf("field %q: %w", shell.Name, err)
	}
	f.Params = params
	return nil
}

// MarshalJSON emits the params variant under the plain "params" key.
func (f Field) MarshalJSON() ([]byte, error) {
	var params any = f.Params
	if params == nil {
		params = map[string]any{}
	}
	return json.Marshal(struct {
		Name         string    `json:"name"`
		Type         FieldType `json:"type"`
		IsUnique     bool      `json:"is_unique"`
		Dependencies []string  `json:"dependencies"`
		Params       any       `json:"params"`
	}{f.Name, f.Type, f.IsUnique, f.Dependencies, params})
}

func decodeParams(t FieldType, raw json.RawMessage) (FieldParams, error) {
	if len(raw) == 0 {
		return DefaultParams(t), nil
	}
	switch t {
	case TypeFaker:
		return decodeInto[FakerParams](raw)
	case TypeLLM:
		return decodeInto[LLMParams](raw)
	case TypeTemplate:
		return decodeInto[TemplateParams](raw)
	case TypeInteger:
		return decodeInto[IntegerParams](raw)
	case TypeBoolean:
		return decodeInto[BooleanParams](raw)
	case TypeRegex:
		return decodeInto[RegexParams](raw)
	case TypeTimestamp:
		return decodeInto[TimestampParams](raw)
	case TypeDistribution:
		return decodeInto[DistributionParams](raw)
	case TypeForeignKey:
		return decodeInto[ForeignKeyParams](raw)
	}
	return nil, fmt.Errorf("unknown field type %q", t)
}

func decodeInto[P FieldParams](raw json.RawMessage) (FieldParams, error) {
	var p P
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	return p, nil
}
