package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasynth-ai/datasynth-engine/pkg/apperrors"
	"github.com/datasynth-ai/datasynth-engine/pkg/models"
)

func usersOrdersTables() []models.Table {
	return []models.Table{
		{
			ID: "t_users", Name: "users", RowsCount: 10,
			Fields: []models.Field{
				{Name: "id", Type: models.TypeFaker, IsUnique: true, Params: models.FakerParams{Method: "uuid4"}},
				{Name: "name", Type: models.TypeFaker, Params: models.FakerParams{Method: "name"}},
				{Name: "email", Type: models.TypeFaker, Params: models.FakerParams{Method: "email"}},
			},
		},
		{
			ID: "t_orders", Name: "orders", RowsCount: 20,
			Fields: []models.Field{
				{Name: "id", Type: models.TypeFaker, IsUnique: true, Params: models.FakerParams{Method: "uuid4"}},
				{Name: "user_id", Type: models.TypeForeignKey, Params: models.ForeignKeyParams{TableID: "t_users", ColumnName: "id"}},
				{Name: "amount", Type: models.TypeInteger, Params: models.IntegerParams{Min: 1, Max: 500}},
			},
		},
	}
}

func TestAvailableVariablesExcludesOwnName(t *testing.T) {
	r := NewResolver(usersOrdersTables())

	for _, fieldName := range []string{"id", "name", "email"} {
		vars, err := r.AvailableVariables("t_users", fieldName)
		require.NoError(t, err)
		for _, v := range vars {
			assert.NotEqual(t, fieldName, v.Name)
		}
	}
}

func TestAvailableVariablesRemoteSet(t *testing.T) {
	r := NewResolver(usersOrdersTables())

	vars, err := r.AvailableVariables("t_orders", "note")
	require.NoError(t, err)

	var locals, remotes []string
	for _, v := range vars {
		switch v.Source {
		case SourceLocal:
			locals = append(locals, v.Name)
		case SourceRemote:
			remotes = append(remotes, v.Name)
		}
	}

	assert.Equal(t, []string{"id", "user_id", "amount"}, locals)
	// Exactly one remote entry per field of the target table, fk-prefixed.
	assert.Equal(t, []string{"user_id.id", "user_id.name", "user_id.email"}, remotes)
}

func TestAvailableVariablesSingleHopOnly(t *testing.T) {
	tables := usersOrdersTables()
	tables = append(tables, models.Table{
		ID: "t_items", Name: "items", RowsCount: 5,
		Fields: []models.Field{
			{Name: "id", Type: models.TypeFaker, IsUnique: true, Params: models.FakerParams{Method: "uuid4"}},
			{Name: "order_id", Type: models.TypeForeignKey, Params: models.ForeignKeyParams{TableID: "t_orders", ColumnName: "id"}},
		},
	})
	r := NewResolver(tables)

	vars, err := r.AvailableVariables("t_items", "label")
	require.NoError(t, err)
	for _, v := range vars {
		// Reaching users through orders would need two hops; it is not exposed.
		assert.NotContains(t, v.Name, "user_id.")
	}
}

func TestAvailableVariablesSkipsDanglingForeignKey(t *testing.T) {
	tables := usersOrdersTables()[1:] // orders only; t_users is gone
	r := NewResolver(tables)

	vars, err := r.AvailableVariables("t_orders", "note")
	require.NoError(t, err)
	for _, v := range vars {
		assert.Equal(t, SourceLocal, v.Source)
	}
}

func TestAvailableVariablesUnknownTable(t *testing.T) {
	r := NewResolver(usersOrdersTables())
	_, err := r.AvailableVariables("t_missing", "x")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPromptRefs(t *testing.T) {
	refs := PromptRefs("Write a note for {user_id.name} about {product} and {product}")
	assert.Equal(t, []string{"user_id.name", "product"}, refs)

	// Double braces are template syntax, not prompt placeholders.
	assert.Empty(t, PromptRefs("nothing here"))
	assert.Empty(t, PromptRefs("{}"))
}

func TestTemplateRefs(t *testing.T) {
	refs := TemplateRefs("{{ name | slugify }}@{{ domain }} ({{ name }})")
	assert.Equal(t, []string{"name", "domain"}, refs)

	refs = TemplateRefs("{{ user_id.email | slugify('.') }}")
	assert.Equal(t, []string{"user_id.email"}, refs)

	assert.Empty(t, TemplateRefs("static text"))
}

func TestFieldRefs(t *testing.T) {
	llm := models.Field{Name: "bio", Type: models.TypeLLM, Params: models.LLMParams{PromptTemplate: "Bio for {name}"}}
	assert.Equal(t, []string{"name"}, FieldRefs(llm))

	tmpl := models.Field{Name: "email", Type: models.TypeTemplate, Params: models.TemplateParams{Template: "{{ name | slugify }}@x.io"}}
	assert.Equal(t, []string{"name"}, FieldRefs(tmpl))

	faker := models.Field{Name: "id", Type: models.TypeFaker, Params: models.FakerParams{Method: "uuid4"}}
	assert.Nil(t, FieldRefs(faker))
}

func TestLocalRef(t *testing.T) {
	assert.Equal(t, "user_id", LocalRef("user_id.email"))
	assert.Equal(t, "name", LocalRef("name"))
}
