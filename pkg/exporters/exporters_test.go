package exporters

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasynth-ai/datasynth-engine/pkg/engine"
)

func sampleDataset() *engine.Dataset {
	return &engine.Dataset{
		TableOrder: []string{"users", "orders"},
		Columns: map[string][]string{
			"users":  {"id", "name"},
			"orders": {"id", "user_id", "amount", "gift"},
		},
		Rows: map[string][]map[string]any{
			"users": {
				{"id": "u1", "name": "Ada O'Brien"},
				{"id": "u2", "name": "Grace Hopper"},
			},
			"orders": {
				{"id": "o1", "user_id": "u1", "amount": int64(42), "gift": true},
				{"id": "o2", "user_id": "u2", "amount": nil, "gift": false},
			},
		},
	}
}

func TestToCSV(t *testing.T) {
	d := sampleDataset()
	out, err := ToCSV(d.Columns["users"], d.Rows["users"])
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,name", lines[0])
	assert.Equal(t, "u1,Ada O'Brien", lines[1])
	assert.Equal(t, "u2,Grace Hopper", lines[2])
}

func TestToCSVQuotesSeparators(t *testing.T) {
	out, err := ToCSV([]string{"note"}, []map[string]any{{"note": `has, comma and "quotes"`}})
	require.NoError(t, err)
	assert.Equal(t, "note\n\"has, comma and \"\"quotes\"\"\"\n", string(out))
}

func TestDatasetCSVSections(t *testing.T) {
	out, err := DatasetCSV(sampleDataset())
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "# table: users\n")
	assert.Contains(t, text, "# table: orders\n")
	// Parent section comes first.
	assert.Less(t, strings.Index(text, "# table: users"), strings.Index(text, "# table: orders"))
}

func TestToSQLLiterals(t *testing.T) {
	d := sampleDataset()
	out := string(ToSQL("orders", d.Columns["orders"], d.Rows["orders"]))

	assert.Contains(t, out, "INSERT INTO orders (id, user_id, amount, gift) VALUES ('o1', 'u1', 42, TRUE);")
	assert.Contains(t, out, "VALUES ('o2', 'u2', NULL, FALSE);")
}

func TestToSQLEscapesQuotes(t *testing.T) {
	out := string(ToSQL("users", []string{"name"}, []map[string]any{{"name": "Ada O'Brien"}}))
	assert.Contains(t, out, "('Ada O''Brien')")
}

func TestSQLIdentifier(t *testing.T) {
	assert.Equal(t, "my_database", sqlIdentifier("My Database"))
	assert.Equal(t, "orders", sqlIdentifier("orders"))
	assert.Equal(t, "generated_data", sqlIdentifier("!!!"))
}

func TestDatasetSQLOrdersParentsFirst(t *testing.T) {
	out := string(DatasetSQL(sampleDataset()))
	assert.Less(t, strings.Index(out, "-- table: users"), strings.Index(out, "-- table: orders"))
}
