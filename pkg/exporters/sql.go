package exporters

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/datasynth-ai/datasynth-engine/pkg/engine"
)

// ToSQL renders one table's rows as INSERT statements.
func ToSQL(tableName string, columns []string, rows []map[string]any) []byte {
	var buf bytes.Buffer
	name := sqlIdentifier(tableName)
	columnList := strings.Join(columns, ", ")

	values := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			values[i] = sqlLiteral(row[col])
		}
		fmt.Fprintf(&buf, "INSERT INTO %s (%s) VALUES (%s);\n", name, columnList, strings.Join(values, ", "))
	}
	return buf.Bytes()
}

// DatasetSQL renders every table in generation order, so the script inserts
// parents before the rows that reference them.
func DatasetSQL(dataset *engine.Dataset) []byte {
	var buf bytes.Buffer
	for i, name := range dataset.TableOrder {
		if i > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "-- table: %s\n", name)
		buf.Write(ToSQL(name, dataset.Columns[name], dataset.Rows[name]))
	}
	return buf.Bytes()
}

var identifierChars = regexp.MustCompile(`[^a-z0-9_]+`)

// sqlIdentifier lowercases a table name and collapses everything else to
// underscores, the same normalization the export filename uses.
func sqlIdentifier(name string) string {
	id := identifierChars.ReplaceAllString(strings.ToLower(name), "_")
	id = strings.Trim(id, "_")
	if id == "" {
		return "generated_data"
	}
	return id
}

// sqlLiteral renders one value: NULL for nil, bare numerics and booleans,
// single-quoted strings with embedded quotes doubled.
func sqlLiteral(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case int, int32, int64, float32, float64:
		return fmt.Sprintf("%v", v)
	default:
		return "'" + strings.ReplaceAll(fmt.Sprintf("%v", v), "'", "''") + "'"
	}
}
