// Package exporters renders a generated dataset into its delivery formats.
// JSON results are structured documents; CSV and SQL are opaque byte payloads
// handed straight to file delivery.
package exporters

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/datasynth-ai/datasynth-engine/pkg/engine"
)

// ToCSV renders one table's rows with a header line, columns in declaration
// order.
func ToCSV(columns []string, rows []map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = stringify(row[col])
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// DatasetCSV renders every table as a CSV section framed by a comment line,
// in generation order.
func DatasetCSV(dataset *engine.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	for i, name := range dataset.TableOrder {
		if i > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "# table: %s\n", name)
		section, err := ToCSV(dataset.Columns[name], dataset.Rows[name])
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", name, err)
		}
		buf.Write(section)
	}
	return buf.Bytes(), nil
}

func stringify(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%v", value)
}
