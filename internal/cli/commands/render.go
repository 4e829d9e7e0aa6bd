package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapfeat/pkg/core"
)

// Output formats accepted by --output.
const (
	formatTable = "table"
	formatJSON  = "json"
)

func renderTable(w io.Writer, header []string, rows [][]any) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	t.AppendHeader(headerRow)

	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, v := range r {
			row[i] = formatValue(v)
		}
		t.AppendRow(row)
	}
	t.Render()
}

// renderFrame prints a frame as a table, or as JSON objects keyed by column.
func renderFrame(w io.Writer, f *core.Frame, format string) error {
	if format == formatJSON {
		records := make([]map[string]any, len(f.Rows))
		for i, row := range f.Rows {
			rec := make(map[string]any, len(f.Columns))
			for j, c := range f.Columns {
				rec[c] = row[j]
			}
			records[i] = rec
		}
		return renderJSON(w, records)
	}

	if f.Len() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	renderTable(w, f.Columns, f.Rows)
	_, _ = fmt.Fprintf(w, "(%d rows)\n", f.Len())
	return nil
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return x.Format(time.RFC3339)
	case time.Duration:
		return x.Round(time.Millisecond).String()
	default:
		return fmt.Sprintf("%v", x)
	}
}

func validateFormat(format string) error {
	switch format {
	case formatTable, formatJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (use table or json)", format)
	}
}
