package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/leapstack-labs/leapfeat/pkg/core"
)

// insertBatchSize bounds the rows bound into one INSERT statement.
const insertBatchSize = 256

// ColumnType returns the SQL column type used to materialize a Go value.
// Unrecognized values are stored as VARCHAR.
func ColumnType(v any) string {
	switch v.(type) {
	case float32, float64:
		return "DOUBLE PRECISION"
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return "BIGINT"
	case bool:
		return "BOOLEAN"
	case time.Time:
		return "TIMESTAMP"
	default:
		return "VARCHAR"
	}
}

// InferColumnTypes returns one SQL type per frame column: the declared type
// from f.Types when present, otherwise the type shared by every non-nil
// value, otherwise VARCHAR. A column mixing integers and floats is widened to
// DOUBLE PRECISION; any other mix is an error.
func InferColumnTypes(f *core.Frame) ([]string, error) {
	types := make([]string, len(f.Columns))
	for i, col := range f.Columns {
		if declared, ok := f.Types[col]; ok {
			types[i] = declared
			continue
		}
		inferred := ""
		for r, row := range f.Rows {
			if row[i] == nil {
				continue
			}
			t := ColumnType(row[i])
			switch {
			case inferred == "" || inferred == t:
				inferred = t
			case isNumeric(inferred) && isNumeric(t):
				inferred = "DOUBLE PRECISION"
			default:
				return nil, fmt.Errorf("column %s mixes %s and %s values (row %d holds %T)", col, inferred, t, r, row[i])
			}
		}
		if inferred == "" {
			inferred = "VARCHAR"
		}
		types[i] = inferred
	}
	return types, nil
}

func isNumeric(sqlType string) bool {
	return sqlType == "BIGINT" || sqlType == "DOUBLE PRECISION"
}

// CreateTableSQL renders a CREATE TABLE statement for the frame's columns.
func CreateTableSQL(table string, f *core.Frame) (string, error) {
	types, err := InferColumnTypes(f)
	if err != nil {
		return "", fmt.Errorf("typing %s: %w", table, err)
	}
	defs := make([]string, len(f.Columns))
	for i, col := range f.Columns {
		defs[i] = fmt.Sprintf("%s %s", col, types[i])
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", ")), nil
}

// FrameLoader is implemented by adapters with a bulk load path faster than
// parameterized INSERTs.
type FrameLoader interface {
	LoadFrame(ctx context.Context, table string, f *core.Frame) error
}

// Load replaces table with the rows of f, using the adapter's FrameLoader
// when it has one and batched INSERTs with ph placeholders otherwise.
func Load(ctx context.Context, a core.Adapter, table string, f *core.Frame, ph Placeholder) error {
	if fl, ok := a.(FrameLoader); ok {
		return fl.LoadFrame(ctx, table, f)
	}
	return LoadFrame(ctx, a, table, f, ph)
}

// LoadFrame replaces table with the contents of f.
// Rows are inserted in batches of parameterized INSERT statements.
func LoadFrame(ctx context.Context, a core.Adapter, table string, f *core.Frame, ph Placeholder) error {
	if err := a.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
		return fmt.Errorf("dropping %s: %w", table, err)
	}
	create, err := CreateTableSQL(table, f)
	if err != nil {
		return err
	}
	if err := a.Exec(ctx, create); err != nil {
		return fmt.Errorf("creating %s: %w", table, err)
	}
	return InsertFrame(ctx, a, table, f, ph)
}

// InsertFrame appends the rows of f to an existing table.
func InsertFrame(ctx context.Context, a core.Adapter, table string, f *core.Frame, ph Placeholder) error {
	width := len(f.Columns)
	if width == 0 {
		return nil
	}
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", table, strings.Join(f.Columns, ", "))

	for start := 0; start < len(f.Rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(f.Rows))
		batch := f.Rows[start:end]

		var b strings.Builder
		b.WriteString(prefix)
		args := make([]any, 0, len(batch)*width)
		for r, row := range batch {
			if r > 0 {
				b.WriteString(", ")
			}
			b.WriteString("(")
			for c := range width {
				if c > 0 {
					b.WriteString(", ")
				}
				b.WriteString(ph(len(args) + 1))
				args = append(args, row[c])
			}
			b.WriteString(")")
		}

		if err := a.Exec(ctx, b.String(), args...); err != nil {
			return fmt.Errorf("inserting rows %d-%d into %s: %w", start, end-1, table, err)
		}
	}
	return nil
}

// ScanFrame reads every remaining row into a Frame and closes rows.
// []byte values are returned as strings and *big.Int values as int64, or
// float64 when they overflow.
func ScanFrame(rows *sql.Rows) (*core.Frame, error) {
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading result columns: %w", err)
	}

	frame := core.NewFrame(cols...)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		frame.Rows = append(frame.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return frame, nil
}

// normalizeValue maps driver values onto the types ColumnType knows, so a
// scanned frame can be loaded into any adapter. DuckDB returns HUGEINT (e.g.
// SUM over BIGINT) as *big.Int.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case *big.Int:
		if x.IsInt64() {
			return x.Int64()
		}
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	default:
		return v
	}
}

// QueryFrame runs a query through the adapter and scans the result.
func QueryFrame(ctx context.Context, a core.Adapter, sqlStr string, args ...any) (*core.Frame, error) {
	rows, err := a.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	return ScanFrame(rows.Rows)
}
