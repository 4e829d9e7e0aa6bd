package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapfeat/pkg/adapter"
	"github.com/leapstack-labs/leapfeat/pkg/core"
)

// TableKind distinguishes catalogue entries.
type TableKind string

// Catalogue entry kinds.
const (
	TableKindAggregate TableKind = "aggregate"
	TableKindMerged    TableKind = "merged"
)

// TableInfo describes a table materialized in the run schema.
type TableInfo struct {
	// Name is the unqualified table name.
	Name string
	// Kind is aggregate or merged.
	Kind TableKind
	// Source is the feature view an aggregate table was computed from.
	Source string
	// Request is the request key that produced an aggregate table.
	Request string
	// Partition is the partition the table is keyed by.
	Partition core.PartitionKeys
	// KeyColumns are the partition columns followed by the date key.
	KeyColumns []string
	// AggregateColumns are the feature columns.
	AggregateColumns []string
	// Rows is the row count after materialization.
	Rows int64
}

// Columns returns key columns followed by aggregate columns.
func (t TableInfo) Columns() []string {
	cols := make([]string, 0, len(t.KeyColumns)+len(t.AggregateColumns))
	cols = append(cols, t.KeyColumns...)
	return append(cols, t.AggregateColumns...)
}

func (e *Engine) record(info *TableInfo) {
	if _, exists := e.tables[info.Name]; !exists {
		e.order = append(e.order, info.Name)
	}
	e.tables[info.Name] = info
}

// Tables returns a snapshot of the catalogue in materialization order.
func (e *Engine) Tables() []TableInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]TableInfo, 0, len(e.order))
	for _, name := range e.order {
		out = append(out, *e.tables[name])
	}
	return out
}

// Table returns the catalogue entry for name.
func (e *Engine) Table(name string) (TableInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	info, ok := e.tables[name]
	if !ok {
		return TableInfo{}, false
	}
	return *info, true
}

// Frame reads a materialized table back, ordered by its key columns.
func (e *Engine) Frame(ctx context.Context, table string) (*core.Frame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	info, ok := e.tables[table]
	if !ok {
		return nil, &core.SequencingError{
			Stage:   "read " + table,
			Missing: []string{table},
			Reason:  "table is not in the run catalogue",
		}
	}
	return e.readTable(ctx, info)
}

func (e *Engine) readTable(ctx context.Context, info *TableInfo) (*core.Frame, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(info.Columns(), ", "), e.qualify(info.Name), strings.Join(info.KeyColumns, ", "))
	frame, err := adapter.QueryFrame(ctx, e.db, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", info.Name, err)
	}
	return frame, nil
}
