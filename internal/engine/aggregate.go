package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapfeat/internal/query"
	"github.com/leapstack-labs/leapfeat/pkg/adapter"
	"github.com/leapstack-labs/leapfeat/pkg/core"
)

// Declared types for source columns that carry no value to infer from.
const (
	keyColumnType    = "VARCHAR"
	dateColumnType   = "TIMESTAMP"
	metricColumnType = "DOUBLE PRECISION"
)

// SourceTableName returns the table a feature view's rows are loaded into.
func SourceTableName(view string) string {
	return "src_" + view
}

// Aggregate materializes the aggregate table for req from rows and records it
// in the catalogue. It returns the table name. Calling it again for the same
// request replaces the table.
//
// rows is loaded once per feature view and reused while the same frame is
// passed again, so it must not be modified after the first call.
func (e *Engine) Aggregate(ctx context.Context, rows *core.Frame, req core.AggregateConfig) (string, error) {
	view := req.Source.Name
	required := req.Columns()

	if rows == nil {
		return "", &core.SchemaError{FeatureView: view, Missing: required}
	}
	if missing := rows.Missing(required); len(missing) > 0 {
		return "", &core.SchemaError{FeatureView: view, Missing: missing, Available: rows.Columns}
	}

	source := SourceTableName(view)
	q, err := query.Compile(req, e.qualify(source))
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkOpen(); err != nil {
		return "", err
	}

	if err := e.loadSource(ctx, req, rows); err != nil {
		return "", err
	}

	count, err := e.replaceTable(ctx, q.Table, q.SQL)
	if err != nil {
		return "", fmt.Errorf("aggregating %s: %w", req.Key(), err)
	}

	e.record(&TableInfo{
		Name:             q.Table,
		Kind:             TableKindAggregate,
		Source:           view,
		Request:          req.Key(),
		Partition:        req.Partitions,
		KeyColumns:       q.KeyColumns,
		AggregateColumns: q.AggregateColumns,
		Rows:             count,
	})

	e.logger.Info("aggregate table materialized",
		slog.String("table", q.Table),
		slog.String("partition", req.Partitions.ShortName),
		slog.Int("features", len(q.AggregateColumns)),
		slog.Int64("rows", count))
	return q.Table, nil
}

// loadSource loads rows as src_<view> unless the same frame is already
// loaded. The caller holds e.mu.
func (e *Engine) loadSource(ctx context.Context, req core.AggregateConfig, rows *core.Frame) error {
	view := req.Source.Name
	if e.sources[view] == rows {
		return nil
	}

	load := sourceFrame(rows, req)
	table := e.qualify(SourceTableName(view))
	if err := adapter.Load(ctx, e.db, table, load, e.placeholder); err != nil {
		return fmt.Errorf("failed to load feature view %s: %w", view, err)
	}
	e.sources[view] = rows

	e.logger.Debug("feature view loaded", slog.String("view", view), slog.Int("rows", rows.Len()))
	return nil
}

// sourceFrame declares column types for columns without any value, so
// window functions over empty or all-null inputs still type check.
func sourceFrame(rows *core.Frame, req core.AggregateConfig) *core.Frame {
	keys := make(map[string]bool, len(req.Partitions.Columns))
	for _, c := range req.Partitions.Columns {
		keys[c] = true
	}

	types := make(map[string]string, len(rows.Types))
	for col, t := range rows.Types {
		types[col] = t
	}
	for i, col := range rows.Columns {
		if _, ok := types[col]; ok || hasValue(rows, i) {
			continue
		}
		switch {
		case col == req.DateColumn.Column:
			types[col] = dateColumnType
		case keys[col]:
			types[col] = keyColumnType
		default:
			types[col] = metricColumnType
		}
	}
	return &core.Frame{Columns: rows.Columns, Rows: rows.Rows, Types: types}
}

func hasValue(f *core.Frame, col int) bool {
	for _, row := range f.Rows {
		if row[col] != nil {
			return true
		}
	}
	return false
}
