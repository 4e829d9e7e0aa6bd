// Package query compiles aggregation requests into window-function SQL and
// builds the union/join queries that merge per-request tables.
package query

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapfeat/pkg/core"
)

// TargetDateColumn is the name every aggregate table uses for its date key,
// so tables built from different date columns join on one column.
const TargetDateColumn = "event_timestamp"

// Expression is one aliased select-list item.
type Expression struct {
	SQL   string
	Alias string
}

// String renders the expression with its alias.
func (e Expression) String() string {
	return fmt.Sprintf("%s AS %s", e.SQL, e.Alias)
}

// Query is a compiled aggregate-table query.
type Query struct {
	// Table is the deterministic name of the table the query materializes.
	Table string
	// Source is the relation the query reads from.
	Source string
	// SQL is the SELECT statement.
	SQL string
	// KeyColumns are the partition columns followed by TargetDateColumn.
	KeyColumns []string
	// AggregateColumns are the aggregate aliases in select-list order.
	AggregateColumns []string
}

// Columns returns key columns followed by aggregate columns.
func (q *Query) Columns() []string {
	cols := make([]string, 0, len(q.KeyColumns)+len(q.AggregateColumns))
	cols = append(cols, q.KeyColumns...)
	return append(cols, q.AggregateColumns...)
}

// PartitionClause joins the partition columns for use in PARTITION BY.
func PartitionClause(p core.PartitionKeys) string {
	return strings.Join(p.Columns, ", ")
}

// KeyColumns returns the partition columns followed by TargetDateColumn.
func KeyColumns(p core.PartitionKeys) []string {
	keys := make([]string, 0, len(p.Columns)+1)
	keys = append(keys, p.Columns...)
	return append(keys, TargetDateColumn)
}

// TableName returns the deterministic aggregate table name for a request:
// agg_<view>_<partition columns>_<date column>.
func TableName(req core.AggregateConfig) string {
	return fmt.Sprintf("agg_%s_%s_%s",
		req.Source.Name, strings.Join(req.Partitions.Columns, "_"), req.DateColumn.Column)
}

// RollingWindow builds a framed window aggregate over column.
func RollingWindow(column string, agg core.Aggregation, r core.Range, partitionClause, dateColumn string) (Expression, error) {
	if agg == core.AggregationLag {
		return Expression{}, &core.ConfigurationError{
			Field:  "aggregation",
			Value:  agg.String(),
			Reason: "lag is not a framed aggregate",
		}
	}
	fn, err := FunctionName(agg)
	if err != nil {
		return Expression{}, err
	}
	suffix, err := AliasSuffix(agg)
	if err != nil {
		return Expression{}, err
	}
	frame, err := WindowFrame(r)
	if err != nil {
		return Expression{}, err
	}

	return Expression{
		SQL:   fmt.Sprintf("%s(%s) OVER (PARTITION BY %s ORDER BY %s %s)", fn, column, partitionClause, dateColumn, frame),
		Alias: fmt.Sprintf("%s_%s_%s", column, suffix, strings.ToLower(r.String())),
	}, nil
}

// Lag builds the previous-row value of column within its partition.
func Lag(column, partitionClause, dateColumn string) Expression {
	return Expression{
		SQL:   fmt.Sprintf("LAG(%s) OVER (PARTITION BY %s ORDER BY %s)", column, partitionClause, dateColumn),
		Alias: column + "_lag",
	}
}

// MetricExpressions compiles every aggregation of one metric across ranges.
// Lag ignores ranges and yields a single expression.
func MetricExpressions(ma core.MetricAggregationConfig, ranges []core.Range, partitionClause, dateColumn string) ([]Expression, error) {
	var column string
	switch m := ma.Metric.(type) {
	case core.SimpleMetric:
		column = m.Column
	case core.RatioMetric:
		return nil, &core.ConfigurationError{
			Field:  "metric",
			Value:  m.Name,
			Reason: "ratio metrics cannot be compiled to window aggregates",
			Hint:   "declare the nominator and denominator as simple metrics",
		}
	case nil:
		return nil, &core.ConfigurationError{Field: "metric", Reason: "metric is not set"}
	default:
		return nil, &core.ConfigurationError{
			Field:  "metric",
			Value:  fmt.Sprintf("%T", m),
			Reason: "unsupported metric kind",
		}
	}

	var exprs []Expression
	for _, agg := range ma.Aggregations {
		if agg == core.AggregationLag {
			exprs = append(exprs, Lag(column, partitionClause, dateColumn))
			continue
		}
		for _, r := range ranges {
			expr, err := RollingWindow(column, agg, r, partitionClause, dateColumn)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, expr)
		}
	}
	return exprs, nil
}

// Compile builds the aggregate-table query for one request reading from source.
func Compile(req core.AggregateConfig, source string) (*Query, error) {
	partitionClause := PartitionClause(req.Partitions)
	dateColumn := req.DateColumn.Column

	items := make([]string, 0, len(req.Partitions.Columns)+1)
	items = append(items, req.Partitions.Columns...)
	items = append(items, fmt.Sprintf("%s AS %s", dateColumn, TargetDateColumn))

	var aliases []string
	for _, ma := range req.MetricsAggregations {
		exprs, err := MetricExpressions(ma, req.Ranges, partitionClause, dateColumn)
		if err != nil {
			return nil, fmt.Errorf("compiling %s: %w", req.Key(), err)
		}
		for _, e := range exprs {
			items = append(items, e.String())
			aliases = append(aliases, e.Alias)
		}
	}

	var b strings.Builder
	b.WriteString("SELECT\n")
	for i, item := range items {
		b.WriteString("  ")
		b.WriteString(item)
		if i < len(items)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "FROM %s", source)

	return &Query{
		Table:            TableName(req),
		Source:           source,
		SQL:              b.String(),
		KeyColumns:       KeyColumns(req.Partitions),
		AggregateColumns: aliases,
	}, nil
}
