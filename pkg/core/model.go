package core

import (
	"fmt"
	"strings"
)

// FeatureView identifies a logical source of raw feature rows (e.g. orders, dispatch).
type FeatureView struct {
	Name string
}

// String returns the view name.
func (fv FeatureView) String() string {
	return fv.Name
}

// Metric is a named computable quantity.
// Implementations are SimpleMetric and RatioMetric; the set is closed.
type Metric interface {
	// MetricName returns the logical metric name.
	MetricName() string
	// Columns returns every source column the metric reads.
	Columns() []string

	metric()
}

// SimpleMetric reads a single column.
type SimpleMetric struct {
	Name   string
	Column string
}

// MetricName implements Metric.
func (m SimpleMetric) MetricName() string { return m.Name }

// Columns implements Metric.
func (m SimpleMetric) Columns() []string { return []string{m.Column} }

func (SimpleMetric) metric() {}

// RatioMetric divides a nominator column by a denominator column.
type RatioMetric struct {
	Name              string
	NominatorColumn   string
	DenominatorColumn string
}

// MetricName implements Metric.
func (m RatioMetric) MetricName() string { return m.Name }

// Columns implements Metric.
func (m RatioMetric) Columns() []string {
	return []string{m.NominatorColumn, m.DenominatorColumn}
}

func (RatioMetric) metric() {}

// Compile-time checks.
var (
	_ Metric = SimpleMetric{}
	_ Metric = RatioMetric{}
)

// PartitionKeys is a grouping granularity: a short name plus ordered grouping columns.
type PartitionKeys struct {
	ShortName string
	Columns   []string
}

// SameColumns reports whether p and other group by the same ordered columns.
func (p PartitionKeys) SameColumns(other PartitionKeys) bool {
	if len(p.Columns) != len(other.Columns) {
		return false
	}
	for i := range p.Columns {
		if p.Columns[i] != other.Columns[i] {
			return false
		}
	}
	return true
}

// String renders the partition as short_name[col1,col2].
func (p PartitionKeys) String() string {
	return fmt.Sprintf("%s[%s]", p.ShortName, strings.Join(p.Columns, ","))
}

// DateKey is the column used as the temporal ordering key.
type DateKey struct {
	Column string
}

// MetricAggregationConfig pairs a metric with the aggregations requested for it.
type MetricAggregationConfig struct {
	Metric       Metric
	Aggregations []Aggregation
}

// AggregateConfig is one aggregation request over a single feature view.
type AggregateConfig struct {
	Source              FeatureView
	Partitions          PartitionKeys
	DateColumn          DateKey
	MetricsAggregations []MetricAggregationConfig
	Ranges              []Range
}

// Columns returns the source columns this request reads, in first-reference order
// and without duplicates.
func (c AggregateConfig) Columns() []string {
	seen := make(map[string]bool)
	var cols []string
	add := func(col string) {
		if !seen[col] {
			seen[col] = true
			cols = append(cols, col)
		}
	}

	for _, col := range c.Partitions.Columns {
		add(col)
	}
	add(c.DateColumn.Column)
	for _, ma := range c.MetricsAggregations {
		if ma.Metric == nil {
			continue
		}
		for _, col := range ma.Metric.Columns() {
			add(col)
		}
	}
	return cols
}

// Key identifies the request by view, partition short name and date column.
func (c AggregateConfig) Key() string {
	return fmt.Sprintf("%s_%s_%s", c.Source.Name, c.Partitions.ShortName, c.DateColumn.Column)
}

// AggregationsConfig is the full ordered list of aggregation requests for a run.
// It is read-only after construction.
type AggregationsConfig struct {
	requests []AggregateConfig
}

// NewAggregationsConfig builds an AggregationsConfig from the given requests.
func NewAggregationsConfig(requests ...AggregateConfig) *AggregationsConfig {
	cp := make([]AggregateConfig, len(requests))
	copy(cp, requests)
	return &AggregationsConfig{requests: cp}
}

// Requests returns a copy of the request list in declaration order.
func (c *AggregationsConfig) Requests() []AggregateConfig {
	if c == nil {
		return nil
	}
	cp := make([]AggregateConfig, len(c.requests))
	copy(cp, c.requests)
	return cp
}

// Len returns the number of requests.
func (c *AggregationsConfig) Len() int {
	if c == nil {
		return 0
	}
	return len(c.requests)
}
