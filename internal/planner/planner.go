// Package planner derives execution facts from an aggregation configuration:
// the columns each feature view must supply, the distinct partition
// granularities, and the requests grouped by source feature view.
package planner

import (
	"sort"

	"github.com/leapstack-labs/leapfeat/pkg/core"
)

// RequiredColumns returns the union of partition, date and metric columns across
// every request that reads featureView. Ratio metrics contribute both columns.
// The result is sorted.
func RequiredColumns(cfg *core.AggregationsConfig, featureView string) []string {
	set := make(map[string]bool)
	for _, req := range cfg.Requests() {
		if req.Source.Name != featureView {
			continue
		}
		for _, col := range req.Columns() {
			set[col] = true
		}
	}

	cols := make([]string, 0, len(set))
	for col := range set {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// UniquePartitions returns one PartitionKeys per short name, keeping the first
// definition seen. Conflicting definitions are reported by Validate.
func UniquePartitions(cfg *core.AggregationsConfig) []core.PartitionKeys {
	seen := make(map[string]bool)
	var result []core.PartitionKeys
	for _, req := range cfg.Requests() {
		key := req.Partitions.ShortName
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, req.Partitions)
	}
	return result
}

// FeatureViewGroups maps feature view names to the requests that read them.
type FeatureViewGroups struct {
	// Order lists view names in first-appearance order.
	Order []string
	// Requests maps a view name to its requests in declaration order.
	Requests map[string][]core.AggregateConfig
}

// GroupByFeatureView groups requests by source feature view.
func GroupByFeatureView(cfg *core.AggregationsConfig) FeatureViewGroups {
	groups := FeatureViewGroups{Requests: make(map[string][]core.AggregateConfig)}
	for _, req := range cfg.Requests() {
		name := req.Source.Name
		if _, ok := groups.Requests[name]; !ok {
			groups.Order = append(groups.Order, name)
		}
		groups.Requests[name] = append(groups.Requests[name], req)
	}
	return groups
}

// RequestsForPartition returns every request whose partition short name matches.
func RequestsForPartition(cfg *core.AggregationsConfig, shortName string) []core.AggregateConfig {
	var out []core.AggregateConfig
	for _, req := range cfg.Requests() {
		if req.Partitions.ShortName == shortName {
			out = append(out, req)
		}
	}
	return out
}
