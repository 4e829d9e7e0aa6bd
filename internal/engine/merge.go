package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapfeat/internal/query"
	"github.com/leapstack-labs/leapfeat/pkg/core"
)

// SpineTableName returns the name of the distinct-key table for a partition.
func SpineTableName(shortName string) string {
	return "spine_" + shortName
}

// MergedTableName returns the name of the merged feature table for a partition.
func MergedTableName(shortName string) string {
	return "merged_" + shortName
}

// Merge joins the aggregate tables of one partition into a wide feature table
// and returns its rows ordered by the partition columns and date.
//
// tables are the aggregate tables the merge depends on. Each must already be
// materialized for this partition. When tables is empty, every aggregate
// table recorded for the partition's short name is merged.
func (e *Engine) Merge(ctx context.Context, p core.PartitionKeys, tables []string) (*core.Frame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	stage := "merge_" + p.ShortName
	inputs, err := e.resolveInputs(stage, p, tables)
	if err != nil {
		return nil, err
	}

	sources := make([]string, len(inputs))
	refs := make([]query.TableRef, len(inputs))
	var features []string
	for i, info := range inputs {
		sources[i] = e.qualify(info.Name)
		refs[i] = query.TableRef{Name: e.qualify(info.Name), Columns: info.AggregateColumns}
		features = append(features, info.AggregateColumns...)
	}

	spine := SpineTableName(p.ShortName)
	if _, err := e.replaceTable(ctx, spine, query.SpineSQL(p, sources)); err != nil {
		return nil, fmt.Errorf("merging %s: %w", p.ShortName, err)
	}

	merged := MergedTableName(p.ShortName)
	count, err := e.replaceTable(ctx, merged, query.MergeSQL(p, e.qualify(spine), refs))
	if err != nil {
		return nil, fmt.Errorf("merging %s: %w", p.ShortName, err)
	}

	info := &TableInfo{
		Name:             merged,
		Kind:             TableKindMerged,
		Partition:        p,
		KeyColumns:       query.KeyColumns(p),
		AggregateColumns: features,
		Rows:             count,
	}
	e.record(info)

	e.logger.Info("partition merged",
		slog.String("partition", p.ShortName),
		slog.Int("tables", len(inputs)),
		slog.Int("features", len(features)),
		slog.Int64("rows", count))

	return e.readTable(ctx, info)
}

// resolveInputs maps the requested table names to catalogue entries, or
// discovers them by short name. The caller holds e.mu.
func (e *Engine) resolveInputs(stage string, p core.PartitionKeys, tables []string) ([]*TableInfo, error) {
	if len(tables) == 0 {
		var found []*TableInfo
		for _, name := range e.order {
			info := e.tables[name]
			if info.Kind == TableKindAggregate && info.Partition.ShortName == p.ShortName {
				found = append(found, info)
			}
		}
		if len(found) == 0 {
			return nil, &core.SequencingError{
				Stage:  stage,
				Reason: fmt.Sprintf("no aggregate tables materialized for partition %s", p.ShortName),
			}
		}
		return e.checkPartition(stage, p, found)
	}

	var missing []string
	inputs := make([]*TableInfo, 0, len(tables))
	seen := make(map[string]bool, len(tables))
	for _, name := range tables {
		if seen[name] {
			continue
		}
		seen[name] = true

		info, ok := e.tables[name]
		if !ok || info.Kind != TableKindAggregate || info.Partition.ShortName != p.ShortName {
			missing = append(missing, name)
			continue
		}
		inputs = append(inputs, info)
	}
	if len(missing) > 0 {
		return nil, &core.SequencingError{
			Stage:   stage,
			Missing: missing,
			Reason:  fmt.Sprintf("aggregate tables are not materialized for partition %s", p.ShortName),
		}
	}
	return e.checkPartition(stage, p, inputs)
}

func (e *Engine) checkPartition(stage string, p core.PartitionKeys, inputs []*TableInfo) ([]*TableInfo, error) {
	for _, info := range inputs {
		if !info.Partition.SameColumns(p) {
			return nil, &core.ConfigurationError{
				Field:  stage,
				Value:  info.Name,
				Reason: fmt.Sprintf("table is keyed by %v, merge expects %v", info.Partition.Columns, p.Columns),
				Hint:   "partitions sharing a short name must group by the same columns",
			}
		}
	}
	return inputs, nil
}
