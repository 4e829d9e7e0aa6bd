package pipeline

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapfeat/internal/planner"
	"github.com/leapstack-labs/leapfeat/pkg/core"
)

// Engine materializes aggregate tables and merges them per partition.
// *engine.Engine implements it.
type Engine interface {
	Aggregate(ctx context.Context, rows *core.Frame, req core.AggregateConfig) (string, error)
	Merge(ctx context.Context, p core.PartitionKeys, tables []string) (*core.Frame, error)
}

// Deps are the collaborators stage functions call.
// Either may be nil when the pipeline is only planned.
type Deps struct {
	Store  core.FeatureStore
	Engine Engine
}

// Stage and dataset names.

// ReadStageName returns the read stage name for a feature view.
func ReadStageName(view string) string { return "read_" + view }

// ViewDataset returns the dataset holding a feature view's raw rows.
func ViewDataset(view string) string { return "temp_" + view }

// AggregateStageName returns the aggregate stage name for a request.
func AggregateStageName(req core.AggregateConfig) string { return "aggregate_" + req.Key() }

// AggregateDataset returns the dataset an aggregate stage produces.
func AggregateDataset(req core.AggregateConfig) string { return "agg_" + req.Key() }

// MergeStageName returns the merge stage name for a partition.
func MergeStageName(short string) string { return "merge_" + short }

// MergedDataset returns the dataset a merge stage produces.
func MergedDataset(short string) string { return "merged_table_" + short }

// WriteStageName returns the write stage name for a partition.
func WriteStageName(short string) string { return "write_" + short }

// FeatureViewName returns the offline store view a partition is written to.
func FeatureViewName(short string) string { return "features_" + short }

// Build validates cfg and assembles its stages: one read per feature view, one
// aggregate per request, and one merge and one write per partition.
func Build(cfg *core.AggregationsConfig, deps Deps) (*Pipeline, error) {
	if err := planner.Validate(cfg); err != nil {
		return nil, err
	}

	groups := planner.GroupByFeatureView(cfg)
	partitions := planner.UniquePartitions(cfg)

	var stages []*Stage
	for _, view := range groups.Order {
		stages = append(stages, readStage(cfg, view, deps))
	}

	aggByPartition := make(map[string][]string)
	for _, view := range groups.Order {
		for _, req := range groups.Requests[view] {
			stages = append(stages, aggregateStage(req, deps))
			short := req.Partitions.ShortName
			aggByPartition[short] = append(aggByPartition[short], AggregateDataset(req))
		}
	}

	for _, p := range partitions {
		stages = append(stages, mergeStage(p, aggByPartition[p.ShortName], deps))
	}
	for _, p := range partitions {
		stages = append(stages, writeStage(p, deps))
	}

	return Assemble(stages)
}

func readStage(cfg *core.AggregationsConfig, view string, deps Deps) *Stage {
	columns := planner.RequiredColumns(cfg, view)
	return &Stage{
		Name:   ReadStageName(view),
		Kind:   KindRead,
		Output: ViewDataset(view),
		View:   view,
		Func: func(ctx context.Context, _ map[string]any) (any, error) {
			if deps.Store == nil {
				return nil, fmt.Errorf("no feature store configured")
			}
			return deps.Store.ReadFeatureView(ctx, core.FeatureView{Name: view}, columns)
		},
	}
}

func aggregateStage(req core.AggregateConfig, deps Deps) *Stage {
	input := ViewDataset(req.Source.Name)
	name := AggregateStageName(req)
	return &Stage{
		Name:      name,
		Kind:      KindAggregate,
		Inputs:    []string{input},
		Output:    AggregateDataset(req),
		View:      req.Source.Name,
		Partition: req.Partitions.ShortName,
		Func: func(ctx context.Context, inputs map[string]any) (any, error) {
			if deps.Engine == nil {
				return nil, fmt.Errorf("no engine configured")
			}
			rows, err := inputAs[*core.Frame](name, inputs, input)
			if err != nil {
				return nil, err
			}
			return deps.Engine.Aggregate(ctx, rows, req)
		},
	}
}

func mergeStage(p core.PartitionKeys, datasets []string, deps Deps) *Stage {
	name := MergeStageName(p.ShortName)
	return &Stage{
		Name:      name,
		Kind:      KindMerge,
		Inputs:    datasets,
		Output:    MergedDataset(p.ShortName),
		Partition: p.ShortName,
		Func: func(ctx context.Context, inputs map[string]any) (any, error) {
			if deps.Engine == nil {
				return nil, fmt.Errorf("no engine configured")
			}
			tables := make([]string, 0, len(datasets))
			for _, ds := range datasets {
				table, err := inputAs[string](name, inputs, ds)
				if err != nil {
					return nil, err
				}
				tables = append(tables, table)
			}
			return deps.Engine.Merge(ctx, p, tables)
		},
	}
}

func writeStage(p core.PartitionKeys, deps Deps) *Stage {
	input := MergedDataset(p.ShortName)
	view := core.FeatureView{Name: FeatureViewName(p.ShortName)}
	name := WriteStageName(p.ShortName)
	return &Stage{
		Name:      name,
		Kind:      KindWrite,
		Inputs:    []string{input},
		Output:    view.Name,
		Partition: p.ShortName,
		Func: func(ctx context.Context, inputs map[string]any) (any, error) {
			if deps.Store == nil {
				return nil, fmt.Errorf("no feature store configured")
			}
			rows, err := inputAs[*core.Frame](name, inputs, input)
			if err != nil {
				return nil, err
			}
			if err := deps.Store.WriteToOfflineStore(ctx, rows, view); err != nil {
				return nil, err
			}
			return rows, nil
		},
	}
}

// inputAs fetches a typed input value. A missing input means the stage ran
// before its producer.
func inputAs[T any](stage string, inputs map[string]any, dataset string) (T, error) {
	var zero T
	v, ok := inputs[dataset]
	if !ok {
		return zero, &core.SequencingError{Stage: stage, Missing: []string{dataset}, Reason: "input dataset not produced"}
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("stage %s: input %s has type %T, want %T", stage, dataset, v, zero)
	}
	return typed, nil
}
