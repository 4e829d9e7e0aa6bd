// Package pipeline assembles aggregation requests into an explicit graph of
// read, aggregate, merge and write stages.
//
// Every stage names the datasets it consumes and the dataset it produces.
// Dependency edges are derived from those names alone, so the graph can be
// verified before anything runs.
package pipeline

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapfeat/internal/dag"
	"github.com/leapstack-labs/leapfeat/pkg/core"
)

// StageKind classifies a stage.
type StageKind string

// Stage kinds in execution order.
const (
	KindRead      StageKind = "read"
	KindAggregate StageKind = "aggregate"
	KindMerge     StageKind = "merge"
	KindWrite     StageKind = "write"
)

// Func executes a stage. inputs maps each input dataset name to the value its
// producer returned.
type Func func(ctx context.Context, inputs map[string]any) (any, error)

// Stage is one unit of work in the pipeline.
type Stage struct {
	Name   string
	Kind   StageKind
	Inputs []string
	Output string

	// View is the feature view read or aggregated, empty for merge and write.
	View string
	// Partition is the partition short name, empty for read stages.
	Partition string

	Func Func
}

// Pipeline is a verified set of stages with their dependency graph.
type Pipeline struct {
	stages    []*Stage
	byName    map[string]*Stage
	producers map[string]*Stage
	graph     *dag.Graph[*Stage]
}

// Assemble verifies stages and builds their dependency graph.
func Assemble(stages []*Stage) (*Pipeline, error) {
	p := &Pipeline{
		stages:    stages,
		byName:    make(map[string]*Stage, len(stages)),
		producers: make(map[string]*Stage, len(stages)),
		graph:     dag.NewGraph[*Stage](),
	}
	for _, s := range stages {
		if _, exists := p.byName[s.Name]; !exists {
			p.byName[s.Name] = s
			p.graph.AddNode(s.Name, s)
		}
		if _, exists := p.producers[s.Output]; !exists && s.Output != "" {
			p.producers[s.Output] = s
		}
	}

	if err := p.Verify(); err != nil {
		return nil, err
	}

	for _, s := range stages {
		for _, in := range s.Inputs {
			if err := p.graph.AddEdge(p.producers[in].Name, s.Name); err != nil {
				return nil, &core.SequencingError{Stage: s.Name, Reason: err.Error()}
			}
		}
	}
	return p, nil
}

// Stages returns the stages in assembly order.
func (p *Pipeline) Stages() []*Stage {
	out := make([]*Stage, len(p.stages))
	copy(out, p.stages)
	return out
}

// Stage returns a stage by name.
func (p *Pipeline) Stage(name string) (*Stage, bool) {
	s, ok := p.byName[name]
	return s, ok
}

// Producer returns the stage producing dataset.
func (p *Pipeline) Producer(dataset string) (*Stage, bool) {
	s, ok := p.producers[dataset]
	return s, ok
}

// Dependencies returns the names of the stages s depends on.
func (p *Pipeline) Dependencies(name string) []string {
	return p.graph.GetParents(name)
}

// Levels groups stages into execution levels. Every stage in a level depends
// only on stages of earlier levels.
func (p *Pipeline) Levels() ([][]*Stage, error) {
	ids, err := p.graph.GetExecutionLevels()
	if err != nil {
		return nil, err
	}
	levels := make([][]*Stage, len(ids))
	for i, level := range ids {
		levels[i] = make([]*Stage, len(level))
		for j, id := range level {
			levels[i][j] = p.byName[id]
		}
	}
	return levels, nil
}

// Select returns the sub-pipeline that writes the given partitions, with
// every stage they transitively depend on.
func (p *Pipeline) Select(partitions ...string) (*Pipeline, error) {
	keep := make(map[string]bool)
	for _, short := range partitions {
		found := false
		for _, s := range p.stages {
			if s.Kind == KindWrite && s.Partition == short {
				found = true
				keep[s.Name] = true
				for _, up := range p.graph.GetUpstreamNodes(s.Name) {
					keep[up] = true
				}
			}
		}
		if !found {
			return nil, fmt.Errorf("no write stage for partition %q", short)
		}
	}

	var stages []*Stage
	for _, s := range p.stages {
		if keep[s.Name] {
			stages = append(stages, s)
		}
	}
	return Assemble(stages)
}
