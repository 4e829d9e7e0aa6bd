package pipeline

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapfeat/internal/dag"
	"github.com/leapstack-labs/leapfeat/pkg/core"
)

// Verify checks the static shape of the pipeline: unique stage and dataset
// names, exactly one producer per input, no cycles, and merge stages fed only
// by aggregate stages of their own partition. Problems are returned joined as
// *core.SequencingError values.
func (p *Pipeline) Verify() error {
	var errs []error

	names := make(map[string]bool, len(p.stages))
	outputs := make(map[string]string, len(p.stages))
	for _, s := range p.stages {
		if names[s.Name] {
			errs = append(errs, &core.SequencingError{Stage: s.Name, Reason: "duplicate stage name"})
		}
		names[s.Name] = true

		if s.Output == "" {
			errs = append(errs, &core.SequencingError{Stage: s.Name, Reason: "stage has no output dataset"})
			continue
		}
		if prev, ok := outputs[s.Output]; ok {
			errs = append(errs, &core.SequencingError{
				Stage:  s.Name,
				Reason: fmt.Sprintf("dataset %s is also produced by %s", s.Output, prev),
			})
			continue
		}
		outputs[s.Output] = s.Name
	}

	graph := dag.NewGraph[*Stage]()
	for _, s := range p.stages {
		graph.AddNode(s.Name, s)
	}

	for _, s := range p.stages {
		var missing []string
		for _, in := range s.Inputs {
			producer, ok := outputs[in]
			if !ok {
				missing = append(missing, in)
				continue
			}
			if err := graph.AddEdge(producer, s.Name); err != nil {
				errs = append(errs, &core.SequencingError{Stage: s.Name, Reason: err.Error()})
			}
		}
		if len(missing) > 0 {
			errs = append(errs, &core.SequencingError{Stage: s.Name, Missing: missing, Reason: "inputs have no producer"})
		}
		if s.Kind == KindMerge {
			errs = append(errs, p.verifyMerge(s)...)
		}
	}

	if hasCycle, path := graph.HasCycle(); hasCycle {
		errs = append(errs, &core.SequencingError{Reason: (&dag.CycleError{Path: path}).Error()})
	}

	return errors.Join(errs...)
}

func (p *Pipeline) verifyMerge(s *Stage) []error {
	if len(s.Inputs) == 0 {
		return []error{&core.SequencingError{Stage: s.Name, Reason: "merge stage has no aggregate dependencies"}}
	}

	var errs []error
	for _, in := range s.Inputs {
		producer, ok := p.producers[in]
		if !ok {
			continue // reported as a missing producer
		}
		if producer.Kind != KindAggregate {
			errs = append(errs, &core.SequencingError{
				Stage:  s.Name,
				Reason: fmt.Sprintf("input %s is produced by %s stage %s, not an aggregate stage", in, producer.Kind, producer.Name),
			})
			continue
		}
		if producer.Partition != s.Partition {
			errs = append(errs, &core.SequencingError{
				Stage:  s.Name,
				Reason: fmt.Sprintf("input %s belongs to partition %s, not %s", in, producer.Partition, s.Partition),
			})
		}
	}
	return errs
}
