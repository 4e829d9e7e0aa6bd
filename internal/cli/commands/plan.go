package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/leapstack-labs/leapfeat/internal/pipeline"
	"github.com/leapstack-labs/leapfeat/internal/planner"
	"github.com/leapstack-labs/leapfeat/pkg/core"
	"github.com/spf13/cobra"
)

// PlanOptions holds options for the plan command.
type PlanOptions struct {
	Partitions []string
	Output     string
}

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	opts := &PlanOptions{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the stage graph for the aggregations file",
		Long: `Validate the aggregations file and print the read, aggregate, merge and
write stages it produces, grouped into execution levels, followed by the
columns each feature view must provide.`,
		Example: `  # Show the full plan
  leapfeat plan

  # Show only the stages needed for one partition
  leapfeat plan --partition zone

  # Machine readable output
  leapfeat plan -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Partitions, "partition", "p", nil, "Only plan the given partition short names")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", formatTable, "Output format (table|json)")

	return cmd
}

type planStage struct {
	Level  int      `json:"level"`
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Inputs []string `json:"inputs"`
	Output string   `json:"output"`
}

type planView struct {
	View    string   `json:"view"`
	Columns []string `json:"columns"`
}

type planDoc struct {
	Stages []planStage `json:"stages"`
	Views  []planView  `json:"views"`
}

func runPlan(cmd *cobra.Command, opts *PlanOptions) error {
	if err := validateFormat(opts.Output); err != nil {
		return err
	}
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	aggs, err := cc.LoadAggregations()
	if err != nil {
		return err
	}

	doc, err := buildPlan(aggs, opts.Partitions)
	if err != nil {
		return err
	}

	if opts.Output == formatJSON {
		return renderJSON(cc.Out, doc)
	}
	writePlan(cc.Out, doc)
	return nil
}

func buildPlan(aggs *core.AggregationsConfig, partitions []string) (*planDoc, error) {
	p, err := pipeline.Build(aggs, pipeline.Deps{})
	if err != nil {
		return nil, err
	}
	if len(partitions) > 0 {
		if p, err = p.Select(partitions...); err != nil {
			return nil, err
		}
	}
	levels, err := p.Levels()
	if err != nil {
		return nil, err
	}

	doc := &planDoc{}
	views := make(map[string]bool)
	for i, level := range levels {
		for _, s := range level {
			doc.Stages = append(doc.Stages, planStage{
				Level:  i,
				Name:   s.Name,
				Kind:   string(s.Kind),
				Inputs: s.Inputs,
				Output: s.Output,
			})
			if s.Kind == pipeline.KindRead {
				views[s.View] = true
			}
		}
	}
	for _, view := range planner.GroupByFeatureView(aggs).Order {
		if views[view] {
			doc.Views = append(doc.Views, planView{View: view, Columns: planner.RequiredColumns(aggs, view)})
		}
	}
	return doc, nil
}

func writePlan(w io.Writer, doc *planDoc) {
	rows := make([][]any, len(doc.Stages))
	for i, s := range doc.Stages {
		rows[i] = []any{s.Level, s.Name, s.Kind, strings.Join(s.Inputs, ", "), s.Output}
	}
	renderTable(w, []string{"Level", "Stage", "Kind", "Inputs", "Output"}, rows)
	_, _ = fmt.Fprintf(w, "(%d stages)\n\n", len(doc.Stages))

	viewRows := make([][]any, len(doc.Views))
	for i, v := range doc.Views {
		viewRows[i] = []any{v.View, strings.Join(v.Columns, ", ")}
	}
	renderTable(w, []string{"Feature view", "Required columns"}, viewRows)
}
