package commands

import (
	"fmt"
	"io"

	"github.com/leapstack-labs/leapfeat/internal/engine"
	"github.com/leapstack-labs/leapfeat/internal/pipeline"
	"github.com/leapstack-labs/leapfeat/internal/runner"
	"github.com/leapstack-labs/leapfeat/pkg/core"
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Partitions []string
	Output     string
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute and write feature tables",
		Long: `Read every feature view, compute the windowed aggregations on the target
database, merge them per partition and write one feature table per partition
to the feature store.

Stages in the same level run concurrently, bounded by --parallelism. When
state_path is set the run and its stages are recorded in the run ledger.`,
		Example: `  # Run every partition
  leapfeat run

  # Run only the zone partition with more concurrency
  leapfeat run --partition zone --parallelism 8

  # JSON output for CI/CD integration
  leapfeat run -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Partitions, "partition", "p", nil, "Only run the given partition short names")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", formatTable, "Output format (table|json)")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	if err := validateFormat(opts.Output); err != nil {
		return err
	}
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	aggs, err := cc.LoadAggregations()
	if err != nil {
		return err
	}

	store, closeStore, err := cc.OpenFeatureStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	eng, err := engine.New(ctx, engine.Config{AdapterConfig: cc.Cfg.AdapterConfig(), Logger: cc.Logger})
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	p, err := pipeline.Build(aggs, pipeline.Deps{Store: store, Engine: eng})
	if err != nil {
		return err
	}
	if len(opts.Partitions) > 0 {
		if p, err = p.Select(opts.Partitions...); err != nil {
			return err
		}
	}

	runOpts := runner.Options{
		Parallelism: cc.Cfg.Parallelism,
		ConfigLabel: cc.Cfg.AggregationsFile,
		RowCount:    rowCounter(eng),
		Logger:      cc.Logger,
	}
	ledger, err := cc.OpenRunStore()
	if err != nil {
		return err
	}
	if ledger != nil {
		defer func() { _ = ledger.Close() }()
		runOpts.Store = ledger
	}

	result, runErr := runner.New(runOpts).Run(ctx, p)
	if result != nil {
		if err := writeRunResult(cc.Out, result, opts.Output); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	return nil
}

// rowCounter counts frames directly and aggregate tables through the
// engine catalogue.
func rowCounter(eng *engine.Engine) func(any) int64 {
	return func(v any) int64 {
		switch x := v.(type) {
		case *core.Frame:
			return int64(x.Len())
		case string:
			if info, ok := eng.Table(x); ok {
				return info.Rows
			}
		}
		return 0
	}
}

type runStageDoc struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Level      int    `json:"level"`
	Status     string `json:"status"`
	Rows       int64  `json:"rows"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

type runDoc struct {
	RunID  string        `json:"run_id"`
	Status string        `json:"status"`
	Stages []runStageDoc `json:"stages"`
}

func writeRunResult(w io.Writer, result *runner.Result, format string) error {
	doc := runDoc{RunID: result.RunID, Status: string(result.Status)}
	for _, s := range result.Stages {
		sd := runStageDoc{
			Name:       s.Name,
			Kind:       string(s.Kind),
			Level:      s.Level,
			Status:     string(s.Status),
			Rows:       s.Rows,
			DurationMS: s.Duration.Milliseconds(),
		}
		if s.Err != nil {
			sd.Error = s.Err.Error()
		}
		doc.Stages = append(doc.Stages, sd)
	}

	if format == formatJSON {
		return renderJSON(w, doc)
	}

	rows := make([][]any, len(result.Stages))
	for i, s := range result.Stages {
		rows[i] = []any{s.Level, s.Name, s.Kind, s.Status, s.Rows, s.Duration}
	}
	renderTable(w, []string{"Level", "Stage", "Kind", "Status", "Rows", "Duration"}, rows)
	_, _ = fmt.Fprintf(w, "Run %s: %s\n", result.RunID, result.Status)
	return nil
}
