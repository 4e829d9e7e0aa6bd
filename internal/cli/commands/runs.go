package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapfeat/internal/config"
	"github.com/leapstack-labs/leapfeat/pkg/core"
	"github.com/spf13/cobra"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var (
		limit  int
		output string
	)

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show recorded runs from the run ledger",
		Long: `List recent runs recorded in the run ledger, newest first. With a run ID,
show the stages of that run. Requires state_path to be configured.`,
		Example: `  # Last 10 runs
  leapfeat runs --limit 10

  # Stages of one run
  leapfeat runs 4f1c2d9e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(output); err != nil {
				return err
			}
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			ledger, err := cc.OpenRunStore()
			if err != nil {
				return err
			}
			if ledger == nil {
				return fmt.Errorf("run ledger disabled: set state_path in %s or pass --state", config.ConfigFileName)
			}
			defer func() { _ = ledger.Close() }()

			if len(args) == 1 {
				stages, err := ledger.GetStageRunsForRun(args[0])
				if err != nil {
					return err
				}
				return renderFrame(cc.Out, stageRunsFrame(stages), output)
			}

			runs, err := ledger.ListRuns(limit)
			if err != nil {
				return err
			}
			return renderFrame(cc.Out, runsFrame(runs), output)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "Output format (table|json)")

	return cmd
}

func runsFrame(runs []*core.Run) *core.Frame {
	f := core.NewFrame("id", "status", "config", "started_at", "completed_at", "error")
	for _, r := range runs {
		var completed any
		if r.CompletedAt != nil {
			completed = *r.CompletedAt
		}
		_ = f.Append(r.ID, string(r.Status), r.Config, r.StartedAt, completed, r.Error)
	}
	return f
}

func stageRunsFrame(stages []*core.StageRun) *core.Frame {
	f := core.NewFrame("stage", "kind", "status", "rows", "execution_ms", "error")
	for _, s := range stages {
		_ = f.Append(s.Stage, s.Kind, string(s.Status), s.Rows, s.ExecutionMS, s.Error)
	}
	return f
}
