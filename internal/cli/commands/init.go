package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapfeat/internal/config"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new leapfeat project",
		Long: `Initialize a new leapfeat project with a working example.

This creates:
  - leapfeat.yaml project configuration
  - aggregations.yaml with example requests over two feature views
  - data/ with orders.csv and dispatch.csv sample feature views`,
		Example: `  # Initialize in current directory
  leapfeat init

  # Initialize in a new directory
  leapfeat init my-features

  # Force overwrite existing files
  leapfeat init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileName)
	}

	files, err := writeProject(dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	w := cmd.OutOrStdout()
	for _, f := range files {
		_, _ = fmt.Fprintf(w, "  created %s\n", f)
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "leapfeat project initialized!")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Next steps:")
	_, _ = fmt.Fprintln(w, "  leapfeat plan    Show the stage graph")
	_, _ = fmt.Fprintln(w, "  leapfeat sql     Print the generated SQL")
	_, _ = fmt.Fprintln(w, "  leapfeat run     Compute and write feature tables")
	return nil
}
