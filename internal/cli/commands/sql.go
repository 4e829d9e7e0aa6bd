package commands

import (
	"fmt"
	"io"
	"slices"

	"github.com/leapstack-labs/leapfeat/internal/engine"
	"github.com/leapstack-labs/leapfeat/internal/planner"
	"github.com/leapstack-labs/leapfeat/internal/query"
	"github.com/leapstack-labs/leapfeat/pkg/core"
	"github.com/spf13/cobra"
)

// SQLOptions holds options for the sql command.
type SQLOptions struct {
	Partitions []string
}

// NewSQLCommand creates the sql command.
func NewSQLCommand() *cobra.Command {
	opts := &SQLOptions{}

	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Print the SQL generated for the aggregations file",
		Long: `Compile every aggregation request into its window-function query,
followed by the spine and merge queries of each partition. Table names are
unqualified; at run time they live in the run schema.`,
		Example: `  # Print all generated SQL
  leapfeat sql

  # Only the SQL for one partition
  leapfeat sql --partition zone`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSQL(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Partitions, "partition", "p", nil, "Only print SQL for the given partition short names")

	return cmd
}

func runSQL(cmd *cobra.Command, opts *SQLOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	aggs, err := cc.LoadAggregations()
	if err != nil {
		return err
	}
	return writeSQL(cc.Out, aggs, opts.Partitions)
}

func writeSQL(w io.Writer, aggs *core.AggregationsConfig, partitions []string) error {
	unique := planner.UniquePartitions(aggs)
	for _, short := range partitions {
		if !slices.ContainsFunc(unique, func(p core.PartitionKeys) bool { return p.ShortName == short }) {
			return fmt.Errorf("no aggregation requests for partition %q", short)
		}
	}

	for _, p := range unique {
		if len(partitions) > 0 && !slices.Contains(partitions, p.ShortName) {
			continue
		}

		var (
			names []string
			refs  []query.TableRef
		)
		for _, req := range planner.RequestsForPartition(aggs, p.ShortName) {
			q, err := query.Compile(req, engine.SourceTableName(req.Source.Name))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(w, "-- %s\n%s;\n\n", q.Table, q.SQL)
			names = append(names, q.Table)
			refs = append(refs, query.TableRef{Name: q.Table, Columns: q.AggregateColumns})
		}

		spine := engine.SpineTableName(p.ShortName)
		_, _ = fmt.Fprintf(w, "-- %s\n%s;\n\n", spine, query.SpineSQL(p, names))
		_, _ = fmt.Fprintf(w, "-- %s\n%s;\n\n", engine.MergedTableName(p.ShortName), query.MergeSQL(p, spine, refs))
	}
	return nil
}
