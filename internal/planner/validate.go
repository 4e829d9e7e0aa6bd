package planner

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/leapstack-labs/leapfeat/internal/query"
	"github.com/leapstack-labs/leapfeat/pkg/core"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks the whole configuration and returns every problem found,
// joined. All problems are *core.ConfigurationError values.
func Validate(cfg *core.AggregationsConfig) error {
	if cfg.Len() == 0 {
		return &core.ConfigurationError{Field: "aggregations", Reason: "no aggregation requests configured"}
	}

	var errs []error
	partitions := make(map[string]core.PartitionKeys)
	tables := make(map[string]string)
	outputs := make(map[string]map[string]string) // short name -> column -> request key

	for i, req := range cfg.Requests() {
		where := fmt.Sprintf("aggregations[%d]", i)
		reqErrs := validateRequest(where, req)
		errs = append(errs, reqErrs...)
		if len(reqErrs) > 0 {
			continue
		}

		short := req.Partitions.ShortName
		if first, ok := partitions[short]; ok && !first.SameColumns(req.Partitions) {
			errs = append(errs, &core.ConfigurationError{
				Field:  where + ".partition",
				Value:  short,
				Reason: fmt.Sprintf("columns %v conflict with earlier definition %v", req.Partitions.Columns, first.Columns),
				Hint:   "partitions sharing a short name must group by the same columns",
			})
			continue
		} else if !ok {
			partitions[short] = req.Partitions
		}

		q, err := query.Compile(req, req.Source.Name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
			continue
		}

		table := q.Table
		if prev, ok := tables[table]; ok {
			errs = append(errs, &core.ConfigurationError{
				Field:  where,
				Value:  req.Key(),
				Reason: fmt.Sprintf("materializes the same table %s as %s", table, prev),
				Hint:   "combine the metrics into a single request",
			})
			continue
		}
		tables[table] = req.Key()

		if outputs[short] == nil {
			outputs[short] = make(map[string]string)
		}
		for _, col := range q.AggregateColumns {
			if prev, ok := outputs[short][col]; ok {
				errs = append(errs, &core.ConfigurationError{
					Field:  where,
					Value:  col,
					Reason: fmt.Sprintf("feature column is also produced by %s for partition %s", prev, short),
				})
				continue
			}
			outputs[short][col] = req.Key()
		}
	}

	return errors.Join(errs...)
}

func validateRequest(where string, req core.AggregateConfig) []error {
	var errs []error
	ident := func(field, value string) {
		if !identifierPattern.MatchString(value) {
			errs = append(errs, &core.ConfigurationError{
				Field:  where + "." + field,
				Value:  value,
				Reason: "not a valid SQL identifier",
				Hint:   "use letters, digits and underscores, starting with a letter or underscore",
			})
		}
	}

	ident("source", req.Source.Name)
	ident("partition.short_name", req.Partitions.ShortName)
	if len(req.Partitions.Columns) == 0 {
		errs = append(errs, &core.ConfigurationError{
			Field:  where + ".partition",
			Value:  req.Partitions.ShortName,
			Reason: "partition has no columns",
		})
	}
	for _, col := range req.Partitions.Columns {
		ident("partition.columns", col)
	}
	ident("date_column", req.DateColumn.Column)

	if len(req.MetricsAggregations) == 0 {
		errs = append(errs, &core.ConfigurationError{Field: where + ".metrics", Reason: "no metrics configured"})
	}

	needsRange := false
	for j, ma := range req.MetricsAggregations {
		mwhere := fmt.Sprintf("metrics[%d]", j)
		if ma.Metric == nil {
			errs = append(errs, &core.ConfigurationError{Field: where + "." + mwhere, Reason: "metric is not set"})
			continue
		}
		ident(mwhere+".name", ma.Metric.MetricName())
		for _, col := range ma.Metric.Columns() {
			ident(mwhere+".column", col)
		}
		if len(ma.Aggregations) == 0 {
			errs = append(errs, &core.ConfigurationError{
				Field:  where + "." + mwhere,
				Value:  ma.Metric.MetricName(),
				Reason: "no aggregations requested",
			})
		}
		for _, agg := range ma.Aggregations {
			if !agg.Valid() {
				errs = append(errs, &core.ConfigurationError{
					Field:  where + "." + mwhere + ".aggregations",
					Value:  fmt.Sprint(int(agg)),
					Reason: "unmapped aggregation",
				})
			}
			if agg != core.AggregationLag {
				needsRange = true
			}
		}
	}

	for _, r := range req.Ranges {
		if !r.Valid() {
			errs = append(errs, &core.ConfigurationError{
				Field:  where + ".ranges",
				Value:  fmt.Sprint(int(r)),
				Reason: "unmapped range",
			})
		}
	}
	if needsRange && len(req.Ranges) == 0 {
		errs = append(errs, &core.ConfigurationError{
			Field:  where + ".ranges",
			Reason: "rolling aggregations require at least one range",
		})
	}

	return errs
}
