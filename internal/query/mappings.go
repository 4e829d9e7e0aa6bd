package query

import (
	"fmt"

	"github.com/leapstack-labs/leapfeat/pkg/core"
)

// Lookup tables indexed by enum value. Array lengths are pinned to the enum
// sizes so adding an enum value without a mapping fails ValidateMappings.

var aggregateFunctions = [core.NumAggregations]string{
	core.AggregationMean: "AVG",
	core.AggregationSum:  "SUM",
	core.AggregationMin:  "MIN",
	core.AggregationMax:  "MAX",
	core.AggregationMode: "MODE",
	core.AggregationLag:  "LAG",
}

var aggregateSuffixes = [core.NumAggregations]string{
	core.AggregationMean: "avg",
	core.AggregationSum:  "sum",
	core.AggregationMin:  "min",
	core.AggregationMax:  "max",
	core.AggregationMode: "mode",
	core.AggregationLag:  "lag",
}

var windowFrames = [core.NumRanges]string{
	core.RangeBefore28Days:     "ROWS BETWEEN 28 PRECEDING AND CURRENT ROW",
	core.RangeBefore56Days:     "ROWS BETWEEN 56 PRECEDING AND CURRENT ROW",
	core.RangeBeforeCurrentRow: "ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW",
}

// ValidateMappings verifies every aggregation and range has a SQL mapping.
// Engines call it at construction so a gap fails before any query is built.
func ValidateMappings() error {
	for _, a := range core.AllAggregations() {
		if aggregateFunctions[a] == "" || aggregateSuffixes[a] == "" {
			return &core.ConfigurationError{Field: "aggregation", Value: a.String(), Reason: "no SQL mapping"}
		}
	}
	for _, r := range core.AllRanges() {
		if windowFrames[r] == "" {
			return &core.ConfigurationError{Field: "range", Value: r.String(), Reason: "no window frame mapping"}
		}
	}
	return nil
}

// FunctionName returns the SQL window function for an aggregation.
func FunctionName(a core.Aggregation) (string, error) {
	if !a.Valid() || aggregateFunctions[a] == "" {
		return "", unmappedAggregation(a)
	}
	return aggregateFunctions[a], nil
}

// AliasSuffix returns the column alias fragment for an aggregation.
func AliasSuffix(a core.Aggregation) (string, error) {
	if !a.Valid() || aggregateSuffixes[a] == "" {
		return "", unmappedAggregation(a)
	}
	return aggregateSuffixes[a], nil
}

// WindowFrame returns the ROWS frame clause for a range.
func WindowFrame(r core.Range) (string, error) {
	if !r.Valid() || windowFrames[r] == "" {
		return "", &core.ConfigurationError{Field: "range", Value: fmt.Sprint(int(r)), Reason: "no window frame mapping"}
	}
	return windowFrames[r], nil
}

func unmappedAggregation(a core.Aggregation) error {
	return &core.ConfigurationError{Field: "aggregation", Value: fmt.Sprint(int(a)), Reason: "no SQL mapping"}
}
