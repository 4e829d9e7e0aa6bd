package core

import (
	"strings"
)

// =============================================================================
// Aggregation
// =============================================================================

// Aggregation is a window operation applied to a metric column.
type Aggregation int

// Supported aggregations.
const (
	AggregationMean Aggregation = iota
	AggregationSum
	AggregationMin
	AggregationMax
	AggregationMode
	AggregationLag

	numAggregations
)

// NumAggregations is the number of defined aggregations.
const NumAggregations = int(numAggregations)

// AllAggregations returns every defined aggregation in declaration order.
func AllAggregations() []Aggregation {
	out := make([]Aggregation, 0, NumAggregations)
	for a := Aggregation(0); a < numAggregations; a++ {
		out = append(out, a)
	}
	return out
}

// String returns the configuration name of the aggregation.
func (a Aggregation) String() string {
	switch a {
	case AggregationMean:
		return "mean"
	case AggregationSum:
		return "sum"
	case AggregationMin:
		return "min"
	case AggregationMax:
		return "max"
	case AggregationMode:
		return "mode"
	case AggregationLag:
		return "lag"
	default:
		return "unknown"
	}
}

// Valid reports whether a is one of the defined aggregations.
func (a Aggregation) Valid() bool {
	return a >= 0 && a < numAggregations
}

// ParseAggregation converts a configuration name to an Aggregation.
// "avg" is accepted as an alias of "mean".
func ParseAggregation(s string) (Aggregation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mean", "avg":
		return AggregationMean, nil
	case "sum":
		return AggregationSum, nil
	case "min":
		return AggregationMin, nil
	case "max":
		return AggregationMax, nil
	case "mode":
		return AggregationMode, nil
	case "lag":
		return AggregationLag, nil
	default:
		return 0, &ConfigurationError{
			Field:  "aggregation",
			Value:  s,
			Reason: "unknown aggregation",
			Hint:   "use one of mean, sum, min, max, mode, lag",
		}
	}
}

// =============================================================================
// Range
// =============================================================================

// Range is a lookback window expressed as a number of preceding rows.
// Windows count rows in partition order, not calendar days.
type Range int

// Supported ranges.
const (
	RangeBefore28Days Range = iota
	RangeBefore56Days
	RangeBeforeCurrentRow

	numRanges
)

// NumRanges is the number of defined ranges.
const NumRanges = int(numRanges)

// AllRanges returns every defined range in declaration order.
func AllRanges() []Range {
	out := make([]Range, 0, NumRanges)
	for r := Range(0); r < numRanges; r++ {
		out = append(out, r)
	}
	return out
}

// String returns the configuration name of the range.
func (r Range) String() string {
	switch r {
	case RangeBefore28Days:
		return "before_28_days"
	case RangeBefore56Days:
		return "before_56_days"
	case RangeBeforeCurrentRow:
		return "before_current_row"
	default:
		return "unknown"
	}
}

// Valid reports whether r is one of the defined ranges.
func (r Range) Valid() bool {
	return r >= 0 && r < numRanges
}

// ParseRange converts a configuration name to a Range.
func ParseRange(s string) (Range, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "before_28_days":
		return RangeBefore28Days, nil
	case "before_56_days":
		return RangeBefore56Days, nil
	case "before_current_row":
		return RangeBeforeCurrentRow, nil
	default:
		return 0, &ConfigurationError{
			Field:  "range",
			Value:  s,
			Reason: "unknown range",
			Hint:   "use one of before_28_days, before_56_days, before_current_row",
		}
	}
}
