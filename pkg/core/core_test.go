package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAggregation(t *testing.T) {
	tests := []struct {
		in      string
		want    Aggregation
		wantErr bool
	}{
		{"mean", AggregationMean, false},
		{"AVG", AggregationMean, false},
		{" sum ", AggregationSum, false},
		{"min", AggregationMin, false},
		{"Max", AggregationMax, false},
		{"mode", AggregationMode, false},
		{"lag", AggregationLag, false},
		{"median", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAggregation(tt.in)
			if tt.wantErr {
				var cfgErr *ConfigurationError
				require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)
				assert.Equal(t, "aggregation", cfgErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRange_RoundTripsString(t *testing.T) {
	for _, r := range AllRanges() {
		got, err := ParseRange(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	_, err := ParseRange("before_7_days")
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestEnumValidity(t *testing.T) {
	assert.Len(t, AllAggregations(), NumAggregations)
	assert.Len(t, AllRanges(), NumRanges)
	assert.False(t, Aggregation(NumAggregations).Valid())
	assert.False(t, Range(-1).Valid())
	assert.Equal(t, "unknown", Range(NumRanges).String())
}

func TestAggregateConfig_Columns(t *testing.T) {
	cfg := AggregateConfig{
		Source:     FeatureView{Name: "orders"},
		Partitions: PartitionKeys{ShortName: "customer_jobduty", Columns: []string{"customer_key", "job_duty"}},
		DateColumn: DateKey{Column: "created_date"},
		MetricsAggregations: []MetricAggregationConfig{
			{Metric: SimpleMetric{Name: "payrate", Column: "order_pay_rate"}, Aggregations: []Aggregation{AggregationMean}},
			{Metric: RatioMetric{Name: "margin", NominatorColumn: "order_pay_rate", DenominatorColumn: "order_bill_rate"}, Aggregations: []Aggregation{AggregationMean}},
		},
	}

	assert.Equal(t,
		[]string{"customer_key", "job_duty", "created_date", "order_pay_rate", "order_bill_rate"},
		cfg.Columns())
	assert.Equal(t, "orders_customer_jobduty_created_date", cfg.Key())
}

func TestAggregationsConfig_IsReadOnly(t *testing.T) {
	reqs := []AggregateConfig{{Source: FeatureView{Name: "orders"}}}
	cfg := NewAggregationsConfig(reqs...)

	reqs[0].Source.Name = "mutated"
	got := cfg.Requests()
	got[0].Source.Name = "mutated again"

	assert.Equal(t, "orders", cfg.Requests()[0].Source.Name)
	assert.Equal(t, 1, cfg.Len())
}

func TestPartitionKeys_SameColumns(t *testing.T) {
	a := PartitionKeys{ShortName: "zone", Columns: []string{"zone_key"}}
	assert.True(t, a.SameColumns(PartitionKeys{ShortName: "other", Columns: []string{"zone_key"}}))
	assert.False(t, a.SameColumns(PartitionKeys{ShortName: "zone", Columns: []string{"zone_id"}}))
	assert.False(t, a.SameColumns(PartitionKeys{ShortName: "zone", Columns: []string{"zone_key", "day"}}))
	assert.Equal(t, "zone[zone_key]", a.String())
}

func TestFrame(t *testing.T) {
	f := NewFrame("zone_key", "created_date", "order_pay_rate")
	require.NoError(t, f.Append("z1", "2024-01-01", 10.0))
	require.NoError(t, f.Append("z2", "2024-01-02", 12.5))
	assert.Error(t, f.Append("z3"))

	assert.Equal(t, 2, f.Len())
	assert.Equal(t, 12.5, f.Value(1, "order_pay_rate"))
	assert.Nil(t, f.Value(1, "missing"))
	assert.Equal(t, []string{"rating"}, f.Missing([]string{"zone_key", "rating"}))

	sel, err := f.Select("orders", "order_pay_rate", "zone_key")
	require.NoError(t, err)
	assert.Equal(t, []string{"order_pay_rate", "zone_key"}, sel.Columns)
	assert.Equal(t, []any{10.0, "z1"}, sel.Rows[0])

	_, err = f.Select("orders", "rating")
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "orders", schemaErr.FeatureView)
	assert.Equal(t, []string{"rating"}, schemaErr.Missing)
}

func TestErrorMessages(t *testing.T) {
	cfgErr := &ConfigurationError{Field: "partition", Value: "zone", Reason: "columns differ", Hint: "rename one"}
	assert.Equal(t, "configuration error: partition \"zone\": columns differ\nHint: rename one", cfgErr.Error())

	seqErr := &SequencingError{Stage: "merge_zone", Reason: "aggregate tables not materialized", Missing: []string{"agg_a"}}
	assert.Contains(t, seqErr.Error(), "merge_zone")
	assert.Contains(t, seqErr.Error(), "agg_a")
}
