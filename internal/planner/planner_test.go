package planner

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/leapfeat/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	orders   = core.FeatureView{Name: "orders"}
	dispatch = core.FeatureView{Name: "dispatch"}

	zone    = core.PartitionKeys{ShortName: "zone", Columns: []string{"zone_key"}}
	jobDuty = core.PartitionKeys{ShortName: "jobduty", Columns: []string{"job_duty"}}

	createdDate = core.DateKey{Column: "created_date"}
	shiftDate   = core.DateKey{Column: "shift_date"}

	meanMinMax = []core.Aggregation{core.AggregationMean, core.AggregationMin, core.AggregationMax}
)

func simple(column string, aggs ...core.Aggregation) core.MetricAggregationConfig {
	return core.MetricAggregationConfig{Metric: core.SimpleMetric{Name: column, Column: column}, Aggregations: aggs}
}

func req(fv core.FeatureView, p core.PartitionKeys, d core.DateKey, metrics ...core.MetricAggregationConfig) core.AggregateConfig {
	return core.AggregateConfig{
		Source:              fv,
		Partitions:          p,
		DateColumn:          d,
		MetricsAggregations: metrics,
		Ranges:              []core.Range{core.RangeBefore28Days, core.RangeBefore56Days},
	}
}

// referenceConfig mirrors the production aggregation set: orders and dispatch
// aggregated at zone and job duty granularity.
func referenceConfig() *core.AggregationsConfig {
	return core.NewAggregationsConfig(
		req(orders, zone, createdDate, simple("order_pay_rate", meanMinMax...), simple("order_bill_rate", meanMinMax...)),
		req(orders, jobDuty, createdDate, simple("order_pay_rate", meanMinMax...), simple("order_bill_rate", meanMinMax...)),
		req(dispatch, zone, shiftDate,
			simple("dispatch_pay_rate", meanMinMax...),
			simple("dispatch_bill_rate", meanMinMax...),
			simple("rating", meanMinMax...),
			simple("total_worked_hours", core.AggregationMean, core.AggregationSum)),
		req(dispatch, jobDuty, shiftDate,
			simple("dispatch_pay_rate", meanMinMax...),
			simple("dispatch_bill_rate", meanMinMax...),
			simple("rating", meanMinMax...),
			simple("total_worked_hours", core.AggregationMean, core.AggregationSum)),
	)
}

func TestRequiredColumns(t *testing.T) {
	cfg := referenceConfig()

	assert.Equal(t,
		[]string{"created_date", "job_duty", "order_bill_rate", "order_pay_rate", "zone_key"},
		RequiredColumns(cfg, "orders"))
	assert.Equal(t,
		[]string{"dispatch_bill_rate", "dispatch_pay_rate", "job_duty", "rating", "shift_date", "total_worked_hours", "zone_key"},
		RequiredColumns(cfg, "dispatch"))
	assert.Empty(t, RequiredColumns(cfg, "unknown"))
}

func TestRequiredColumns_RatioMetricContributesBothSides(t *testing.T) {
	ratio := core.MetricAggregationConfig{
		Metric:       core.RatioMetric{Name: "margin", NominatorColumn: "order_pay_rate", DenominatorColumn: "order_bill_rate"},
		Aggregations: []core.Aggregation{core.AggregationMean},
	}
	cfg := core.NewAggregationsConfig(req(orders, zone, createdDate, ratio))

	assert.Equal(t,
		[]string{"created_date", "order_bill_rate", "order_pay_rate", "zone_key"},
		RequiredColumns(cfg, "orders"))
}

func TestUniquePartitions(t *testing.T) {
	cfg := referenceConfig()
	got := UniquePartitions(cfg)

	require.Len(t, got, 2)
	assert.Equal(t, "zone", got[0].ShortName)
	assert.Equal(t, "jobduty", got[1].ShortName)
}

func TestUniquePartitions_FirstSeenWins(t *testing.T) {
	alias := core.PartitionKeys{ShortName: "zone", Columns: []string{"zone_id"}}

	a := core.NewAggregationsConfig(
		req(orders, zone, createdDate, simple("x", core.AggregationMean)),
		req(dispatch, alias, shiftDate, simple("y", core.AggregationMean)),
		req(dispatch, jobDuty, shiftDate, simple("y", core.AggregationMean)),
	)
	b := core.NewAggregationsConfig(
		req(dispatch, alias, shiftDate, simple("y", core.AggregationMean)),
		req(orders, zone, createdDate, simple("x", core.AggregationMean)),
	)

	gotA := UniquePartitions(a)
	require.Len(t, gotA, 2)
	assert.Equal(t, []string{"zone_key"}, gotA[0].Columns)

	gotB := UniquePartitions(b)
	require.Len(t, gotB, 1)
	assert.Equal(t, []string{"zone_id"}, gotB[0].Columns)

	// Idempotent on its own output.
	again := make([]core.AggregateConfig, 0, len(gotA))
	for _, p := range gotA {
		again = append(again, req(orders, p, createdDate, simple("x", core.AggregationMean)))
	}
	assert.Equal(t, gotA, UniquePartitions(core.NewAggregationsConfig(again...)))
}

func TestGroupByFeatureView(t *testing.T) {
	groups := GroupByFeatureView(referenceConfig())

	assert.Equal(t, []string{"orders", "dispatch"}, groups.Order)
	require.Len(t, groups.Requests["orders"], 2)
	require.Len(t, groups.Requests["dispatch"], 2)
	assert.Equal(t, "zone", groups.Requests["orders"][0].Partitions.ShortName)
	assert.Equal(t, "jobduty", groups.Requests["orders"][1].Partitions.ShortName)
}

func TestRequestsForPartition(t *testing.T) {
	got := RequestsForPartition(referenceConfig(), "zone")
	require.Len(t, got, 2)
	assert.Equal(t, "orders", got[0].Source.Name)
	assert.Equal(t, "dispatch", got[1].Source.Name)
}

func TestValidate(t *testing.T) {
	ratio := core.MetricAggregationConfig{
		Metric:       core.RatioMetric{Name: "margin", NominatorColumn: "order_pay_rate", DenominatorColumn: "order_bill_rate"},
		Aggregations: []core.Aggregation{core.AggregationMean},
	}
	noRanges := req(orders, zone, createdDate, simple("x", core.AggregationMean))
	noRanges.Ranges = nil
	lagOnly := req(orders, zone, createdDate, simple("x", core.AggregationLag))
	lagOnly.Ranges = nil

	tests := []struct {
		name    string
		cfg     *core.AggregationsConfig
		wantErr string
	}{
		{name: "reference config", cfg: referenceConfig()},
		{name: "lag without ranges", cfg: core.NewAggregationsConfig(lagOnly)},
		{name: "empty", cfg: core.NewAggregationsConfig(), wantErr: "no aggregation requests"},
		{
			name: "conflicting partition columns",
			cfg: core.NewAggregationsConfig(
				req(orders, zone, createdDate, simple("x", core.AggregationMean)),
				req(dispatch, core.PartitionKeys{ShortName: "zone", Columns: []string{"zone_id"}}, shiftDate, simple("y", core.AggregationMean)),
			),
			wantErr: "conflict with earlier definition",
		},
		{
			name: "duplicate table",
			cfg: core.NewAggregationsConfig(
				req(orders, zone, createdDate, simple("x", core.AggregationMean)),
				req(orders, zone, createdDate, simple("y", core.AggregationMean)),
			),
			wantErr: "materializes the same table",
		},
		{
			name: "duplicate feature column in partition",
			cfg: core.NewAggregationsConfig(
				req(orders, zone, createdDate, simple("x", core.AggregationMean)),
				req(dispatch, zone, shiftDate, simple("x", core.AggregationMean)),
			),
			wantErr: "feature column is also produced",
		},
		{
			name:    "invalid identifier",
			cfg:     core.NewAggregationsConfig(req(orders, zone, core.DateKey{Column: "created date"}, simple("x", core.AggregationMean))),
			wantErr: "not a valid SQL identifier",
		},
		{
			name:    "empty partition columns",
			cfg:     core.NewAggregationsConfig(req(orders, core.PartitionKeys{ShortName: "none"}, createdDate, simple("x", core.AggregationMean))),
			wantErr: "partition has no columns",
		},
		{
			name:    "no metrics",
			cfg:     core.NewAggregationsConfig(req(orders, zone, createdDate)),
			wantErr: "no metrics configured",
		},
		{
			name:    "no aggregations",
			cfg:     core.NewAggregationsConfig(req(orders, zone, createdDate, simple("x"))),
			wantErr: "no aggregations requested",
		},
		{name: "rolling without ranges", cfg: core.NewAggregationsConfig(noRanges), wantErr: "require at least one range"},
		{name: "ratio metric", cfg: core.NewAggregationsConfig(req(orders, zone, createdDate, ratio)), wantErr: "ratio metrics cannot be compiled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			var cfgErr *core.ConfigurationError
			assert.True(t, errors.As(err, &cfgErr), "expected a ConfigurationError in %v", err)
		})
	}
}
