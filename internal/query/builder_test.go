package query

import (
	"errors"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapfeat/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var zone = core.PartitionKeys{ShortName: "zone", Columns: []string{"zone_key"}}

func request(aggs []core.Aggregation, ranges ...core.Range) core.AggregateConfig {
	return core.AggregateConfig{
		Source:     core.FeatureView{Name: "orders"},
		Partitions: zone,
		DateColumn: core.DateKey{Column: "created_date"},
		MetricsAggregations: []core.MetricAggregationConfig{
			{Metric: core.SimpleMetric{Name: "x", Column: "x"}, Aggregations: aggs},
		},
		Ranges: ranges,
	}
}

func TestValidateMappings(t *testing.T) {
	assert.NoError(t, ValidateMappings())
}

func TestWindowFrame(t *testing.T) {
	tests := []struct {
		r    core.Range
		want string
	}{
		{core.RangeBefore28Days, "ROWS BETWEEN 28 PRECEDING AND CURRENT ROW"},
		{core.RangeBefore56Days, "ROWS BETWEEN 56 PRECEDING AND CURRENT ROW"},
		{core.RangeBeforeCurrentRow, "ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW"},
	}
	for _, tt := range tests {
		t.Run(tt.r.String(), func(t *testing.T) {
			got, err := WindowFrame(tt.r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := WindowFrame(core.Range(core.NumRanges))
	var cfgErr *core.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestFunctionName_Unmapped(t *testing.T) {
	_, err := FunctionName(core.Aggregation(-1))
	var cfgErr *core.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestCompile_MeanMinMax28Days(t *testing.T) {
	q, err := Compile(request(
		[]core.Aggregation{core.AggregationMean, core.AggregationMin, core.AggregationMax},
		core.RangeBefore28Days,
	), "src_orders")
	require.NoError(t, err)

	assert.Equal(t, []string{"x_avg_before_28_days", "x_min_before_28_days", "x_max_before_28_days"}, q.AggregateColumns)
	assert.Equal(t, []string{"zone_key", TargetDateColumn}, q.KeyColumns)
	assert.Equal(t, "agg_orders_zone_key_created_date", q.Table)
	assert.Equal(t, 3, strings.Count(q.SQL, "ROWS BETWEEN 28 PRECEDING AND CURRENT ROW"))
	assert.Contains(t, q.SQL, "AVG(x) OVER (PARTITION BY zone_key ORDER BY created_date ROWS BETWEEN 28 PRECEDING AND CURRENT ROW) AS x_avg_before_28_days")
	assert.Contains(t, q.SQL, "MIN(x) OVER (PARTITION BY zone_key ORDER BY created_date ROWS BETWEEN 28 PRECEDING AND CURRENT ROW) AS x_min_before_28_days")
	assert.Contains(t, q.SQL, "MAX(x) OVER (PARTITION BY zone_key ORDER BY created_date ROWS BETWEEN 28 PRECEDING AND CURRENT ROW) AS x_max_before_28_days")
	assert.Contains(t, q.SQL, "created_date AS event_timestamp")
	assert.True(t, strings.HasSuffix(q.SQL, "FROM src_orders"))
}

func TestCompile_LagIgnoresRanges(t *testing.T) {
	q, err := Compile(request(
		[]core.Aggregation{core.AggregationLag},
		core.RangeBefore28Days, core.RangeBefore56Days,
	), "src_orders")
	require.NoError(t, err)

	assert.Equal(t, []string{"x_lag"}, q.AggregateColumns)
	assert.Equal(t, 1, strings.Count(q.SQL, "LAG("))
	assert.Contains(t, q.SQL, "LAG(x) OVER (PARTITION BY zone_key ORDER BY created_date) AS x_lag")
	assert.NotContains(t, q.SQL, "ROWS BETWEEN")
}

func TestCompile_CrossProduct(t *testing.T) {
	q, err := Compile(request(
		[]core.Aggregation{core.AggregationSum, core.AggregationMode, core.AggregationLag},
		core.RangeBefore56Days, core.RangeBeforeCurrentRow,
	), "src")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"x_sum_before_56_days",
		"x_sum_before_current_row",
		"x_mode_before_56_days",
		"x_mode_before_current_row",
		"x_lag",
	}, q.AggregateColumns)
	assert.Equal(t, append([]string{"zone_key", TargetDateColumn}, q.AggregateColumns...), q.Columns())
}

func TestCompile_MultiColumnPartition(t *testing.T) {
	req := request([]core.Aggregation{core.AggregationMean}, core.RangeBeforeCurrentRow)
	req.Partitions = core.PartitionKeys{ShortName: "customer_jobduty", Columns: []string{"customer_key", "job_duty"}}

	q, err := Compile(req, "src")
	require.NoError(t, err)
	assert.Contains(t, q.SQL, "PARTITION BY customer_key, job_duty ORDER BY created_date")
	assert.Equal(t, "agg_orders_customer_key_job_duty_created_date", q.Table)
	assert.True(t, strings.HasPrefix(q.SQL, "SELECT\n  customer_key,\n  job_duty,\n  created_date AS event_timestamp,\n"))
}

func TestCompile_RejectsRatioMetric(t *testing.T) {
	req := request(nil, core.RangeBefore28Days)
	req.MetricsAggregations = []core.MetricAggregationConfig{{
		Metric:       core.RatioMetric{Name: "margin", NominatorColumn: "pay", DenominatorColumn: "bill"},
		Aggregations: []core.Aggregation{core.AggregationMean},
	}}

	_, err := Compile(req, "src")
	var cfgErr *core.ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)
	assert.Equal(t, "margin", cfgErr.Value)
}

func TestRollingWindow_RejectsLag(t *testing.T) {
	_, err := RollingWindow("x", core.AggregationLag, core.RangeBefore28Days, "zone_key", "created_date")
	assert.Error(t, err)
}
