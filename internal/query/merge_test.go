package query

import (
	"testing"

	"github.com/leapstack-labs/leapfeat/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestSpineSQL(t *testing.T) {
	got := SpineSQL(zone, []string{"agg_a", "agg_b"})
	assert.Equal(t,
		"SELECT DISTINCT zone_key, event_timestamp FROM agg_a\nUNION\nSELECT DISTINCT zone_key, event_timestamp FROM agg_b",
		got)
}

func TestMergeSQL(t *testing.T) {
	p := core.PartitionKeys{ShortName: "cj", Columns: []string{"customer_key", "job_duty"}}
	got := MergeSQL(p, "spine_cj", []TableRef{
		{Name: "agg_a", Columns: []string{"a"}},
		{Name: "agg_b", Columns: []string{"b", "c"}},
	})

	assert.Equal(t, "SELECT s.customer_key, s.job_duty, s.event_timestamp, t0.a, t1.b, t1.c\n"+
		"FROM spine_cj AS s\n"+
		"LEFT JOIN agg_a AS t0 ON s.customer_key = t0.customer_key AND s.job_duty = t0.job_duty AND s.event_timestamp = t0.event_timestamp\n"+
		"LEFT JOIN agg_b AS t1 ON s.customer_key = t1.customer_key AND s.job_duty = t1.job_duty AND s.event_timestamp = t1.event_timestamp\n"+
		"ORDER BY s.customer_key, s.job_duty, s.event_timestamp", got)
}
