package cli

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile = ""
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err != nil {
		t.Logf("stderr: %s", errOut.String())
	}
	return out.String(), err
}

// initProject scaffolds the example project in a temp dir and changes into it.
func initProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	_, err := execute(t, "init")
	require.NoError(t, err)
	return dir
}

func TestInit(t *testing.T) {
	dir := initProject(t)

	for _, f := range []string{"leapfeat.yaml", "aggregations.yaml", "data/orders.csv", "data/dispatch.csv", ".gitignore"} {
		assert.FileExists(t, filepath.Join(dir, f))
	}

	_, err := execute(t, "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "init", "--force")
	assert.NoError(t, err)
}

func TestPlan(t *testing.T) {
	initProject(t)

	out, err := execute(t, "plan", "-o", "json")
	require.NoError(t, err)

	var doc struct {
		Stages []struct {
			Level int    `json:"level"`
			Name  string `json:"name"`
			Kind  string `json:"kind"`
		} `json:"stages"`
		Views []struct {
			View    string   `json:"view"`
			Columns []string `json:"columns"`
		} `json:"views"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))

	levels := make(map[string]int)
	for _, s := range doc.Stages {
		levels[s.Name] = s.Level
	}
	assert.Equal(t, 0, levels["read_orders"])
	assert.Equal(t, 0, levels["read_dispatch"])
	assert.Equal(t, 1, levels["aggregate_orders_zone_created_date"])
	assert.Equal(t, 2, levels["merge_zone"])
	assert.Equal(t, 3, levels["write_zone"])
	assert.Equal(t, 3, levels["write_jobduty"])
	assert.Len(t, doc.Stages, 9)

	require.Len(t, doc.Views, 2)
	assert.Equal(t, "orders", doc.Views[0].View)
	assert.ElementsMatch(t, []string{"zone_key", "job_duty", "created_date", "pay_rate"}, doc.Views[0].Columns)

	table, err := execute(t, "plan", "--partition", "jobduty")
	require.NoError(t, err)
	assert.Contains(t, table, "write_jobduty")
	assert.NotContains(t, table, "read_dispatch")
}

func TestSQL(t *testing.T) {
	initProject(t)

	out, err := execute(t, "sql", "--partition", "zone")
	require.NoError(t, err)
	assert.Contains(t, out, "-- agg_orders_zone_key_created_date")
	assert.Contains(t, out, "OVER (PARTITION BY zone_key ORDER BY created_date")
	assert.Contains(t, out, "-- spine_zone")
	assert.Contains(t, out, "-- merged_zone")
	assert.NotContains(t, out, "job_duty")

	_, err = execute(t, "sql", "--partition", "nope")
	assert.ErrorContains(t, err, "no aggregation requests for partition")
}

func TestRun(t *testing.T) {
	dir := initProject(t)

	out, err := execute(t, "run", "--state", ".leapfeat/state.db", "-o", "json")
	require.NoError(t, err)

	var doc struct {
		RunID  string `json:"run_id"`
		Status string `json:"status"`
		Stages []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
			Rows   int64  `json:"rows"`
		} `json:"stages"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "completed", doc.Status)
	for _, s := range doc.Stages {
		assert.Equal(t, "success", s.Status, s.Name)
	}

	assert.FileExists(t, filepath.Join(dir, "features", "features_zone.parquet"))
	assert.FileExists(t, filepath.Join(dir, "features", "features_jobduty.parquet"))

	runs, err := execute(t, "runs", "--state", ".leapfeat/state.db", "-o", "json")
	require.NoError(t, err)
	var recorded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(runs), &recorded))
	require.Len(t, recorded, 1)
	assert.Equal(t, doc.RunID, recorded[0]["id"])
	assert.Equal(t, "completed", recorded[0]["status"])

	stages, err := execute(t, "runs", doc.RunID, "--state", ".leapfeat/state.db")
	require.NoError(t, err)
	assert.Contains(t, stages, "merge_zone")
}

func TestRun_MissingSource(t *testing.T) {
	dir := initProject(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "data", "dispatch.csv")))

	_, err := execute(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read_dispatch")
}

func TestRuns_LedgerDisabled(t *testing.T) {
	initProject(t)

	_, err := execute(t, "runs")
	assert.ErrorContains(t, err, "run ledger disabled")
}

func TestNewLogger(t *testing.T) {
	buf := new(bytes.Buffer)

	logger, err := NewLogger(buf, "warn", false)
	require.NoError(t, err)
	assert.False(t, logger.Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, logger.Enabled(t.Context(), slog.LevelWarn))

	verbose, err := NewLogger(buf, "error", true)
	require.NoError(t, err)
	assert.True(t, verbose.Enabled(t.Context(), slog.LevelDebug))

	_, err = NewLogger(buf, "loud", false)
	assert.Error(t, err)
}
