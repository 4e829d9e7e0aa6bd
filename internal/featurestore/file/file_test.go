package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapfeat/internal/featurestore"
	"github.com/leapstack-labs/leapfeat/internal/testutil"
	"github.com/leapstack-labs/leapfeat/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersCSV = `zone_key,created_date,pay_rate
z1,2024-01-01,1.5
z2,2024-01-02,2.5
`

func newStore(t *testing.T, cfg core.FeatureStoreConfig) *Store {
	t.Helper()
	s, err := New(context.Background(), cfg, testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, core.FeatureStoreConfig{}, nil)
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "feature_store.source_dir", cfgErr.Field)

	_, err = New(ctx, core.FeatureStoreConfig{SourceDir: t.TempDir(), Format: "json"}, nil)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "feature_store.format", cfgErr.Field)
}

func TestStore_ReadCSV(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "orders.csv"), ordersCSV)
	s := newStore(t, core.FeatureStoreConfig{SourceDir: dir})

	got, err := s.ReadFeatureView(context.Background(), core.FeatureView{Name: "orders"}, []string{"pay_rate", "zone_key"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pay_rate", "zone_key"}, got.Columns)
	assert.Equal(t, [][]any{{1.5, "z1"}, {2.5, "z2"}}, got.Rows)

	all, err := s.ReadFeatureView(context.Background(), core.FeatureView{Name: "orders"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"zone_key", "created_date", "pay_rate"}, all.Columns)
	assert.Equal(t, 2, all.Len())
}

func TestStore_ReadErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "orders.csv"), ordersCSV)
	s := newStore(t, core.FeatureStoreConfig{SourceDir: dir})
	ctx := context.Background()

	_, err := s.ReadFeatureView(ctx, core.FeatureView{Name: "dispatch"}, nil)
	var notFound *featurestore.ErrNotFound
	assert.ErrorAs(t, err, &notFound)

	_, err = s.ReadFeatureView(ctx, core.FeatureView{Name: "orders"}, []string{"zone_key", "job_duty"})
	var schemaErr *core.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "orders", schemaErr.FeatureView)
	assert.Equal(t, []string{"job_duty"}, schemaErr.Missing)
	assert.Equal(t, []string{"zone_key", "created_date", "pay_rate"}, schemaErr.Available)

	_, err = s.ReadFeatureView(ctx, core.FeatureView{Name: "../orders"}, nil)
	var cfgErr *core.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestStore_WriteParquetRoundTrip(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	s := newStore(t, core.FeatureStoreConfig{SourceDir: src, OutputDir: out})
	ctx := context.Background()

	rows := core.NewFrame("zone_key", "pay_rate_max_before_28_days")
	require.NoError(t, rows.Append("z1", 2.0))
	require.NoError(t, rows.Append("z2", nil))
	view := core.FeatureView{Name: "features_zone"}

	require.NoError(t, s.WriteToOfflineStore(ctx, rows, view))
	assert.FileExists(t, filepath.Join(out, "features_zone.parquet"))
	assert.Equal(t, filepath.Join(out, "features_zone.parquet"), s.OutputPath("features_zone"))

	back, err := s.ReadFeatureView(ctx, view, nil)
	require.NoError(t, err)
	assert.Equal(t, rows.Columns, back.Columns)
	assert.Equal(t, [][]any{{"z1", 2.0}, {"z2", nil}}, back.Rows)

	// A second write replaces the file.
	replacement := core.NewFrame("zone_key", "pay_rate_max_before_28_days")
	require.NoError(t, replacement.Append("z3", 1.0))
	require.NoError(t, s.WriteToOfflineStore(ctx, replacement, view))

	back, err = s.ReadFeatureView(ctx, view, nil)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"z3", 1.0}}, back.Rows)
}

func TestStore_WriteCSV(t *testing.T) {
	dir := t.TempDir()
	s := newStore(t, core.FeatureStoreConfig{SourceDir: dir, Format: "CSV"})

	rows := core.NewFrame("zone_key", "value")
	require.NoError(t, rows.Append("z1", 3.5))
	require.NoError(t, s.WriteToOfflineStore(context.Background(), rows, core.FeatureView{Name: "features_zone"}))

	content, err := os.ReadFile(filepath.Join(dir, "features_zone.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "zone_key,value", lines[0])
	assert.Equal(t, "z1,3.5", lines[1])
}
