package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/leapfeat/pkg/adapter"
	"github.com/leapstack-labs/leapfeat/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		verify    func(t *testing.T, path string)
	}{
		{
			name: "in-memory",
			setupPath: func(_ *testing.T) string {
				return ":memory:"
			},
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				tmpDir := t.TempDir()
				return filepath.Join(tmpDir, "test.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			dbPath := tt.setupPath(t)
			require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: dbPath}))
			defer func() { _ = adp.Close() }()

			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestAdapter_NotConnected(t *testing.T) {
	tests := []struct {
		name      string
		operation func(ctx context.Context, adp *Adapter) error
	}{
		{
			name: "exec without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				return adp.Exec(ctx, "SELECT 1")
			},
		},
		{
			name: "query without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.Query(ctx, "SELECT 1")
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			err := tt.operation(ctx, adp)
			assert.Error(t, err, "expected error when operating without connection")
		})
	}
}

func TestAdapter_Close(t *testing.T) {
	tests := []struct {
		name    string
		connect bool
	}{
		{"close without connect", false},
		{"close after connect", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			if tt.connect {
				require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: ":memory:"}))
			}

			assert.NoError(t, adp.Close())
		})
	}
}

func connect(t *testing.T, cfg core.AdapterConfig) *Adapter {
	t.Helper()
	adp := New(nil)
	require.NoError(t, adp.Connect(context.Background(), cfg))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func TestAdapter_WindowAggregate(t *testing.T) {
	ctx := context.Background()
	adp := connect(t, core.AdapterConfig{Path: ":memory:"})

	src := core.NewFrame("zone_key", "created_date", "pay_rate")
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, src.Append("z1", day(1), 10.0))
	require.NoError(t, src.Append("z1", day(2), 20.0))
	require.NoError(t, src.Append("z2", day(1), 5.0))
	require.NoError(t, adapter.LoadFrame(ctx, adp, "src_orders", src, adapter.QuestionPlaceholder))

	got, err := adapter.QueryFrame(ctx, adp, `
		SELECT zone_key, AVG(pay_rate) OVER (PARTITION BY zone_key ORDER BY created_date
			ROWS BETWEEN 28 PRECEDING AND CURRENT ROW) AS pay_rate_avg_before_28_days
		FROM src_orders
		ORDER BY zone_key, created_date`)
	require.NoError(t, err)

	require.Equal(t, 3, got.Len())
	assert.Equal(t, 10.0, got.Value(0, "pay_rate_avg_before_28_days"))
	assert.Equal(t, 15.0, got.Value(1, "pay_rate_avg_before_28_days"))
	assert.Equal(t, 5.0, got.Value(2, "pay_rate_avg_before_28_days"))
}

func TestAdapter_GetTableMetadata(t *testing.T) {
	ctx := context.Background()
	adp := connect(t, core.AdapterConfig{Path: ":memory:"})

	require.NoError(t, adp.Exec(ctx, "CREATE TABLE features_zone (zone_key VARCHAR NOT NULL, x DOUBLE)"))
	require.NoError(t, adp.Exec(ctx, "INSERT INTO features_zone VALUES (?, ?)", "z1", 1.0))

	meta, err := adp.GetTableMetadata(ctx, "features_zone")
	require.NoError(t, err)
	assert.Equal(t, "main", meta.Schema)
	require.Len(t, meta.Columns, 2)
	assert.Equal(t, "zone_key", meta.Columns[0].Name)
	assert.False(t, meta.Columns[0].Nullable)
	assert.Equal(t, int64(1), meta.RowCount)

	_, err = adp.GetTableMetadata(ctx, "missing_table")
	assert.Error(t, err)
}

func TestAdapter_ConnectAppliesSettings(t *testing.T) {
	ctx := context.Background()
	adp := connect(t, core.AdapterConfig{
		Path:   ":memory:",
		Params: map[string]any{"settings": map[string]any{"threads": 2}},
	})

	got, err := adapter.QueryFrame(ctx, adp, "SELECT current_setting('threads') AS threads")
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.EqualValues(t, 2, got.Value(0, "threads"))
	assert.Equal(t, map[string]string{"threads": "2"}, adp.Params().Settings)
}

func TestAdapter_ConnectRejectsUnknownParams(t *testing.T) {
	adp := New(nil)
	err := adp.Connect(context.Background(), core.AdapterConfig{
		Path:   ":memory:",
		Params: map[string]any{"extension": []any{"httpfs"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duckdb params")
	assert.False(t, adp.IsConnected())
}

func TestAdapter_DialectName(t *testing.T) {
	assert.Equal(t, "duckdb", New(nil).DialectName())
}
