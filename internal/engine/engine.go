// Package engine executes compiled aggregate queries into materialized tables
// inside a run-scoped schema and merges same-partition tables into one wide
// feature table.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapfeat/internal/query"
	"github.com/leapstack-labs/leapfeat/pkg/adapter"
	"github.com/leapstack-labs/leapfeat/pkg/core"
)

// Config holds engine configuration.
type Config struct {
	// Adapter is an already connected adapter. When nil, the engine opens
	// one from AdapterConfig and closes it on Close.
	Adapter core.Adapter
	// AdapterConfig is used when Adapter is nil. An empty type means duckdb.
	AdapterConfig core.AdapterConfig
	// RunID names the run schema. A random UUID is used when empty.
	RunID string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine owns one run-scoped catalogue of materialized tables.
type Engine struct {
	db          core.Adapter
	ownsDB      bool
	placeholder adapter.Placeholder
	logger      *slog.Logger

	runID  string
	schema string

	mu      sync.Mutex
	tables  map[string]*TableInfo
	order   []string
	sources map[string]*core.Frame // view -> frame currently loaded as src_<view>
	closed  bool
}

// New validates the SQL mappings, connects the adapter if needed and creates
// the run schema.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := query.ValidateMappings(); err != nil {
		return nil, err
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	db := cfg.Adapter
	ownsDB := false
	if db == nil {
		acfg := cfg.AdapterConfig
		if acfg.Type == "" {
			acfg.Type = "duckdb"
		}
		var err error
		db, err = adapter.Open(ctx, acfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open engine adapter: %w", err)
		}
		ownsDB = true
	}

	e := &Engine{
		db:          db,
		ownsDB:      ownsDB,
		placeholder: adapter.PlaceholderFor(db.DialectName()),
		logger:      logger.With(slog.String("run_id", runID)),
		runID:       runID,
		schema:      SchemaName(runID),
		tables:      make(map[string]*TableInfo),
		sources:     make(map[string]*core.Frame),
	}

	if err := e.db.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", e.schema)); err != nil {
		if ownsDB {
			_ = db.Close()
		}
		return nil, fmt.Errorf("failed to create run schema %s: %w", e.schema, err)
	}

	e.logger.Debug("engine initialized", slog.String("schema", e.schema), slog.String("dialect", db.DialectName()))
	return e, nil
}

// SchemaName returns the run schema name for a run id.
func SchemaName(runID string) string {
	var b strings.Builder
	b.WriteString("run_")
	for _, r := range strings.ToLower(runID) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// RunID returns the id of the run this engine serves.
func (e *Engine) RunID() string {
	return e.runID
}

// Schema returns the run schema name.
func (e *Engine) Schema() string {
	return e.schema
}

// Adapter returns the underlying adapter.
func (e *Engine) Adapter() core.Adapter {
	return e.db
}

// Close drops the run schema and closes the adapter if the engine opened it.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	ctx := context.Background()
	err := e.db.Exec(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", e.schema))
	if err != nil {
		err = fmt.Errorf("failed to drop run schema %s: %w", e.schema, err)
	}
	e.tables = make(map[string]*TableInfo)
	e.order = nil
	e.sources = make(map[string]*core.Frame)

	if e.ownsDB {
		if cerr := e.db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	e.logger.Debug("engine closed", slog.String("schema", e.schema))
	return err
}

func (e *Engine) qualify(table string) string {
	return e.schema + "." + table
}

// replaceTable materializes selectSQL as table with drop + create.
func (e *Engine) replaceTable(ctx context.Context, table, selectSQL string) (int64, error) {
	qualified := e.qualify(table)
	if err := e.db.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", qualified)); err != nil {
		return 0, fmt.Errorf("failed to drop %s: %w", qualified, err)
	}
	e.logger.Debug("materializing table", slog.String("table", qualified), slog.String("sql", selectSQL))
	if err := e.db.Exec(ctx, fmt.Sprintf("CREATE TABLE %s AS %s", qualified, selectSQL)); err != nil {
		return 0, fmt.Errorf("failed to create table %s: %w", qualified, err)
	}
	return e.countRows(ctx, qualified), nil
}

func (e *Engine) countRows(ctx context.Context, qualified string) int64 {
	frame, err := adapter.QueryFrame(ctx, e.db, fmt.Sprintf("SELECT COUNT(*) AS n FROM %s", qualified))
	if err != nil {
		e.logger.Warn("failed to count rows", slog.String("table", qualified), slog.String("error", err.Error()))
		return 0
	}
	count, ok := frame.Value(0, "n").(int64)
	if !ok {
		e.logger.Warn("failed to count rows", slog.String("table", qualified),
			slog.String("error", fmt.Sprintf("unexpected count value %v", frame.Value(0, "n"))))
		return 0
	}
	return count
}

func (e *Engine) checkOpen() error {
	if e.closed {
		return fmt.Errorf("engine for run %s is closed", e.runID)
	}
	return nil
}
