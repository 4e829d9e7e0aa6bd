package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapfeat/internal/config"
	"github.com/leapstack-labs/leapfeat/internal/featurestore/file"
	"github.com/leapstack-labs/leapfeat/internal/featurestore/memory"
	"github.com/leapstack-labs/leapfeat/internal/featurestore/sqlite"
	"github.com/leapstack-labs/leapfeat/internal/planner"
	"github.com/leapstack-labs/leapfeat/internal/state"
	"github.com/leapstack-labs/leapfeat/pkg/core"
	"github.com/spf13/cobra"
)

type (
	configKey struct{}
	loggerKey struct{}
)

// WithConfig stores the loaded configuration in ctx.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// WithLogger stores the logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Out    io.Writer
	Err    io.Writer
}

// NewCommandContext collects the configuration and logger stored on the
// command context by the root command.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, ok := ctx.Value(configKey{}).(*config.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	logger, ok := ctx.Value(loggerKey{}).(*slog.Logger)
	if !ok || logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CommandContext{
		Cfg:    cfg,
		Logger: logger,
		Out:    cmd.OutOrStdout(),
		Err:    cmd.ErrOrStderr(),
	}, nil
}

// LoadAggregations reads and validates the configured aggregations file.
func (c *CommandContext) LoadAggregations() (*core.AggregationsConfig, error) {
	aggs, err := config.LoadAggregations(c.Cfg.AggregationsFile)
	if err != nil {
		return nil, err
	}
	if err := planner.Validate(aggs); err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded aggregations", slog.String("path", c.Cfg.AggregationsFile), slog.Int("requests", aggs.Len()))
	return aggs, nil
}

// OpenFeatureStore opens the configured feature store. The returned cleanup
// function must be called.
func (c *CommandContext) OpenFeatureStore(ctx context.Context) (core.FeatureStore, func(), error) {
	fsCfg := c.Cfg.FeatureStore
	switch fsCfg.Type {
	case "memory":
		return memory.New(), func() {}, nil
	case "file":
		s, err := file.New(ctx, fsCfg, c.Logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "sqlite":
		s, err := sqlite.Open(ctx, fsCfg.Path, c.Logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown feature store type %q", fsCfg.Type)
	}
}

// OpenRunStore opens the run ledger, or returns nil when state_path is empty.
func (c *CommandContext) OpenRunStore() (*state.SQLiteStore, error) {
	if c.Cfg.StatePath == "" {
		return nil, nil
	}
	if dir := filepath.Dir(c.Cfg.StatePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
