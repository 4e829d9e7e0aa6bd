// Package file provides a feature store over a directory of Parquet or CSV
// files, read and written through an in-memory DuckDB connection.
package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapfeat/internal/featurestore"
	"github.com/leapstack-labs/leapfeat/pkg/adapter"
	"github.com/leapstack-labs/leapfeat/pkg/adapters/duckdb"
	"github.com/leapstack-labs/leapfeat/pkg/core"
)

// Supported file formats.
const (
	FormatParquet = "parquet"
	FormatCSV     = "csv"
)

// readers maps a file extension to the DuckDB table function that scans it,
// in lookup order.
var readers = []struct {
	ext string
	fn  string
}{
	{FormatParquet, "read_parquet"},
	{FormatCSV, "read_csv_auto"},
}

// Store reads <source_dir>/<view>.{parquet,csv} and writes
// <output_dir>/<view>.<format>.
type Store struct {
	mu        sync.Mutex
	db        *duckdb.Adapter
	sourceDir string
	outputDir string
	format    string
	logger    *slog.Logger
}

// New opens a file store for cfg. OutputDir defaults to SourceDir and
// Format defaults to parquet.
func New(ctx context.Context, cfg core.FeatureStoreConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.SourceDir == "" {
		return nil, &core.ConfigurationError{
			Field:  "feature_store.source_dir",
			Reason: "required for the file feature store",
		}
	}

	format := strings.ToLower(cfg.Format)
	switch format {
	case "":
		format = FormatParquet
	case FormatParquet, FormatCSV:
	default:
		return nil, &core.ConfigurationError{
			Field:  "feature_store.format",
			Value:  cfg.Format,
			Reason: "unsupported file format",
			Hint:   "use parquet or csv",
		}
	}

	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = cfg.SourceDir
	}

	db := duckdb.New(logger)
	if err := db.Connect(ctx, adapter.Config{Type: "duckdb"}); err != nil {
		return nil, fmt.Errorf("opening duckdb for file store: %w", err)
	}

	return &Store{
		db:        db,
		sourceDir: cfg.SourceDir,
		outputDir: outputDir,
		format:    format,
		logger:    logger,
	}, nil
}

// Close releases the DuckDB connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// locate returns the DuckDB relation scanning the file of view. Source files
// take precedence over previously written output.
func (s *Store) locate(view string) (string, error) {
	for _, dir := range []string{s.sourceDir, s.outputDir} {
		for _, r := range readers {
			path := filepath.Join(dir, view+"."+r.ext)
			if _, err := os.Stat(path); err == nil {
				return fmt.Sprintf("%s(%s)", r.fn, quoteLiteral(path)), nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("checking %s: %w", path, err)
			}
		}
	}
	return "", &featurestore.ErrNotFound{
		View: view,
		Hint: fmt.Sprintf("expected %s.parquet or %s.csv in %s", view, view, s.sourceDir),
	}
}

// ReadFeatureView implements core.FeatureStore.
func (s *Store) ReadFeatureView(ctx context.Context, view core.FeatureView, columns []string) (*core.Frame, error) {
	if err := featurestore.ValidateViewName(view); err != nil {
		return nil, err
	}
	relation, err := s.locate(view.Name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	described, err := adapter.QueryFrame(ctx, s.db, "DESCRIBE SELECT * FROM "+relation)
	if err != nil {
		return nil, fmt.Errorf("describing feature view %s: %w", view.Name, err)
	}
	available := make([]string, 0, described.Len())
	for i := range described.Rows {
		if name, ok := described.Value(i, "column_name").(string); ok {
			available = append(available, name)
		}
	}

	if len(columns) == 0 {
		columns = available
	}
	if missing := core.NewFrame(available...).Missing(columns); len(missing) > 0 {
		return nil, &core.SchemaError{FeatureView: view.Name, Missing: missing, Available: available}
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), relation)
	frame, err := adapter.QueryFrame(ctx, s.db, query)
	if err != nil {
		return nil, fmt.Errorf("reading feature view %s: %w", view.Name, err)
	}

	s.logger.Debug("read feature view", slog.String("view", view.Name), slog.Int("rows", frame.Len()))
	return frame, nil
}

// WriteToOfflineStore implements core.FeatureStore. The file of view is
// replaced on every write.
func (s *Store) WriteToOfflineStore(ctx context.Context, rows *core.Frame, view core.FeatureView) error {
	if err := featurestore.ValidateViewName(view); err != nil {
		return err
	}
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	path := s.OutputPath(view.Name)

	s.mu.Lock()
	defer s.mu.Unlock()

	staging := "write_" + view.Name
	if err := adapter.LoadFrame(ctx, s.db, staging, rows, adapter.QuestionPlaceholder); err != nil {
		return fmt.Errorf("staging feature view %s: %w", view.Name, err)
	}
	defer func() { _ = s.db.Exec(ctx, "DROP TABLE IF EXISTS "+staging) }()

	options := "FORMAT PARQUET"
	if s.format == FormatCSV {
		options = "FORMAT CSV, HEADER"
	}
	copySQL := fmt.Sprintf("COPY %s TO %s (%s)", staging, quoteLiteral(path), options)
	if err := s.db.Exec(ctx, copySQL); err != nil {
		return fmt.Errorf("writing feature view %s: %w", view.Name, err)
	}

	s.logger.Info("wrote feature view", slog.String("view", view.Name), slog.String("path", path), slog.Int("rows", rows.Len()))
	return nil
}

// OutputPath returns the file written for view.
func (s *Store) OutputPath(view string) string {
	return filepath.Join(s.outputDir, view+"."+s.format)
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

var _ core.FeatureStore = (*Store)(nil)
