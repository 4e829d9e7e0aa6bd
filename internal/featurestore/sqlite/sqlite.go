// Package sqlite provides an offline feature store backed by a single SQLite
// file. Each feature view is one table.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapfeat/internal/featurestore"
	"github.com/leapstack-labs/leapfeat/pkg/adapter"
	"github.com/leapstack-labs/leapfeat/pkg/core"

	_ "modernc.org/sqlite" // sqlite driver
)

// conn adapts a SQLite handle to core.Adapter so frames load through the
// shared adapter helpers.
type conn struct {
	adapter.BaseSQLAdapter
}

func (c *conn) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := "file::memory:"
	if cfg.Path != "" && cfg.Path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.Path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	c.DB = db
	c.Cfg = cfg
	return nil
}

// GetTableMetadata reads column metadata with PRAGMA table_info. A missing
// table yields metadata without columns.
func (c *conn) GetTableMetadata(ctx context.Context, table string) (*core.TableMetadata, error) {
	frame, err := adapter.QueryFrame(ctx, c, "SELECT name, type, \"notnull\", cid FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("failed to get table metadata: %w", err)
	}
	meta := &core.TableMetadata{Schema: "main", Name: table}
	for i := range frame.Rows {
		name, _ := frame.Value(i, "name").(string)
		typ, _ := frame.Value(i, "type").(string)
		notNull, _ := frame.Value(i, "notnull").(int64)
		pos, _ := frame.Value(i, "cid").(int64)
		meta.Columns = append(meta.Columns, core.Column{
			Name:     name,
			Type:     typ,
			Nullable: notNull == 0,
			Position: int(pos) + 1,
		})
	}
	return meta, nil
}

func (c *conn) DialectName() string {
	return "sqlite"
}

// Store reads and writes feature views as tables of one SQLite database.
type Store struct {
	mu     sync.Mutex
	db     *conn
	logger *slog.Logger
}

// Open opens or creates the SQLite file at path. Use ":memory:" for a
// private in-memory database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if path == "" {
		return nil, &core.ConfigurationError{
			Field:  "feature_store.path",
			Reason: "required for the sqlite feature store",
		}
	}
	c := &conn{BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger}}
	if err := c.Connect(ctx, adapter.Config{Type: "sqlite", Path: path}); err != nil {
		return nil, err
	}
	logger.Debug("opened sqlite feature store", slog.String("path", path))
	return &Store{db: c, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put writes rows as the source table of view. It is WriteToOfflineStore
// under a name that reads better when seeding inputs.
func (s *Store) Put(ctx context.Context, view string, rows *core.Frame) error {
	return s.WriteToOfflineStore(ctx, rows, core.FeatureView{Name: view})
}

// ReadFeatureView implements core.FeatureStore.
func (s *Store) ReadFeatureView(ctx context.Context, view core.FeatureView, columns []string) (*core.Frame, error) {
	if err := featurestore.ValidateViewName(view); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.db.GetTableMetadata(ctx, view.Name)
	if err != nil {
		return nil, err
	}
	if len(meta.Columns) == 0 {
		return nil, &featurestore.ErrNotFound{View: view.Name, Hint: "no table of that name in the sqlite feature store"}
	}

	available := make([]string, len(meta.Columns))
	for i, c := range meta.Columns {
		available[i] = c.Name
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
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(quoted, ", "), quoteIdent(view.Name))
	frame, err := adapter.QueryFrame(ctx, s.db, query)
	if err != nil {
		return nil, fmt.Errorf("reading feature view %s: %w", view.Name, err)
	}
	return frame, nil
}

// WriteToOfflineStore implements core.FeatureStore. The table of view is
// dropped and recreated on every write.
func (s *Store) WriteToOfflineStore(ctx context.Context, rows *core.Frame, view core.FeatureView) error {
	if err := featurestore.ValidateViewName(view); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	table := quoteIdent(view.Name)
	if err := adapter.LoadFrame(ctx, s.db, table, rows, adapter.QuestionPlaceholder); err != nil {
		return fmt.Errorf("writing feature view %s: %w", view.Name, err)
	}
	s.logger.Info("wrote feature view", slog.String("view", view.Name), slog.Int("rows", rows.Len()))
	return nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

var (
	_ core.Adapter      = (*conn)(nil)
	_ core.FeatureStore = (*Store)(nil)
)
