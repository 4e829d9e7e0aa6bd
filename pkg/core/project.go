package core

// TargetConfig holds database target configuration for the execution engine.
type TargetConfig struct {
	Type string `koanf:"type"` // duckdb, postgres

	// File-based databases (DuckDB)
	Database string `koanf:"database"` // file path, ":memory:" or database name

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Common
	Schema string `koanf:"schema"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific configuration (e.g., DuckDB extensions, settings)
	Params map[string]any `koanf:"params"`
}

// ToAdapterConfig converts the target to the adapter connection config.
func (t *TargetConfig) ToAdapterConfig() AdapterConfig {
	cfg := AdapterConfig{
		Type:     t.Type,
		Database: t.Database,
		Host:     t.Host,
		Port:     t.Port,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
		Params:   t.Params,
	}
	if t.Type == "duckdb" && t.Database != ":memory:" {
		cfg.Path = t.Database
	}
	return cfg
}

// FeatureStoreConfig selects and configures the feature store collaborator.
type FeatureStoreConfig struct {
	Type string `koanf:"type"` // memory, file, sqlite

	// SourceDir holds one file per feature view (file store).
	SourceDir string `koanf:"source_dir"`

	// OutputDir receives merged feature tables (file store).
	OutputDir string `koanf:"output_dir"`

	// Format of written files: parquet or csv (file store).
	Format string `koanf:"format"`

	// Path of the SQLite database (sqlite store).
	Path string `koanf:"path"`
}
