package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapfeat/pkg/adapter"
	"github.com/leapstack-labs/leapfeat/pkg/core"
)

// Default configuration values.
const (
	DefaultAggregationsFile = "aggregations.yaml"
	DefaultTargetType       = "duckdb"
	DefaultFeatureStore     = "file"
	DefaultSourceDir        = "data"
	DefaultOutputDir        = "features"
	DefaultFormat           = "parquet"
	DefaultParallelism      = 4
	DefaultLogLevel         = "info"
)

func defaults() map[string]any {
	return map[string]any{
		"aggregations_file":        DefaultAggregationsFile,
		"target.type":              DefaultTargetType,
		"target.database":          ":memory:",
		"feature_store.type":       DefaultFeatureStore,
		"feature_store.source_dir": DefaultSourceDir,
		"feature_store.output_dir": DefaultOutputDir,
		"feature_store.format":     DefaultFormat,
		"state_path":               "",
		"parallelism":              DefaultParallelism,
		"log_level":                DefaultLogLevel,
		"verbose":                  false,
	}
}

// DefaultSchemaForType returns the default schema for a database type.
func DefaultSchemaForType(dbType string) string {
	switch dbType {
	case "postgres":
		return "public"
	default:
		return "main"
	}
}

// ApplyTargetDefaults applies default values to a TargetConfig based on the target type.
func ApplyTargetDefaults(t *core.TargetConfig) {
	if t == nil {
		return
	}
	t.Type = strings.ToLower(t.Type)
	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}
	if t.Type == "postgres" && t.Port == 0 {
		t.Port = 5432
	}
}

// ValidateTarget checks that the target names a registered adapter.
func ValidateTarget(t *core.TargetConfig) error {
	if t == nil || t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(t.Type) {
		return &adapter.UnknownAdapterError{Type: t.Type, Available: adapter.ListAdapters()}
	}
	return nil
}

// Validate checks the settings that are not covered by ValidateTarget.
func (c *Config) Validate() error {
	switch c.FeatureStore.Type {
	case "memory", "file", "sqlite":
	default:
		return &core.ConfigurationError{
			Field:  "feature_store.type",
			Value:  c.FeatureStore.Type,
			Reason: "unknown feature store",
			Hint:   "use memory, file or sqlite",
		}
	}
	if c.FeatureStore.Type == "sqlite" && c.FeatureStore.Path == "" {
		return &core.ConfigurationError{Field: "feature_store.path", Reason: "required for the sqlite feature store"}
	}
	if c.Parallelism < 1 {
		return &core.ConfigurationError{
			Field:  "parallelism",
			Value:  fmt.Sprint(c.Parallelism),
			Reason: "must be at least 1",
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return &core.ConfigurationError{
			Field:  "log_level",
			Value:  c.LogLevel,
			Reason: "unknown log level",
			Hint:   "use debug, info, warn or error",
		}
	}
	return nil
}
