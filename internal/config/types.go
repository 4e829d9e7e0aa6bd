// Package config loads leapfeat project configuration and aggregation files.
package config

import "github.com/leapstack-labs/leapfeat/pkg/core"

// Config file names, in lookup order.
const (
	ConfigFileName    = "leapfeat.yaml"
	ConfigFileNameAlt = "leapfeat.yml"
)

// Config holds the project configuration.
type Config struct {
	// ProjectRoot anchors relative paths. It is the directory of the config
	// file, or the working directory when there is none.
	ProjectRoot string `koanf:"-"`

	AggregationsFile string                  `koanf:"aggregations_file"`
	Target           *core.TargetConfig      `koanf:"target"`
	FeatureStore     core.FeatureStoreConfig `koanf:"feature_store"`
	StatePath        string                  `koanf:"state_path"` // empty disables the run ledger
	Parallelism      int                     `koanf:"parallelism"`
	LogLevel         string                  `koanf:"log_level"`
	Verbose          bool                    `koanf:"verbose"`
}

// AdapterConfig returns the engine connection config of the target.
func (c *Config) AdapterConfig() core.AdapterConfig {
	if c.Target == nil {
		return core.AdapterConfig{Type: DefaultTargetType}
	}
	return c.Target.ToAdapterConfig()
}
