// Package core defines the shared language of the leapfeat system.
//
// This package contains:
//   - The aggregation configuration model (FeatureView, Metric, PartitionKeys, ...)
//   - Domain errors (ConfigurationError, SchemaError, SequencingError)
//   - Row sets exchanged with feature stores (Frame)
//   - Service interfaces (Adapter, FeatureStore, RunStore)
//   - Configuration types (TargetConfig, FeatureStoreConfig)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
