package core

import "context"

// FeatureStore reads raw feature rows and persists computed feature tables.
// The engine depends only on this contract, never on a backing implementation.
type FeatureStore interface {
	// ReadFeatureView returns the rows of view projected onto columns.
	// A column absent from the view is reported as a *SchemaError.
	ReadFeatureView(ctx context.Context, view FeatureView, columns []string) (*Frame, error)

	// WriteToOfflineStore persists rows under view, replacing earlier writes.
	WriteToOfflineStore(ctx context.Context, rows *Frame, view FeatureView) error
}
