// Package featurestore holds shared helpers for the feature store
// implementations in its subpackages.
package featurestore

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapfeat/pkg/core"
)

// Project returns rows restricted to columns, or every column when columns
// is empty. Missing columns are a *core.SchemaError naming view.
func Project(rows *core.Frame, view core.FeatureView, columns []string) (*core.Frame, error) {
	if len(columns) == 0 {
		return rows.Select(view.Name, rows.Columns...)
	}
	return rows.Select(view.Name, columns...)
}

// ValidateViewName rejects view names that cannot be used as a table or file name.
func ValidateViewName(view core.FeatureView) error {
	name := view.Name
	if name == "" || strings.ContainsAny(name, `/\. "'`) {
		return &core.ConfigurationError{
			Field:  "feature_view",
			Value:  name,
			Reason: "not a valid feature view name",
			Hint:   "feature view names are used as table and file names",
		}
	}
	return nil
}

// ErrNotFound is returned when a feature view has no data.
type ErrNotFound struct {
	View string
	Hint string
}

func (e *ErrNotFound) Error() string {
	msg := fmt.Sprintf("feature view %q not found", e.View)
	if e.Hint != "" {
		msg += "\nHint: " + e.Hint
	}
	return msg
}
