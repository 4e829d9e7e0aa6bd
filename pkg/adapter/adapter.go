// Package adapter provides the database adapter contract used by the
// aggregation engine and the shared database/sql plumbing concrete adapters
// embed.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves through Register in their init() functions.
package adapter

import (
	"fmt"

	"github.com/leapstack-labs/leapfeat/pkg/core"
)

// Type aliases so adapter implementations can depend on this package alone.
type (
	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter

	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column

	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)

// Placeholder renders the n-th (1-based) bind parameter for a dialect.
type Placeholder func(n int) string

// QuestionPlaceholder renders positional "?" parameters (DuckDB, SQLite).
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder renders numbered "$n" parameters (PostgreSQL).
func DollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

// PlaceholderFor returns the bind parameter style of a dialect.
func PlaceholderFor(dialect string) Placeholder {
	if dialect == "postgres" {
		return DollarPlaceholder
	}
	return QuestionPlaceholder
}
