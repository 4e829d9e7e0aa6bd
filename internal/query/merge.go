package query

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapfeat/pkg/core"
)

// TableRef names a materialized aggregate table and its aggregate columns.
type TableRef struct {
	Name    string
	Columns []string
}

// SpineSQL builds the union of distinct (partition columns, date) pairs across
// tables. UNION removes duplicates between tables.
func SpineSQL(p core.PartitionKeys, tables []string) string {
	keys := strings.Join(KeyColumns(p), ", ")
	parts := make([]string, len(tables))
	for i, t := range tables {
		parts[i] = fmt.Sprintf("SELECT DISTINCT %s FROM %s", keys, t)
	}
	return strings.Join(parts, "\nUNION\n")
}

// MergeSQL left-joins every table onto spine by partition columns and date,
// selecting the spine keys followed by each table's aggregate columns.
func MergeSQL(p core.PartitionKeys, spine string, tables []TableRef) string {
	keyCols := KeyColumns(p)

	items := make([]string, 0, len(keyCols))
	for _, k := range keyCols {
		items = append(items, "s."+k)
	}
	for i, t := range tables {
		for _, c := range t.Columns {
			items = append(items, fmt.Sprintf("t%d.%s", i, c))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s\nFROM %s AS s", strings.Join(items, ", "), spine)
	for i, t := range tables {
		conds := make([]string, len(keyCols))
		for j, k := range keyCols {
			conds[j] = fmt.Sprintf("s.%s = t%d.%s", k, i, k)
		}
		fmt.Fprintf(&b, "\nLEFT JOIN %s AS t%d ON %s", t.Name, i, strings.Join(conds, " AND "))
	}
	orderBy := make([]string, len(keyCols))
	for i, k := range keyCols {
		orderBy[i] = "s." + k
	}
	fmt.Fprintf(&b, "\nORDER BY %s", strings.Join(orderBy, ", "))
	return b.String()
}
