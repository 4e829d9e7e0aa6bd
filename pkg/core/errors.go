package core

import (
	"fmt"
	"strings"
)

// ConfigurationError reports an invalid aggregation configuration: an unmapped
// aggregation or range, an unsupported metric kind, or conflicting partition
// definitions.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
	Hint   string
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Field != "" {
		fmt.Fprintf(&b, ": %s", e.Field)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, " %q", e.Value)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, "\nHint: %s", e.Hint)
	}
	return b.String()
}

// SchemaError reports columns referenced by a request that are absent from the
// rows of its source feature view.
type SchemaError struct {
	FeatureView string
	Missing     []string
	Available   []string
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("schema error: feature view %q is missing columns %v", e.FeatureView, e.Missing)
	if len(e.Available) > 0 {
		msg += fmt.Sprintf("\nAvailable columns: %v", e.Available)
	}
	return msg
}

// SequencingError reports a stage invoked before its dependencies exist, or a
// stage graph whose dependencies cannot be satisfied.
type SequencingError struct {
	Stage   string
	Missing []string
	Reason  string
}

func (e *SequencingError) Error() string {
	msg := "sequencing error"
	if e.Stage != "" {
		msg += fmt.Sprintf(": %s", e.Stage)
	}
	if e.Reason != "" {
		msg += fmt.Sprintf(": %s", e.Reason)
	}
	if len(e.Missing) > 0 {
		msg += fmt.Sprintf(" (missing %v)", e.Missing)
	}
	return msg
}
