package models

import (
	"fmt"
)

// ValidationError reports a category or input value that violates a structural
// or range constraint. Row is 1-based when the value came from a tabular source
// and 0 otherwise.
type ValidationError struct {
	Field  string
	Value  any
	Row    int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("validation failed: row %d: %s=%v: %s", e.Row, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("validation failed: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// ConfigurationError reports an invalid simulation invocation, such as a trial
// count below one or a percentile outside (0, 100).
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// SourceReadError wraps an I/O failure while reading category definitions.
type SourceReadError struct {
	Path string
	Err  error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("reading category source %s: %v", e.Path, e.Err)
}

func (e *SourceReadError) Unwrap() error {
	return e.Err
}
