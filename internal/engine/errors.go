package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrDataIntegrity marks input that cannot be cleaned into a consistent table.
	ErrDataIntegrity = errors.New("data integrity")
	// ErrEmptySelection marks a selection that matched no record where at least one is required.
	ErrEmptySelection = errors.New("empty selection")
	// ErrInvalidSelection marks a selection value that cannot be parsed.
	ErrInvalidSelection = errors.New("invalid selection")
)

// IntegrityError reports the offending line, column and value of a load-time failure.
// Row is the 1-based line in the source file, or 0 when not tied to a line.
type IntegrityError struct {
	Row    int
	Field  string
	Value  string
	Reason string
}

func (e *IntegrityError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("%v: line %d: %s %q: %s", ErrDataIntegrity, e.Row, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("%v: %s %q: %s", ErrDataIntegrity, e.Field, e.Value, e.Reason)
}

func (e *IntegrityError) Unwrap() error { return ErrDataIntegrity }

// SelectionError reports a query-time failure for a field of a Spec.
type SelectionError struct {
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("%v: %s %q: %s", e.Err, e.Field, e.Value, e.Reason)
}

func (e *SelectionError) Unwrap() error { return e.Err }
