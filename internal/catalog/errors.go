package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports that no record matched the query
	ErrNotFound = errors.New("product not found")
	// ErrMalformedRecord reports a matching record whose fields do not validate
	ErrMalformedRecord = errors.New("malformed catalog record")
)

// RecordError describes a record that failed validation
type RecordError struct {
	Line  int
	Name  string
	Field string
	Value string
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("catalog line %d (%q): invalid %s %q: %v", e.Line, e.Name, e.Field, e.Value, e.Err)
}

// Unwrap lets errors.Is match both ErrMalformedRecord and the underlying cause
func (e *RecordError) Unwrap() []error {
	return []error{ErrMalformedRecord, e.Err}
}
