package locationlog

import (
	"errors"
	"fmt"
)

// ErrColumnCountMismatch is matched by a *ColumnCountError: the row does
// not have the width of the configured schema.
var ErrColumnCountMismatch = errors.New("column count mismatch")

// errNonFinite rejects NaN and infinities outside the coordinate columns
var errNonFinite = errors.New("value is not a finite number")

// ColumnCountError reports a row whose token count differs from the schema
type ColumnCountError struct {
	Schema string
	Want   int
	Got    int
}

func (e *ColumnCountError) Error() string {
	return fmt.Sprintf("%s: schema %s expects %d columns, row has %d", ErrColumnCountMismatch, e.Schema, e.Want, e.Got)
}

func (e *ColumnCountError) Is(target error) bool {
	return target == ErrColumnCountMismatch
}

// FieldParseError reports a non-coordinate cell that does not convert to
// its column's declared kind
type FieldParseError struct {
	Column string
	Index  int
	Value  string
	Err    error
}

func (e *FieldParseError) Error() string {
	return fmt.Sprintf("failed to parse column %d (%s) value %q: %v", e.Index, e.Column, e.Value, e.Err)
}

func (e *FieldParseError) Unwrap() error {
	return e.Err
}
