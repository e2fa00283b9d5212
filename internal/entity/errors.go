package entity

import "fmt"

// ValidationError reports a tick field that is missing or out of range.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransportError wraps a failed call to the price API, the broker or the table store.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type RowError struct {
	Index int
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Index, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
