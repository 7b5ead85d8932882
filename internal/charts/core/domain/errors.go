package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrLockTimeout is returned when the chart lock could not be taken in time.
	ErrLockTimeout = errors.New("chart lock timeout")
	// ErrSchemaViolation is matched by every *SchemaViolationError.
	ErrSchemaViolation = errors.New("chart schema violation")
)

// SchemaViolationError reports a commit or tick result that does not fit the
// chart schema. It is a programming error and is never retried.
type SchemaViolationError struct {
	Chart  string
	Column string
	Reason string
}

func (e *SchemaViolationError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("chart %s: %s", e.Chart, e.Reason)
	}
	return fmt.Sprintf("chart %s: column %s: %s", e.Chart, e.Column, e.Reason)
}

func (e *SchemaViolationError) Is(target error) bool {
	return target == ErrSchemaViolation
}

// StorageError wraps a persistence failure. The underlying driver error is
// reachable through errors.Is / errors.As.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("chart storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
