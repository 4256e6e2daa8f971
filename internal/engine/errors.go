package engine

import (
	"errors"
	"fmt"
)

// Errors returned by engine operations.
var (
	// ErrClosed indicates use of a closed engine.
	ErrClosed = errors.New("engine is closed")

	// ErrNilDocument indicates an engine created without a document.
	ErrNilDocument = errors.New("nil document")
)

// OperationError wraps a failure with the engine operation that hit it.
type OperationError struct {
	Op  string // Operation name (e.g., "import", "load")
	Err error  // Underlying error
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Op: op, Err: err}
}
