package persist

import (
	"errors"
	"fmt"
	"time"
)

// Errors returned by persistence operations.
var (
	// ErrNotFound indicates the store holds no value for a key.
	ErrNotFound = errors.New("key not found")

	// ErrInvalidKey indicates a key the store cannot represent.
	ErrInvalidKey = errors.New("invalid key")

	// ErrClosed indicates use of a closed store or autosaver.
	ErrClosed = errors.New("closed")

	// ErrTooLarge indicates an import larger than the configured limit.
	ErrTooLarge = errors.New("import exceeds size limit")

	// ErrTimeout matches every *TimeoutError.
	ErrTimeout = errors.New("persistence timed out")

	// ErrCorruptState matches every *CorruptStateError.
	ErrCorruptState = errors.New("corrupt stored state")
)

// OperationError represents a store failure during a specific operation.
type OperationError struct {
	Op  string // Operation name (e.g., "save", "load", "export")
	Key string // Store key or file path
	Err error  // Underlying error
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}

	msg := e.Op
	if e.Key != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Key)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// TimeoutError reports persistence I/O that exceeded its budget.
// In-memory state is never affected by a timeout.
type TimeoutError struct {
	Op     string
	Key    string
	Budget time.Duration
	Err    error
}

func (e *TimeoutError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s %s: timed out", e.Op, e.Key)
	if e.Budget > 0 {
		msg = fmt.Sprintf("%s after %s", msg, e.Budget)
	}
	return msg
}

func (e *TimeoutError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is implements errors.Is so that any TimeoutError matches ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// CorruptStateError reports a stored value that could not be decoded.
// The record has been discarded unless DiscardErr is set.
type CorruptStateError struct {
	Key        string
	Err        error // Decode failure
	DiscardErr error // Failure removing the record, if any
}

func (e *CorruptStateError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("stored state %s is corrupt: %v", e.Key, e.Err)
	if e.DiscardErr != nil {
		msg = fmt.Sprintf("%s (discard failed: %v)", msg, e.DiscardErr)
	}
	return msg
}

func (e *CorruptStateError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is implements errors.Is so that any CorruptStateError matches ErrCorruptState.
func (e *CorruptStateError) Is(target error) bool {
	return target == ErrCorruptState
}
