package codec

import (
	"errors"
	"fmt"
)

// Errors returned by codec operations.
var (
	// ErrMalformed matches every *DecodeError.
	ErrMalformed = errors.New("malformed snapshot")

	// ErrMissingVersion indicates an attempt to encode an unversioned snapshot.
	ErrMissingVersion = errors.New("snapshot version is required")

	// ErrNilSnapshot indicates a nil snapshot was supplied.
	ErrNilSnapshot = errors.New("nil snapshot")

	// ErrCapture wraps failures reading the live document.
	ErrCapture = errors.New("capture failed")

	// ErrRestore wraps failures rebuilding the live document.
	ErrRestore = errors.New("restore failed")
)

// DecodeError reports input that does not have the shape of any known
// snapshot layout. The input itself is never modified.
type DecodeError struct {
	Path   string // Location in the document, e.g. "groups[2].fields[0]"
	Reason string // What was wrong
	Err    error  // Underlying parse error, if any
}

func newDecodeError(path, reason string, err error) *DecodeError {
	return &DecodeError{Path: path, Reason: reason, Err: err}
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}

	msg := "decode snapshot"
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is implements errors.Is so that any DecodeError matches ErrMalformed.
func (e *DecodeError) Is(target error) bool {
	return target == ErrMalformed
}
