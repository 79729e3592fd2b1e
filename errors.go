package splatt

import "github.com/pkg/errors"

// ErrorKind classifies a hard failure returned by a splatt operation.
type ErrorKind int

const (
	// InvalidInput covers an out-of-range coordinate, a malformed
	// permutation, a mismatched mode/rank vector, or a zero
	// regularization value where one is required.
	InvalidInput ErrorKind = iota
	// AllocationFailure covers scratch or CSF allocation that exceeded
	// a user-provided limit.
	AllocationFailure
	// Unsupported covers requests the current implementation rejects
	// outright, such as a CCD workspace over a CSF that does not have
	// exactly three modes.
	Unsupported
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidInput:
		return "invalid input"
	case AllocationFailure:
		return "allocation failure"
	case Unsupported:
		return "unsupported"
	default:
		return "unknown error kind"
	}
}

// Error is the error type every splatt operation returns on a hard
// failure. It wraps an underlying cause (often produced with
// github.com/pkg/errors, which also gives it a stack trace) with the
// ErrorKind a caller can switch on.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

// Unwrap lets errors.Is / errors.As see through to the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps cause as a splatt.Error of the given kind. cause is
// typically built with errors.Errorf or errors.Wrap so the resulting
// error carries a stack trace.
func NewError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

// Errorf builds an InvalidInput-style splatt.Error formatted like
// errors.Errorf, with kind explicitly given since not every formatted
// failure is invalid input (e.g. AllocationFailure during a parallel
// region join).
func Errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: errors.Errorf(format, args...)}
}

// AsError reports whether err is (or wraps) a *splatt.Error, returning it.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
