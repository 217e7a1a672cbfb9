package executor

import (
	"errors"
	"fmt"
)

// ErrorKind classifies execution failures so transports can map them to a
// status without inspecting messages.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindBusy       ErrorKind = "busy"
	KindStaging    ErrorKind = "staging"
	KindSpawn      ErrorKind = "spawn"
	KindRuntime    ErrorKind = "runtime"
	KindTimeout    ErrorKind = "timeout"
	KindCleanup    ErrorKind = "cleanup"
	KindInternal   ErrorKind = "internal"
)

var (
	ErrQueueFull  = errors.New("job queue full")
	ErrPoolClosed = errors.New("worker pool is shut down")
)

// Error is the error type returned by every stage of a job.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind) + " error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind and a client-facing message to err.
func WrapError(err error, kind ErrorKind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind of the first *Error in err's chain. Errors that
// did not come from this package are internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
