// Package errors provides the error taxonomy shared by every component: a
// Kind tag, a human message, an optional HTTP status, and a derived
// retryability flag, alongside call-site-annotated constructors in the
// style the rest of this module uses for plain wrapping.
package errors

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// Kind categorizes an Error so callers can branch on cause without string
// matching.
type Kind string

const (
	KindRateLimit           Kind = "RATE_LIMIT"
	KindContextTooLong      Kind = "CONTEXT_TOO_LONG"
	KindModelNotFound       Kind = "MODEL_NOT_FOUND"
	KindTimeout             Kind = "TIMEOUT"
	KindServerError         Kind = "SERVER_ERROR"
	KindAuthError           Kind = "AUTH_ERROR"
	KindPathOutsideSandbox  Kind = "PATH_OUTSIDE_SANDBOX"
	KindPathBlocked         Kind = "PATH_BLOCKED"
	KindFileNotFound        Kind = "FILE_NOT_FOUND"
	KindFileTooLarge        Kind = "FILE_TOO_LARGE"
	KindPermissionDenied    Kind = "PERMISSION_DENIED"
	KindUserRejected        Kind = "USER_REJECTED"
	KindToolNotAvailable    Kind = "TOOL_NOT_AVAILABLE"
	KindCommandFailed       Kind = "COMMAND_FAILED"
	KindMaxIterations       Kind = "MAX_ITERATIONS"
	KindUnknown             Kind = "UNKNOWN"
)

// retryableKinds mirrors SPEC_FULL.md §7: retry lives exclusively inside the
// backend adapter, but any caller can still ask whether a kind is the sort
// that retrying would plausibly fix.
var retryableKinds = map[Kind]bool{
	KindRateLimit:   true,
	KindServerError: true,
	KindTimeout:     true,
}

// Error is the single error value every package boundary in this module
// returns or wraps.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int // 0 when not HTTP-originated
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// IsRetryable reports whether this error's Kind is one the backend retry
// policy should act on.
func (e *Error) IsRetryable() bool {
	return retryableKinds[e.Kind]
}

// New constructs a categorized Error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs a categorized Error with a formatted message.
func Newf(kind Kind, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, a...)}
}

// Wrap attaches a Kind and message to an underlying error, preserving it for
// errors.Unwrap / errors.Is chains.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithStatus attaches an HTTP status code, returning the same *Error for
// chaining at the construction site.
func (e *Error) WithStatus(code int) *Error {
	e.StatusCode = code
	return e
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, and
// KindUnknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err is (or wraps) an *Error whose Kind is
// retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.IsRetryable()
	}
	return false
}

// Trace creates a plain, call-site-annotated error with file and line
// information, for internal bugs and invariant violations that do not need
// a Kind (programmer errors, not user- or model-facing failures).
func Trace(format string, a ...interface{}) error {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file = "???"
		line = 0
	} else {
		file = filepath.Base(file)
	}
	return fmt.Errorf("[%s:%d] %s", file, line, fmt.Sprintf(format, a...))
}

// Wrapf adds call-site context to an existing error without changing its
// Kind. If err is nil, Wrapf returns nil.
func Wrapf(err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file = "???"
		line = 0
	} else {
		file = filepath.Base(file)
	}
	return fmt.Errorf("[%s:%d] %s: %w", file, line, fmt.Sprintf(format, a...), err)
}
