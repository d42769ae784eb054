// Package apperr defines the error taxonomy shared by the intake pipeline.
//
// Every error raised by the core carries one of the sentinel kinds below so
// that callers can branch with errors.Is without knowing which component
// produced it.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInput marks a caller-fixable precondition violation.
	ErrInput = errors.New("invalid input")
	// ErrCapability marks a missing platform feature.
	ErrCapability = errors.New("capability unavailable")
	// ErrPermission marks a permission the user refused.
	ErrPermission = errors.New("permission denied")
	// ErrTransport marks a remote call that failed or timed out.
	ErrTransport = errors.New("transport failure")
	// ErrService marks a remote that answered but signalled its own failure.
	ErrService = errors.New("service failure")
)

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind   error
	Op     string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Input builds an ErrInput failure.
func Input(op, format string, args ...any) error {
	return &Error{Kind: ErrInput, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// Capability builds an ErrCapability failure.
func Capability(op, detail string) error {
	return &Error{Kind: ErrCapability, Op: op, Detail: detail}
}

// Permission builds an ErrPermission failure wrapping the refusal.
func Permission(op string, err error) error {
	return &Error{Kind: ErrPermission, Op: op, Err: err}
}

// Transport builds an ErrTransport failure wrapping err. An err that is
// already classified is returned unchanged.
func Transport(op string, err error) error {
	if Classified(err) {
		return err
	}
	return &Error{Kind: ErrTransport, Op: op, Err: err}
}

// Service builds an ErrService failure.
func Service(op, format string, args ...any) error {
	return &Error{Kind: ErrService, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind to a sentinel cause, e.g. Wrap(ErrInput, "speech.start", ErrSessionActive).
func Wrap(kind error, op string, cause error) error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// KindOf returns the sentinel kind of err, or nil when err is unclassified.
func KindOf(err error) error {
	for _, k := range []error{ErrInput, ErrCapability, ErrPermission, ErrTransport, ErrService} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Classified reports whether err carries one of the taxonomy kinds.
func Classified(err error) bool {
	return err != nil && KindOf(err) != nil
}
