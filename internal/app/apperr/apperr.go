package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindPolicy      Kind = "policy"
	KindUnavailable Kind = "unavailable"
	KindInternal    Kind = "internal"
)

// Conflict is one availability problem reported back to the caller.
type Conflict struct {
	Room        string `json:"room"`
	Reason      string `json:"reason"`
	CheckIn     string `json:"checkIn,omitempty"`
	CheckOut    string `json:"checkOut,omitempty"`
	Reservation string `json:"reservation,omitempty"`
	Message     string `json:"message"`
}

// Error carries a client-facing message and the kind the transport maps to a status.
type Error struct {
	Kind      Kind
	Message   string
	Conflicts []Conflict
	Err       error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Detail is the message followed by the wrapped cause, for debug output and logs.
func (e *Error) Detail() string {
	if e.Err != nil && e.Message != "" && e.Err.Error() != e.Message {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Error()
}

func newf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Validation(err error, format string, args ...any) *Error {
	return newf(KindValidation, err, format, args...)
}

func NotFound(err error, format string, args ...any) *Error {
	return newf(KindNotFound, err, format, args...)
}

func Conflicting(err error, format string, args ...any) *Error {
	return newf(KindConflict, err, format, args...)
}

func Policy(err error, format string, args ...any) *Error {
	return newf(KindPolicy, err, format, args...)
}

func Unavailable(err error, format string, args ...any) *Error {
	return newf(KindUnavailable, err, format, args...)
}

func Internal(err error, format string, args ...any) *Error {
	return newf(KindInternal, err, format, args...)
}

// Unavailability reports rooms that failed the availability check.
func Unavailability(conflicts []Conflict) *Error {
	return &Error{Kind: KindValidation, Message: "one or more rooms are unavailable", Conflicts: conflicts}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As extracts the first *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
