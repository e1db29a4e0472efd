package fdx

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies failures of the index engine.
type Kind int

const (
	KindNone Kind = iota
	IoFailure
	FormatMismatch
	StructuralCorruption
	StaleCursor
	CapacityExhausted
	InvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case IoFailure:
		return "io failure"
	case FormatMismatch:
		return "format mismatch"
	case StructuralCorruption:
		return "structural corruption"
	case StaleCursor:
		return "stale cursor"
	case CapacityExhausted:
		return "capacity exhausted"
	case InvalidArgument:
		return "invalid argument"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error carries a Kind through any amount of wrapping.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Cause lets errors.Cause stop here instead of unwrapping to the I/O error.
func (e *Error) Cause() error { return e }

// Errorf builds a kinded error with a formatted detail message.
func Errorf(kind Kind, op string, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: errors.Errorf(format, args...)}
}

// Wrap attaches a kind to err. A nil err stays nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the kind of err, KindNone for nil and IoFailure for
// errors that never went through this package.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return IoFailure
}

// IsKind reports whether err is of kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// ErrorState is the queryable last-error slot of a tree set.
type ErrorState struct {
	last error
}

// Signal records err as the last error and returns it unchanged.
func (s *ErrorState) Signal(err error) error {
	if err != nil {
		s.last = err
	}
	return err
}

func (s *ErrorState) Last() error { return s.last }

func (s *ErrorState) LastKind() Kind { return KindOf(s.last) }

func (s *ErrorState) Clear() { s.last = nil }
