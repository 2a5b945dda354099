// Package errs defines the closed set of error kinds the engine reports.
//
// Callers branch on Kind, never on message text:
//
//	if errs.Is(err, errs.Connection) {
//	    // platform unavailable, skip this cycle
//	}
package errs

import (
	"errors"
	"fmt"
)

// Kind is the category of an engine error.
type Kind int

const (
	Unknown Kind = iota
	// Configuration is a bad registration or configuration argument.
	Configuration
	// Connection is a refused connect or an account/listing level fetch failure.
	Connection
	// PartialFetch is a single listing's performance fetch failing. Never fatal.
	PartialFetch
	// ReadOnlyViolation is any attempted write against a connector. Never retried.
	ReadOnlyViolation
	// DiffMismatch is a comparison of snapshots taken for different search terms.
	DiffMismatch
	// NotFound is a lookup of an unknown id.
	NotFound
	// Validation is input rejected by struct validation.
	Validation
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Connection:
		return "connection"
	case PartialFetch:
		return "partial_fetch"
	case ReadOnlyViolation:
		return "read_only_violation"
	case DiffMismatch:
		return "diff_mismatch"
	case NotFound:
		return "not_found"
	case Validation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error carries a Kind, the operation that failed and an optional cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind.
func New(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind caused by err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether any *Error in err's chain has the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
