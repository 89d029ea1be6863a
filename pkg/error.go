package pkg

// Sentinel errors shared by the record sources and the command line.
// These errors can be tested using errors.Is for reliable error checking.

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Error represents a chain of errors.
type Error []error

// ErrNotFound is returned when a record, relation or setting does not exist
// in a record source.
//
// This error should be wrapped with the identity of the missing item.
var ErrNotFound = MakeErrorf("not found")

// ErrUnsupported is returned when a record source cannot perform a requested
// operation, such as invoking an action on a SQL database.
var ErrUnsupported = MakeErrorf("operation not supported")

// ErrInvalidRef is returned when a record reference cannot be parsed.
//
// This error should be wrapped with the offending text.
var ErrInvalidRef = MakeErrorf("invalid record reference")

// ErrInvalidQuery is returned when a query string cannot be parsed.
//
// This error should be wrapped with the offending text.
var ErrInvalidQuery = MakeErrorf("invalid query")

// ErrFixture is returned when a fixture document cannot be decoded.
//
// This error should be wrapped with the underlying decoding error
// to preserve the error chain.
var ErrFixture = MakeErrorf("invalid fixture")

// ErrDriver is returned when a SQL driver name is not recognized.
var ErrDriver = MakeErrorf("unsupported SQL driver")

// ErrReadInput is returned when reading input fails.
//
// This error should be wrapped with the underlying I/O error
// to preserve the error chain.
var ErrReadInput = MakeErrorf("failed to read input")

// MakeError constructs an Error from the given errors.
// The errors are stored in the order they are provided:
// the first argument is the innermost error in the chain.
// Nil is returned if no errors are provided.
func MakeError(errs ...error) Error {
	var e Error

	for _, err := range errs {
		if err != nil {
			e = append(e, UnwrapErrors(err)...)
		}
	}

	return e
}

// MakeErrorf constructs an Error from a formatted error message.
func MakeErrorf(format string, args ...any) Error {
	return MakeError(fmt.Errorf(format, args...))
}

// Error returns a concatenated string representation of all errors
// in the error chain, separated by ": ", from innermost to outermost.
func (e Error) Error() string {
	var sb strings.Builder

	for i, err := range slices.All(e) {
		if i > 0 {
			sb.WriteString(": ")
		}

		sb.WriteString(err.Error())
	}

	return sb.String()
}

// Is reports whether the innermost error of target appears in the chain.
// Error slices are not comparable, so errors.Is relies on this method to
// match sentinels created with [MakeErrorf].
func (e Error) Is(target error) bool {
	var t Error
	if !errors.As(target, &t) || len(t) == 0 {
		return false
	}

	return slices.Contains(e, t[0])
}

// Wrap appends one or more errors to the receiver and returns the result.
func (e Error) Wrap(err ...error) Error {
	return append(slices.Clip(e), err...)
}

// Wrapf appends a formatted error to the receiver and returns the result.
func (e Error) Wrapf(format string, args ...any) Error {
	return append(slices.Clip(e), fmt.Errorf(format, args...))
}

// Unwrap returns the slice of errors contained in the receiver.
func (e Error) Unwrap() []error {
	return e
}

// UnwrapErrors recursively unwraps an error chain and returns a slice
// containing all errors in the chain, starting from the innermost error.
func UnwrapErrors(err error) Error {
	if err == nil {
		return nil
	}

	chain := Error{}

	if e, ok := err.(interface{ Unwrap() []error }); ok {
		for _, wrapped := range e.Unwrap() {
			chain = append(chain, UnwrapErrors(wrapped)...)
		}
	} else if e, ok := err.(interface{ Unwrap() error }); ok {
		chain = append(chain, UnwrapErrors(e.Unwrap())...)
	}

	return append(chain, err)
}
