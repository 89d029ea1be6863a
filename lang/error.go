package lang

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

// ErrorKind classifies an [Error].
type ErrorKind int

const (
	KindFormat      ErrorKind = iota + 1 // format
	KindLookup                           // lookup
	KindUnsupported                      // unsupported
	KindExternal                         // external
)

func (k ErrorKind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindLookup:
		return "lookup"
	case KindUnsupported:
		return "unsupported"
	case KindExternal:
		return "external"
	default:
		return "ErrorKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Predefined errors (sentinel values).
//
// The first group matches any error of the same kind with [errors.Is].
var (
	ErrFormat      = newKindError(KindFormat, "format error")
	ErrLookup      = newKindError(KindLookup, "lookup error")
	ErrUnsupported = newKindError(KindUnsupported, "unsupported value")
	ErrExternal    = newKindError(KindExternal, "data source error")
)

var (
	ErrClosure        = NewError(KindFormat, "keyword closure mismatch")
	ErrKeyMissing     = NewError(KindFormat, "keyword identifier is missing")
	ErrPosition       = NewError(KindFormat, "invalid position")
	ErrUnterminated   = NewError(KindFormat, "unterminated token")
	ErrUnbalanced     = NewError(KindFormat, "unbalanced parenthesis")
	ErrOperand        = NewError(KindFormat, "invalid operand types")
	ErrMissingOperand = NewError(KindFormat, "operator missing an operand")
	ErrTernary        = NewError(KindFormat, "ternary operation failed")
	ErrDuration       = NewError(KindFormat, "invalid duration")
	ErrUnknownKey     = NewError(KindLookup, "unknown key")
)

// Error is the result type of every failed tokenize or evaluation step.
// It carries a kind, the diagnostic location snippet of the token that failed,
// an optional wrapped cause, and attributes for structured logging.
type Error struct {
	kind     ErrorKind
	msg      string
	location string
	err      error
	attrs    []slog.Attr
	root     *Error
	generic  bool
}

// NewError creates a new Error of the given kind with a message.
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func newKindError(kind ErrorKind, msg string) *Error {
	return &Error{kind: kind, msg: msg, generic: true}
}

// WrapError returns err as an *Error. Errors that are not already an *Error
// (anywhere in their chain) become [KindExternal] errors.
func WrapError(err error) *Error {
	if err == nil {
		return nil
	}

	var ee *Error
	if errors.As(err, &ee) {
		return ee
	}

	return ErrExternal.Wrap(err)
}

// Kind returns the error classification.
func (e *Error) Kind() ErrorKind { return e.kind }

// Location returns the diagnostic snippet attached with [Error.At].
func (e *Error) Location() string { return e.location }

// Error implements the error interface.
func (e *Error) Error() string {
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	msg := strings.Join(part, ": ")
	if e.location != "" {
		msg += " at " + strconv.Quote(e.location)
	}

	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is the sentinel this error derives from, or a
// kind-wide sentinel such as [ErrFormat] of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	if t.generic {
		return t.kind == e.kind
	}

	return t.base() == e.base()
}

// LogValue implements slog.LogValuer.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+4)

	attrs = append(attrs, slog.String("kind", e.kind.String()))

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	if e.location != "" {
		attrs = append(attrs, slog.String("location", e.location))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	c := e.derive()
	c.err = err

	return c
}

// At returns a copy of the error carrying the given location snippet.
// An existing location is kept so the innermost token wins.
func (e *Error) At(location string) *Error {
	c := e.derive()
	if c.location == "" {
		c.location = location
	}

	return c
}

// Detail returns a copy of the error with detail appended to its message.
func (e *Error) Detail(detail string) *Error {
	c := e.derive()
	if c.msg == "" {
		c.msg = detail
	} else {
		c.msg += " (" + detail + ")"
	}

	return c
}

// With adds attributes to the error for structured logging.
func (e *Error) With(attrs ...slog.Attr) *Error {
	c := e.derive()
	c.attrs = make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(c.attrs, e.attrs)
	copy(c.attrs[len(e.attrs):], attrs)

	return c
}

func (e *Error) derive() *Error {
	c := *e
	c.root = e.base()
	c.generic = false

	return &c
}

func (e *Error) base() *Error {
	if e.root != nil {
		return e.root
	}

	return e
}
