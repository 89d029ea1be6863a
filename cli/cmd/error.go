package cmd

import (
	"log/slog"
	"strings"
)

// Error is a command failure carrying attributes for structured logging.
// Errors are immutable; [Error.Wrap] and [Error.With] return copies.
type Error struct {
	msg   string
	err   error
	attrs []slog.Attr
}

// NewError returns an Error with the given message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// Error renders "msg: cause", omitting whichever part is unset.
func (e *Error) Error() string {
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

func (e *Error) Unwrap() error { return e.err }

// Is matches errors created from the same message, so a wrapped or
// annotated copy still matches its sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && t.msg == e.msg && t.err == nil
}

// LogValue implements slog.LogValuer.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.Any("cause", e.err))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap returns a copy of e caused by err.
func (e *Error) Wrap(err error) *Error {
	return &Error{msg: e.msg, err: err, attrs: e.attrs}
}

// With returns a copy of e with attrs appended.
func (e *Error) With(attrs ...slog.Attr) *Error {
	return &Error{
		msg:   e.msg,
		err:   e.err,
		attrs: append(append(make([]slog.Attr, 0, len(e.attrs)+len(attrs)), e.attrs...), attrs...),
	}
}

var (
	ErrNoTemplate  = NewError("no template given (pass files, '-' or --inline)")
	ErrReadInput   = NewError("read template")
	ErrOpenSource  = NewError("open record source")
	ErrEvaluate    = NewError("evaluate template")
	ErrWatchStdin  = NewError("cannot watch stdin")
	ErrImport      = NewError("import fixtures")
	ErrWriteConfig = NewError("write configuration file")
	ErrFileExists  = NewError("file exists (use --force to overwrite)")
)
