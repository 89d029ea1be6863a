package repl

import "errors"

// Sentinel errors.
var (
	ErrOutOfBounds     = errors.New("index out of range")
	ErrNoEngine        = errors.New("session has no engine")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrInvalidArgument = errors.New("invalid argument")
)
