package db

import "errors"

// ErrKeyNotFound signals that a key or slot holds no value.
var ErrKeyNotFound = errors.New("db: key not found")

// Op names used for error context.
const (
	OpGet   = "GET"
	OpSet   = "SET"
	OpDel   = "DEL"
	OpRead  = "READ"
	OpWrite = "WRITE"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
