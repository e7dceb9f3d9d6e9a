package db

import "errors"

// Sentinel errors for storage operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
)

// Op names used for error context. Valkey ops are command names,
// Elasticsearch ops are API names.
const (
	OpPing = "PING"
	OpGet  = "GET"
	OpSet  = "SET"

	OpSearch      = "search"
	OpIndexExists = "indices.exists"
	OpIndexCreate = "indices.create"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
