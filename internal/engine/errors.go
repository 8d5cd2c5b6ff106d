package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by all engine implementations.
var (
	// ErrEndOfIndex means the cursor moved past the last key.
	ErrEndOfIndex = errors.New("end of index")

	// ErrRecordNotFound means the cursor is not on a live row.
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateKey means an insert collided with an existing key.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrTableExists means CreateTable found the table already present.
	ErrTableExists = errors.New("table already exists")

	// ErrTableNotFound means the named table does not exist.
	ErrTableNotFound = errors.New("table not found")

	// ErrInvalidTable means the table name is not a plain identifier.
	ErrInvalidTable = errors.New("invalid table name")

	// ErrLockMode means the cursor's lock does not permit the operation.
	ErrLockMode = errors.New("operation not permitted by cursor lock mode")

	// ErrCursorClosed means the cursor was used after Close.
	ErrCursorClosed = errors.New("cursor closed")
)

// IsNoMoreRows reports whether err signals that a scan is exhausted.
// ErrEndOfIndex and ErrRecordNotFound are treated as equivalent.
// Uses errors.Is to handle wrapped errors.
func IsNoMoreRows(err error) bool {
	return errors.Is(err, ErrEndOfIndex) || errors.Is(err, ErrRecordNotFound)
}

// OpError records the engine operation and key that failed.
type OpError struct {
	// Op names the capability, e.g. "insert", "moveto", "next".
	Op string

	// Table is the table the cursor was opened on.
	Table string

	// Key is the key involved, if any.
	Key int64

	// HasKey reports whether Key is meaningful.
	HasKey bool

	Err error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.HasKey {
		return fmt.Sprintf("%s %s key %d: %v", e.Op, e.Table, e.Key, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error {
	return e.Err
}

// NewOpError wraps err for op on table without a key.
func NewOpError(op, table string, err error) *OpError {
	return &OpError{Op: op, Table: table, Err: err}
}

// NewKeyError wraps err for op on table at key.
func NewKeyError(op, table string, key int64, err error) *OpError {
	return &OpError{Op: op, Table: table, Key: key, HasKey: true, Err: err}
}
