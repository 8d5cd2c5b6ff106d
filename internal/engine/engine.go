package engine

import "context"

// LockMode is the intention lock a cursor takes on its table.
type LockMode int

const (
	// LockIS is an intention-shared lock. Cursors holding it may only read.
	LockIS LockMode = iota + 1

	// LockIX is an intention-exclusive lock. Cursors holding it may mutate.
	LockIX
)

// String returns the conventional name of the lock mode.
func (m LockMode) String() string {
	switch m {
	case LockIS:
		return "IS"
	case LockIX:
		return "IX"
	default:
		return "none"
	}
}

// Engine is a key-value storage engine exposing tables of int64 keys.
type Engine interface {
	// CreateTable creates a table clustered on its key.
	// Returns ErrTableExists if the table is already present.
	CreateTable(ctx context.Context, name string) error

	// DropTable removes a table and all its rows.
	DropTable(ctx context.Context, name string) error

	// Begin starts a transaction.
	Begin(ctx context.Context) (Txn, error)
}

// Txn is an open engine transaction.
type Txn interface {
	// OpenCursor opens an unpositioned cursor over table.
	OpenCursor(ctx context.Context, table string) (Cursor, error)

	// Commit makes all cursor mutations durable. Open cursors must be closed
	// first.
	Commit() error

	// Rollback discards the transaction. Safe to call after Commit.
	Rollback() error
}

// Cursor is a positioned handle over a table within a transaction.
type Cursor interface {
	// Lock sets the cursor's lock mode. Mutations require LockIX.
	Lock(mode LockMode) error

	// Insert adds key. Returns ErrDuplicateKey if it already exists.
	Insert(ctx context.Context, key int64) error

	// MoveTo positions the cursor on the smallest key >= key and reports
	// whether that key equals key. Returns ErrEndOfIndex when no such key
	// exists; the cursor is then unpositioned.
	MoveTo(ctx context.Context, key int64) (exact bool, err error)

	// First positions the cursor on the smallest key.
	// Returns ErrEndOfIndex for an empty table.
	First(ctx context.Context) error

	// Next advances to the following key. Returns ErrEndOfIndex past the end.
	Next(ctx context.Context) error

	// ReadRow returns the key under the cursor. Returns ErrRecordNotFound
	// when the cursor is not on a live row.
	ReadRow(ctx context.Context) (int64, error)

	// DeleteRow deletes the row under the cursor. The cursor stays at the
	// deleted position, so Next continues with the following key.
	DeleteRow(ctx context.Context) error

	// Close releases the cursor. Further calls return ErrCursorClosed.
	Close() error
}
