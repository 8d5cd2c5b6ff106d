package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/btrtrace/internal/engine"
)

// Tx is an open SQLite transaction.
type Tx struct {
	tx   *sql.Tx
	done bool
}

// OpenCursor opens an unpositioned cursor over table.
func (t *Tx) OpenCursor(ctx context.Context, table string) (engine.Cursor, error) {
	if err := validateTableName(table); err != nil {
		return nil, engine.NewOpError("open cursor", table, err)
	}
	exists, err := tableExists(ctx, t.tx, table)
	if err != nil {
		return nil, engine.NewOpError("open cursor", table, err)
	}
	if !exists {
		return nil, engine.NewOpError("open cursor", table, engine.ErrTableNotFound)
	}

	quoted := quoteIdent(table)
	return &Cursor{
		tx:        t.tx,
		table:     table,
		sqlInsert: fmt.Sprintf(`INSERT INTO %s (c1) VALUES (?)`, quoted),
		sqlSeekGE: fmt.Sprintf(`SELECT c1 FROM %s WHERE c1 >= ? ORDER BY c1 LIMIT 1`, quoted),
		sqlSeekGT: fmt.Sprintf(`SELECT c1 FROM %s WHERE c1 > ? ORDER BY c1 LIMIT 1`, quoted),
		sqlFirst:  fmt.Sprintf(`SELECT c1 FROM %s ORDER BY c1 LIMIT 1`, quoted),
		sqlRead:   fmt.Sprintf(`SELECT c1 FROM %s WHERE c1 = ?`, quoted),
		sqlDelete: fmt.Sprintf(`DELETE FROM %s WHERE c1 = ?`, quoted),
	}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	t.done = true
	return nil
}

// Rollback aborts the transaction. No-op after Commit.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// Cursor is a positioned handle over a clustered table.
//
// The position is the key the cursor last landed on. After DeleteRow the
// position is kept, so ReadRow reports ErrRecordNotFound and Next continues
// with the following key.
type Cursor struct {
	tx     *sql.Tx
	table  string
	mode   engine.LockMode
	closed bool

	positioned bool
	current    int64

	sqlInsert string
	sqlSeekGE string
	sqlSeekGT string
	sqlFirst  string
	sqlRead   string
	sqlDelete string
}

// Lock sets the cursor's lock mode.
func (c *Cursor) Lock(mode engine.LockMode) error {
	if c.closed {
		return engine.NewOpError("lock", c.table, engine.ErrCursorClosed)
	}
	if mode != engine.LockIS && mode != engine.LockIX {
		return engine.NewOpError("lock", c.table, fmt.Errorf("unknown lock mode %d: %w", mode, engine.ErrLockMode))
	}
	c.mode = mode
	return nil
}

func (c *Cursor) checkWritable(op string) error {
	if c.closed {
		return engine.NewOpError(op, c.table, engine.ErrCursorClosed)
	}
	if c.mode == engine.LockIS {
		return engine.NewOpError(op, c.table, engine.ErrLockMode)
	}
	return nil
}

// Insert adds key to the table.
func (c *Cursor) Insert(ctx context.Context, key int64) error {
	if err := c.checkWritable("insert"); err != nil {
		return err
	}
	if _, err := c.tx.ExecContext(ctx, c.sqlInsert, key); err != nil {
		if isPrimaryKeyViolation(err) {
			return engine.NewKeyError("insert", c.table, key, engine.ErrDuplicateKey)
		}
		return engine.NewKeyError("insert", c.table, key, err)
	}
	return nil
}

// MoveTo positions the cursor on the smallest key >= key.
func (c *Cursor) MoveTo(ctx context.Context, key int64) (bool, error) {
	if c.closed {
		return false, engine.NewKeyError("moveto", c.table, key, engine.ErrCursorClosed)
	}
	found, err := c.seek(ctx, c.sqlSeekGE, key)
	if err != nil {
		return false, engine.NewKeyError("moveto", c.table, key, err)
	}
	return found == key, nil
}

// First positions the cursor on the smallest key.
func (c *Cursor) First(ctx context.Context) error {
	if c.closed {
		return engine.NewOpError("first", c.table, engine.ErrCursorClosed)
	}
	if _, err := c.seek(ctx, c.sqlFirst); err != nil {
		return engine.NewOpError("first", c.table, err)
	}
	return nil
}

// Next advances to the key following the current position.
func (c *Cursor) Next(ctx context.Context) error {
	if c.closed {
		return engine.NewOpError("next", c.table, engine.ErrCursorClosed)
	}
	if !c.positioned {
		return engine.NewOpError("next", c.table, engine.ErrEndOfIndex)
	}
	if _, err := c.seek(ctx, c.sqlSeekGT, c.current); err != nil {
		return engine.NewKeyError("next", c.table, c.current, err)
	}
	return nil
}

// seek runs a single-row positioning query and moves the cursor to its
// result. sql.ErrNoRows unpositions the cursor and maps to ErrEndOfIndex.
func (c *Cursor) seek(ctx context.Context, query string, args ...any) (int64, error) {
	var key int64
	err := c.tx.QueryRowContext(ctx, query, args...).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		c.positioned = false
		return 0, engine.ErrEndOfIndex
	}
	if err != nil {
		return 0, err
	}
	c.positioned = true
	c.current = key
	return key, nil
}

// ReadRow returns the key under the cursor.
func (c *Cursor) ReadRow(ctx context.Context) (int64, error) {
	if c.closed {
		return 0, engine.NewOpError("read", c.table, engine.ErrCursorClosed)
	}
	if !c.positioned {
		return 0, engine.NewOpError("read", c.table, engine.ErrRecordNotFound)
	}
	var key int64
	err := c.tx.QueryRowContext(ctx, c.sqlRead, c.current).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, engine.NewKeyError("read", c.table, c.current, engine.ErrRecordNotFound)
	}
	if err != nil {
		return 0, engine.NewKeyError("read", c.table, c.current, err)
	}
	return key, nil
}

// DeleteRow deletes the row under the cursor.
func (c *Cursor) DeleteRow(ctx context.Context) error {
	if err := c.checkWritable("delete"); err != nil {
		return err
	}
	if !c.positioned {
		return engine.NewOpError("delete", c.table, engine.ErrRecordNotFound)
	}
	res, err := c.tx.ExecContext(ctx, c.sqlDelete, c.current)
	if err != nil {
		return engine.NewKeyError("delete", c.table, c.current, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return engine.NewKeyError("delete", c.table, c.current, fmt.Errorf("rows affected: %w", err))
	}
	if n == 0 {
		return engine.NewKeyError("delete", c.table, c.current, engine.ErrRecordNotFound)
	}
	return nil
}

// Close releases the cursor. Closing twice is a no-op.
func (c *Cursor) Close() error {
	c.closed = true
	c.positioned = false
	return nil
}

// isPrimaryKeyViolation reports whether err is SQLite's primary-key
// constraint failure.
func isPrimaryKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrConstraint &&
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
