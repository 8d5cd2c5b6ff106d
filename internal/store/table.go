package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/roach88/btrtrace/internal/engine"
)

// tableNamePattern restricts table names to plain identifiers so they can be
// interpolated into DDL safely.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var _ engine.Engine = (*Store)(nil)

func validateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("%q: %w", name, engine.ErrInvalidTable)
	}
	return nil
}

// quoteIdent returns name as a quoted SQL identifier. Callers validate name
// first, so it never contains a quote.
func quoteIdent(name string) string {
	return `"` + name + `"`
}

// CreateTable creates a table clustered on a single int64 key column.
// Returns engine.ErrTableExists if the table is already present.
func (s *Store) CreateTable(ctx context.Context, name string) error {
	if err := validateTableName(name); err != nil {
		return engine.NewOpError("create table", name, err)
	}

	exists, err := tableExists(ctx, s.db, name)
	if err != nil {
		return engine.NewOpError("create table", name, err)
	}
	if exists {
		return engine.NewOpError("create table", name, engine.ErrTableExists)
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE %s (c1 INTEGER NOT NULL PRIMARY KEY) WITHOUT ROWID`,
		quoteIdent(name),
	))
	if err != nil {
		return engine.NewOpError("create table", name, err)
	}
	return nil
}

// DropTable removes a table and all its rows.
// Returns engine.ErrTableNotFound if the table does not exist.
func (s *Store) DropTable(ctx context.Context, name string) error {
	if err := validateTableName(name); err != nil {
		return engine.NewOpError("drop table", name, err)
	}

	exists, err := tableExists(ctx, s.db, name)
	if err != nil {
		return engine.NewOpError("drop table", name, err)
	}
	if !exists {
		return engine.NewOpError("drop table", name, engine.ErrTableNotFound)
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE %s`, quoteIdent(name))); err != nil {
		return engine.NewOpError("drop table", name, err)
	}
	return nil
}

// Begin starts a transaction. The Store has a single connection, so no other
// Store method may be called until the transaction commits or rolls back.
func (s *Store) Begin(ctx context.Context) (engine.Txn, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func tableExists(ctx context.Context, q queryer, name string) (bool, error) {
	var found string
	err := q.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`,
		name,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup table: %w", err)
	}
	return true, nil
}
