package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/btrtrace/internal/engine"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// pragma reads a single PRAGMA value as text.
func pragma(t *testing.T, s *Store, name string) string {
	t.Helper()
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		t.Fatalf("PRAGMA %s failed: %v", name, err)
	}
	return value
}

// createTestTable creates table in s and returns a writable cursor inside a
// fresh transaction. The transaction is rolled back on cleanup unless the
// test commits it.
func createTestTable(t *testing.T, s *Store, table string) (engine.Txn, engine.Cursor) {
	t.Helper()
	ctx := context.Background()
	if err := s.CreateTable(ctx, table); err != nil {
		t.Fatalf("CreateTable(%q) failed: %v", table, err)
	}
	txn, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	t.Cleanup(func() { txn.Rollback() })

	cur, err := txn.OpenCursor(ctx, table)
	if err != nil {
		t.Fatalf("OpenCursor(%q) failed: %v", table, err)
	}
	if err := cur.Lock(engine.LockIX); err != nil {
		t.Fatalf("Lock(IX) failed: %v", err)
	}
	return txn, cur
}

// insertKeys inserts keys through cur, failing the test on any error.
func insertKeys(t *testing.T, cur engine.Cursor, keys ...int64) {
	t.Helper()
	for _, k := range keys {
		if err := cur.Insert(context.Background(), k); err != nil {
			t.Fatalf("Insert(%d) failed: %v", k, err)
		}
	}
}

// scanAll reads every key in ascending order through cur.
func scanAll(t *testing.T, cur engine.Cursor) []int64 {
	t.Helper()
	ctx := context.Background()
	var keys []int64
	err := cur.First(ctx)
	for err == nil {
		var k int64
		k, err = cur.ReadRow(ctx)
		if err != nil {
			break
		}
		keys = append(keys, k)
		err = cur.Next(ctx)
	}
	if !engine.IsNoMoreRows(err) {
		t.Fatalf("scan failed: %v", err)
	}
	return keys
}
