// Package engine defines the storage engine capabilities a workload drives.
//
// The workload never constructs or inspects an engine; it receives an Engine
// and talks to it only through transactions and cursors:
//
//	eng.CreateTable(ctx, "trace_t")
//	txn, _ := eng.Begin(ctx)
//	cur, _ := txn.OpenCursor(ctx, "trace_t")
//	cur.Lock(engine.LockIX)
//	cur.Insert(ctx, 42)
//	exact, err := cur.MoveTo(ctx, 42) // closest match, key >= 42
//	cur.DeleteRow(ctx)
//	cur.Close()
//	txn.Commit()
//
// Rows are single int64 keys kept in ascending order by a clustered index.
// Cursor positioning follows "at least" semantics: MoveTo lands on the
// smallest key >= the search key and reports whether it matched exactly.
//
// # Error identity
//
// Two sentinel errors mean "no more rows": ErrEndOfIndex (ran past the last
// key) and ErrRecordNotFound (cursor not on a live row). Scanners must treat
// them alike; use IsNoMoreRows rather than comparing either directly.
//
// Implementations: store.Store (SQLite) and testutil.MemEngine (tests).
package engine
