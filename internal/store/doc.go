// Package store provides the SQLite-backed storage engine driven by
// workloads, plus a ledger of completed runs.
//
// Store implements engine.Engine. Each trace table is a WITHOUT ROWID table
// whose single INTEGER PRIMARY KEY column is the clustered index, so rows are
// physically ordered by key and cursor positioning maps onto ordered range
// queries:
//
//   - MoveTo(k): SELECT c1 ... WHERE c1 >= k ORDER BY c1 LIMIT 1
//   - Next:      SELECT c1 ... WHERE c1 > current ORDER BY c1 LIMIT 1
//
// # Critical Patterns
//
// Logical ordering: the runs ledger is ordered by its seq column, never by
// timestamps, so listings are identical across replays.
//
// Unsigned seeds: SQLite integers are signed 64-bit. Seeds are stored
// bit-cast to int64 and converted back on read.
//
// # Database Configuration
//
// Settings are passed as go-sqlite3 DSN parameters so every connection gets
// them:
//
//   - busy_timeout=5000
//   - file databases only: WAL journal, synchronous=NORMAL
//   - a single pooled connection, so ":memory:" databases survive between
//     transactions
//
// PRAGMA user_version records the schema version. Open rejects databases
// with a newer version than this package knows.
package store
