package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is recorded in PRAGMA user_version. Open refuses a database
// written with a higher version.
const schemaVersion = 1

// busyTimeoutMillis is how long a statement waits on a locked database file.
const busyTimeoutMillis = 5000

// ErrSchemaVersion is returned by Open for a database with a newer schema.
var ErrSchemaVersion = errors.New("unsupported schema version")

// Store is a SQLite-backed storage engine.
type Store struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at path and applies the schema.
//
// ":memory:" (or a memory URI) opens a private database that lives as long
// as the Store. Memory databases keep SQLite's default journal; file
// databases use WAL with synchronous=NORMAL.
func Open(path string) (*Store, error) {
	memory := IsMemoryPath(path)

	db, err := sql.Open("sqlite3", dataSourceName(path, memory))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// One connection: SQLite has a single writer, and a memory database
	// is private to the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", path, err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// IsMemoryPath reports whether path names an in-memory database rather
// than a file.
func IsMemoryPath(path string) bool {
	switch {
	case path == "", path == ":memory:":
		return true
	case strings.HasPrefix(path, "file::memory:"), strings.Contains(path, "mode=memory"):
		return true
	default:
		return false
	}
}

// dataSourceName appends go-sqlite3 connection parameters to path.
func dataSourceName(path string, memory bool) string {
	params := url.Values{}
	params.Set("_busy_timeout", fmt.Sprint(busyTimeoutMillis))
	if !memory {
		params.Set("_journal_mode", "WAL")
		params.Set("_synchronous", "NORMAL")
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + params.Encode()
}

func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("%w: database has version %d, newest known is %d",
			ErrSchemaVersion, version, schemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	if version < schemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	}
	return nil
}
