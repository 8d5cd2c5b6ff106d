package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	var count int
	if err := s2.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count); err != nil {
		t.Errorf("query failed: %v", err)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	var name string
	err = s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name=?",
		"idx_runs_workload",
	).Scan(&name)
	if err != nil {
		t.Errorf("index not found after idempotent opens: %v", err)
	}
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.CreateTable(ctx, "mem_t"); err != nil {
		t.Fatalf("CreateTable() failed: %v", err)
	}

	// The single pooled connection must keep the in-memory database alive
	// between independent statements.
	exists, err := tableExists(ctx, s.db, "mem_t")
	if err != nil {
		t.Fatalf("tableExists() failed: %v", err)
	}
	if !exists {
		t.Error("in-memory table vanished between statements")
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	file := createTestStore(t)
	mem, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer mem.Close()

	tests := []struct {
		name     string
		store    *Store
		pragma   string
		expected string
	}{
		{"file journal", file, "journal_mode", "wal"},
		{"file synchronous", file, "synchronous", "1"},
		{"file busy timeout", file, "busy_timeout", "5000"},
		{"memory journal", mem, "journal_mode", "memory"},
		{"memory busy timeout", mem, "busy_timeout", "5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pragma(t, tt.store, tt.pragma); got != tt.expected {
				t.Errorf("%s = %q, want %q", tt.pragma, got, tt.expected)
			}
		})
	}
}

func TestSchemaVersion(t *testing.T) {
	s := createTestStore(t)

	if got := pragma(t, s, "user_version"); got != fmt.Sprint(schemaVersion) {
		t.Errorf("user_version = %s, want %d", got, schemaVersion)
	}
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion+1)); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	s.Close()

	_, err = Open(path)
	if !errors.Is(err, ErrSchemaVersion) {
		t.Fatalf("Open() error = %v, want ErrSchemaVersion", err)
	}
}

func TestIsMemoryPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"", true},
		{":memory:", true},
		{"file::memory:?cache=shared", true},
		{"file:trace?mode=memory", true},
		{"runs.db", false},
		{"/tmp/runs.db", false},
	}

	for _, tt := range tests {
		if got := IsMemoryPath(tt.path); got != tt.want {
			t.Errorf("IsMemoryPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestDataSourceName(t *testing.T) {
	tests := []struct {
		path   string
		memory bool
		want   string
	}{
		{"runs.db", false, "runs.db?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL"},
		{":memory:", true, ":memory:?_busy_timeout=5000"},
		{"file:trace?mode=memory", true, "file:trace?mode=memory&_busy_timeout=5000"},
	}

	for _, tt := range tests {
		if got := dataSourceName(tt.path, tt.memory); got != tt.want {
			t.Errorf("dataSourceName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
