package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/btrtrace/internal/store"
	"github.com/roach88/btrtrace/internal/workload"
)

const coffeeShort = "I 549\nD 549\nI 403\nD 403\nI 13\nfinal 1 13\n"

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCommand()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestTrace_DefaultGolden(t *testing.T) {
	stdout, stderr, err := execute(t)
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "default", []byte(stdout))

	// The run header goes to the log, never to stdout.
	assert.Contains(t, stderr, "workload starting")
	assert.Contains(t, stderr, "seed=0xc0ffee")
	assert.Contains(t, stderr, "ops=60")
}

func TestTrace_CoffeeShort(t *testing.T) {
	stdout, _, err := execute(t, "--ops", "5")
	require.NoError(t, err)
	assert.Equal(t, coffeeShort, stdout)
}

func TestTrace_SeedNotations(t *testing.T) {
	for _, seed := range []string{"0xC0FFEE", "12648430", "0o60177756", "0b110000001111111111101110"} {
		t.Run(seed, func(t *testing.T) {
			stdout, _, err := execute(t, "--seed="+seed, "--ops=5")
			require.NoError(t, err)
			assert.Equal(t, coffeeShort, stdout)
		})
	}
}

func TestTrace_ZeroOps(t *testing.T) {
	stdout, _, err := execute(t, "--ops", "0")
	require.NoError(t, err)
	assert.Equal(t, "final 0\n", stdout)
}

func TestTrace_JSONFormat(t *testing.T) {
	stdout, _, err := execute(t, "--ops", "5", "--format", "json")
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "coffee_short_json", []byte(stdout))
}

func TestTrace_DifferentSeedsDiffer(t *testing.T) {
	a, _, err := execute(t, "--seed", "1", "--ops", "20")
	require.NoError(t, err)
	b, _, err := execute(t, "--seed", "2", "--ops", "20")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "S 388 0")
	assert.True(t, strings.HasSuffix(a, "final 1 594\n"))
}

func TestTrace_OutFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "trace.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(out), 0o755))

	stdout, _, err := execute(t, "--ops", "5", "--format", "json", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"kind":"insert"`)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, coffeeShort, string(data), "the file always holds the text trace")
}

func TestTrace_LedgerRecordsFileRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	_, _, err := execute(t, "--db", dbPath, "--ops", "5")
	require.NoError(t, err)
	_, _, err = execute(t, "--db", dbPath, "--ops", "5")
	require.NoError(t, err, "the trace table is dropped after a verified run")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, r := range runs {
		assert.Equal(t, uint64(0xC0FFEE), r.Seed)
		assert.Equal(t, uint64(5), r.Ops)
		assert.Equal(t, uint64(3), r.Inserts)
		assert.Equal(t, uint64(2), r.Deletes)
		assert.Equal(t, 1, r.FinalCount)
		assert.True(t, r.Verified)
		assert.Len(t, r.Digest, 64)
	}
	assert.Equal(t, runs[0].Digest, runs[1].Digest)
	assert.NotEqual(t, runs[0].RunID, runs[1].RunID)
}

func TestTrace_EnvironmentAndConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "btrtrace.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("ops: 0\n"), 0o644))

	stdout, _, err := execute(t, "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "final 0\n", stdout)

	t.Setenv("BTRTRACE_OPS", "5")
	stdout, _, err = execute(t, "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, coffeeShort, stdout)

	stdout, _, err = execute(t, "--config", cfg, "--ops", "0")
	require.NoError(t, err)
	assert.Equal(t, "final 0\n", stdout)
}

func TestTrace_CommandErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name      string
		args      []string
		wantCode  int
		wantMsg   string
		wantUsage bool
	}{
		{"unknown flag", []string{"--bogus"}, ExitFailure, "unknown flag: --bogus", true},
		{"stray argument", []string{"extra"}, ExitFailure, "unknown command", true},
		{"bad seed", []string{"--seed", "xyz"}, ExitFailure, "invalid unsigned integer", false},
		{"bad format", []string{"--format", "xml"}, ExitFailure, "invalid format", false},
		{"missing config", []string{"--config", filepath.Join(dir, "none.yaml")}, ExitCommandError, "failed to load configuration", false},
		{"max key zero", []string{"--max-key", "0"}, ExitCommandError, "max-key must be at least 1", false},
		{"max key too large", []string{"--ops", "3", "--max-key", "9223372036854775807"}, ExitCommandError, "key domain too large", false},
		{"unopenable database", []string{"--db", filepath.Join(dir, "missing", "x.db")}, ExitCommandError, "failed to open database", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
			if tt.wantUsage {
				assert.Contains(t, err.Error(), "Usage:")
			}
			assert.Empty(t, stdout)
		})
	}
}

func TestTrace_FlagErrorIncludesUsage(t *testing.T) {
	_, _, err := execute(t, "--ops")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Usage:")
}

func TestTrace_Help(t *testing.T) {
	stdout, _, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Usage:")
	assert.Contains(t, stdout, "--seed")
	assert.Contains(t, stdout, "--check-search")
}

func TestRunFailure(t *testing.T) {
	mismatch := runFailure(&workload.MismatchError{Extra: []int64{3}})
	assert.Equal(t, ExitFailure, GetExitCode(mismatch))
	assert.Contains(t, mismatch.Error(), "verification failed")

	fatal := runFailure(&workload.RunError{Code: workload.CodeInsertFailed, Err: errors.New("disk full")})
	assert.Equal(t, ExitFailure, GetExitCode(fatal))
	assert.Contains(t, fatal.Error(), "engine failure")
	assert.Contains(t, fatal.Error(), "INSERT_FAILED")

	other := runFailure(context.Canceled)
	assert.Equal(t, ExitFailure, GetExitCode(other))
	assert.Contains(t, other.Error(), "run failed")
}

func TestIsFileDatabase(t *testing.T) {
	assert.False(t, isFileDatabase(""))
	assert.False(t, isFileDatabase(":memory:"))
	assert.False(t, isFileDatabase("file::memory:?cache=shared"))
	assert.False(t, isFileDatabase("file:trace?mode=memory"))
	assert.True(t, isFileDatabase("runs.db"))
	assert.True(t, isFileDatabase("/tmp/runs.db"))
}

func TestRunRecord(t *testing.T) {
	res := &workload.Result{
		RunID:    "r1",
		Seed:     7,
		Ops:      9,
		MaxKey:   100,
		Stats:    workload.Stats{Inserts: 4, Deletes: 2, Searches: 2, Abandoned: 1},
		Scanned:  []int64{3, 8},
		Digest:   "abc",
		Verified: true,
	}

	assert.Equal(t, store.RunRecord{
		RunID:      "r1",
		Seed:       7,
		Ops:        9,
		MaxKey:     100,
		Inserts:    4,
		Deletes:    2,
		Searches:   2,
		Abandoned:  1,
		FinalCount: 2,
		Digest:     "abc",
		Verified:   true,
	}, runRecord(res))
}
