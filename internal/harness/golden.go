package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/natefinch/atomic"
	"github.com/sebdah/goldie/v2"
)

// GoldenDir is the directory, next to scenario files, that holds their
// golden traces.
const GoldenDir = "golden"

// GoldenSuffix is the golden file extension.
const GoldenSuffix = ".golden"

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	if !result.Pass {
		return fmt.Errorf("scenario %s failed: %s", scenario.Name, strings.Join(result.Errors, "; "))
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(GoldenSuffix),
	)
	g.Assert(t, scenarioName, []byte(result.Text()))

	return nil
}

// GoldenPath returns the golden file for a scenario loaded from disk:
// <scenario dir>/golden/<name>.golden.
func GoldenPath(s *Scenario) string {
	return filepath.Join(filepath.Dir(s.Path), GoldenDir, s.Name+GoldenSuffix)
}

// ErrNoGolden is returned by CompareGolden when the golden file is absent.
var ErrNoGolden = errors.New("golden file not found")

// CompareGolden compares result's trace with the file at path. It returns
// an empty diff on a match and a line diff (-golden +actual) otherwise.
func CompareGolden(path string, result *Result) (string, error) {
	want, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", path, ErrNoGolden)
	}
	if err != nil {
		return "", fmt.Errorf("read golden: %w", err)
	}

	got := []byte(result.Text())
	if bytes.Equal(want, got) {
		return "", nil
	}
	return cmp.Diff(splitLines(string(want)), splitLines(string(got))), nil
}

// UpdateGolden atomically writes result's trace to path, creating the
// golden directory if needed.
func UpdateGolden(path string, result *Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create golden dir: %w", err)
	}
	if err := atomic.WriteFile(path, strings.NewReader(result.Text())); err != nil {
		return fmt.Errorf("write golden: %w", err)
	}
	return nil
}

func splitLines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
