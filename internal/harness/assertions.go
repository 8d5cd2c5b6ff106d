package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/btrtrace/internal/trace"
)

// AssertionError is returned when an assertion fails.
// It includes the full trace to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Trace    []string // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, line := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", i, line)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns one
// message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertFinalCount:
		return assertFinalCount(result, a)
	case AssertFinalContains:
		return assertFinalContains(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTraceContains checks that the exact line appears in the trace.
func assertTraceContains(lines []string, a Assertion) error {
	if slices.Contains(lines, a.Line) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("line %q", a.Line),
		Actual:   "not found in trace",
		Trace:    lines,
	}
}

// assertTraceCount checks that records of a kind appear exactly Count times.
func assertTraceCount(lines []string, a Assertion) error {
	kind, err := trace.ParseKind(a.Kind)
	if err != nil {
		return err
	}
	want := 0
	if a.Count != nil {
		want = *a.Count
	}

	count := 0
	for _, line := range lines {
		rec, err := trace.ParseLine(line)
		if err != nil {
			return fmt.Errorf("malformed trace line: %w", err)
		}
		if rec.Kind == kind {
			count++
		}
	}

	if count != want {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s records", want, kind),
			Actual:   fmt.Sprintf("%d %s records", count, kind),
			Trace:    lines,
		}
	}
	return nil
}

// assertFinalCount checks the size of the scanned key set.
func assertFinalCount(result *Result, a Assertion) error {
	if result.Final == nil {
		return errNoFinal(result)
	}
	want := 0
	if a.Count != nil {
		want = *a.Count
	}
	if len(result.Final) != want {
		return &AssertionError{
			Type:     AssertFinalCount,
			Expected: fmt.Sprintf("%d keys", want),
			Actual:   fmt.Sprintf("%d keys %v", len(result.Final), result.Final),
		}
	}
	return nil
}

// assertFinalContains checks that a key survived to the final scan.
func assertFinalContains(result *Result, a Assertion) error {
	if result.Final == nil {
		return errNoFinal(result)
	}
	if _, found := slices.BinarySearch(result.Final, a.Key); !found {
		return &AssertionError{
			Type:     AssertFinalContains,
			Expected: fmt.Sprintf("key %d in final set", a.Key),
			Actual:   fmt.Sprintf("final set %v", result.Final),
		}
	}
	return nil
}

func errNoFinal(result *Result) error {
	return &AssertionError{
		Type:     "final",
		Expected: "a final record",
		Actual:   "run stopped before verification",
		Trace:    result.Trace,
	}
}
