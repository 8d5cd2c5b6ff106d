package harness

import "strings"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: the run verified and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace holds every emitted text line, the final line included.
	Trace []string `json:"trace"`

	// Final is the scanned key set, ascending. Nil if the run failed before
	// verification.
	Final []int64 `json:"final"`

	// Expected is the oracle's key set, ascending.
	Expected []int64 `json:"expected"`

	// Digest is the trace digest.
	Digest string `json:"digest"`

	// Errors contains run and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []string{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Text returns the trace as newline-terminated text, the form golden files
// store.
func (r *Result) Text() string {
	if len(r.Trace) == 0 {
		return ""
	}
	return strings.Join(r.Trace, "\n") + "\n"
}
