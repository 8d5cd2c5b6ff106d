package workload

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes run failures.
type ErrorCode string

const (
	// CodeSchemaFailed indicates the trace table could not be created or dropped.
	CodeSchemaFailed ErrorCode = "SCHEMA_FAILED"

	// CodeBeginFailed indicates a transaction or cursor could not be opened.
	CodeBeginFailed ErrorCode = "BEGIN_FAILED"

	// CodeInsertFailed indicates the engine rejected an insert.
	CodeInsertFailed ErrorCode = "INSERT_FAILED"

	// CodeDeleteLookupFailed indicates the cursor did not land on the key to delete.
	CodeDeleteLookupFailed ErrorCode = "DELETE_LOOKUP_FAILED"

	// CodeDeleteFailed indicates the engine rejected a delete.
	CodeDeleteFailed ErrorCode = "DELETE_FAILED"

	// CodeSearchFailed indicates positioning failed with something other than
	// end of index.
	CodeSearchFailed ErrorCode = "SEARCH_FAILED"

	// CodeSearchMismatch indicates a search outcome disagreed with the oracle.
	CodeSearchMismatch ErrorCode = "SEARCH_MISMATCH"

	// CodeCommitFailed indicates the driver transaction failed to commit.
	CodeCommitFailed ErrorCode = "COMMIT_FAILED"

	// CodeScanFailed indicates the verification scan hit an engine error.
	CodeScanFailed ErrorCode = "SCAN_FAILED"
)

// RunError is a fatal failure at a specific step of a run.
type RunError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Step is the zero-based step index, or the op count for errors raised
	// outside the step loop.
	Step uint64

	// Key is the key involved, if HasKey.
	Key    int64
	HasKey bool

	Err error
}

// Error implements the error interface.
func (e *RunError) Error() string {
	if e.HasKey {
		return fmt.Sprintf("%s: step %d key %d: %v", e.Code, e.Step, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: step %d: %v", e.Code, e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *RunError) Unwrap() error {
	return e.Err
}

func newRunError(code ErrorCode, step uint64, err error) *RunError {
	return &RunError{Code: code, Step: step, Err: err}
}

func newKeyError(code ErrorCode, step uint64, key int64, err error) *RunError {
	return &RunError{Code: code, Step: step, Key: key, HasKey: true, Err: err}
}

// MismatchError reports that the scanned engine state differs from the
// oracle.
type MismatchError struct {
	// Missing are keys the oracle holds but the scan did not return.
	Missing []int64

	// Extra are keys the scan returned that the oracle does not hold.
	// A key returned twice appears here once per duplicate.
	Extra []int64
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing %s", formatKeys(e.Missing)))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, fmt.Sprintf("extra %s", formatKeys(e.Extra)))
	}
	return "engine state differs from oracle: " + strings.Join(parts, ", ")
}

// maxReportedKeys bounds how many keys an error message lists.
const maxReportedKeys = 16

func formatKeys(keys []int64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, k := range keys {
		if i == maxReportedKeys {
			fmt.Fprintf(&b, " ... (%d more)", len(keys)-i)
			break
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d", k)
	}
	b.WriteByte(']')
	return b.String()
}

// IsFatal returns true if err is a RunError.
// Uses errors.As to handle wrapped errors.
func IsFatal(err error) bool {
	var re *RunError
	return errors.As(err, &re)
}

// IsMismatch returns true if the engine and the oracle disagreed, either
// on a search outcome or in the final scan.
// Uses errors.As to handle wrapped errors.
func IsMismatch(err error) bool {
	var me *MismatchError
	if errors.As(err, &me) {
		return true
	}
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == CodeSearchMismatch
	}
	return false
}

// CodeOf returns the RunError code in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
