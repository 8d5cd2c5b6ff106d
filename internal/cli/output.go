package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for btrtrace.
const (
	ExitSuccess      = 0 // trace verified, scenarios passed, replay deterministic
	ExitFailure      = 1 // usage error, fatal engine error, verification mismatch, divergence
	ExitCommandError = 2 // environment error: database cannot be opened, bad config file
)

// ExitError carries the process exit code for an error returned from a
// command.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string // one-line summary
	Err     error  // cause, optional
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code and summary to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process exit code: 0 for nil, the ExitError
// code when one is in the chain, ExitFailure otherwise.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the envelope for --format json summaries.
// Trace records are never wrapped; they stream one object per line.
type CLIResponse struct {
	Status string    `json:"status"`         // "ok" or "error"
	Data   any       `json:"data,omitempty"` // command result
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError describes a failed command in a CLIResponse.
type CLIError struct {
	Code    string `json:"code"` // E_DIVERGED, E_DIGEST_CONFLICT, ...
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error codes used in CLIError.Code.
const (
	CodeDiverged   = "E_DIVERGED"
	CodeConflict   = "E_DIGEST_CONFLICT"
	CodeTestFailed = "E_TEST_FAILED"
)

// OutputFormatter renders command summaries as text or JSON.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Success writes data. Text mode prints it with fmt.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return writeJSON(f.Writer, CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Failure writes data together with an error record. In text mode only
// the error line is printed; callers print their own text summary first.
func (f *OutputFormatter) Failure(code, message string, data any) error {
	if f.Format == "json" {
		return writeJSON(f.Writer, CLIResponse{
			Status: "error",
			Data:   data,
			Error:  &CLIError{Code: code, Message: message},
		})
	}
	_, err := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
