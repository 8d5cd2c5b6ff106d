package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/btrtrace/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario name filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Digest string   `json:"digest,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario-file|dir>...",
		Short: "Run YAML scenarios against golden traces",
		Long: `Run workload scenarios and check their assertions and golden traces.

Each scenario's golden trace lives next to it, in golden/<name>.golden.
A scenario without a golden file fails until --update writes one.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, unreadable scenarios, etc.)

Examples:
  btrtrace test ./scenarios
  btrtrace test ./scenarios --filter "coffee_*"
  btrtrace test ./scenarios --update
  btrtrace test ./scenarios/seed_one.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by name (glob pattern)")
	cmd.SetFlagErrorFunc(usageError)

	return cmd
}

func runTests(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return NewExitError(ExitCommandError, fmt.Sprintf("scenario path not found: %s", p))
		}
	}
	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			return WrapExitError(ExitCommandError, "invalid filter pattern", err)
		}
	}

	scenarios, err := harness.LoadScenarios(paths...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenarios", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := TestResult{Scenarios: []ScenarioResult{}}
	for _, s := range scenarios {
		if opts.Filter != "" {
			if matched, _ := filepath.Match(opts.Filter, s.Name); !matched {
				continue
			}
		}

		scenResult := runScenario(ctx, s, opts, logger)
		if opts.Format != "json" {
			printScenarioResult(cmd, scenResult, opts.Update)
		}

		result.Scenarios = append(result.Scenarios, scenResult)
		result.Total++
		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if result.Total == 0 {
		if opts.Format == "json" {
			return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// runScenario executes one scenario, then checks or rewrites its golden
// trace.
func runScenario(ctx context.Context, s *harness.Scenario, opts *TestOptions, logger *slog.Logger) ScenarioResult {
	result, err := harness.RunContext(ctx, s, logger)
	if err != nil {
		return ScenarioResult{
			Name:   s.Name,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}

	sr := ScenarioResult{
		Name:   s.Name,
		Digest: result.Digest,
		Errors: result.Errors,
	}
	if !result.Pass {
		return sr
	}

	goldenPath := harness.GoldenPath(s)
	if opts.Update {
		if err := harness.UpdateGolden(goldenPath, result); err != nil {
			sr.Errors = append(sr.Errors, fmt.Sprintf("failed to update golden file: %v", err))
			return sr
		}
		sr.Pass = true
		return sr
	}

	diff, err := harness.CompareGolden(goldenPath, result)
	switch {
	case errors.Is(err, harness.ErrNoGolden):
		sr.Errors = append(sr.Errors, fmt.Sprintf("no golden file at %s (run with --update to create it)", goldenPath))
	case err != nil:
		sr.Errors = append(sr.Errors, fmt.Sprintf("golden comparison failed: %v", err))
	case diff != "":
		sr.Errors = append(sr.Errors, "trace does not match golden file (-golden +actual):\n"+diff)
	default:
		sr.Pass = true
	}
	return sr
}

func printScenarioResult(cmd *cobra.Command, r ScenarioResult, update bool) {
	w := cmd.OutOrStdout()
	if r.Pass {
		if update {
			fmt.Fprintf(w, "✓ %s (golden updated)\n", r.Name)
			return
		}
		fmt.Fprintf(w, "✓ %s\n", r.Name)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", r.Name)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	if result.Failed == 0 {
		return f.Success(result)
	}

	msg := fmt.Sprintf("%d scenario(s) failed", result.Failed)
	if err := f.Failure(CodeTestFailed, msg, result); err != nil {
		return err
	}
	// Test failures = exit code 1
	return NewExitError(ExitFailure, msg)
}

// outputTestText outputs the test summary as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
