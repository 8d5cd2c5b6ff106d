package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/btrtrace/internal/store"
	"github.com/roach88/btrtrace/internal/trace"
	"github.com/roach88/btrtrace/internal/workload"
)

// DefaultReplayRuns is how many times replay repeats a workload.
const DefaultReplayRuns = 2

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	WorkloadOptions
	Runs int
}

// ReplayRun is one repetition of the workload.
type ReplayRun struct {
	Run        int    `json:"run"`
	RunID      string `json:"run_id"`
	Digest     string `json:"digest"`
	Lines      int    `json:"lines"`
	FinalCount int    `json:"final_count"`
	Verified   bool   `json:"verified"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Seed          uint64      `json:"seed"`
	Ops           uint64      `json:"ops"`
	Runs          []ReplayRun `json:"runs"`
	Deterministic bool        `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run a workload repeatedly and verify determinism",
		Long: `Run the same seed and op count several times, each on a fresh in-memory
engine, and compare the trace digests.

Exit codes:
  0 - Every run produced the same digest
  1 - Digests diverged, or a run failed
  2 - Configuration error

Examples:
  btrtrace replay
  btrtrace replay --seed 0x2a --ops 500 --runs 5
  btrtrace replay --format json`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	addWorkloadFlags(cmd.Flags(), &opts.WorkloadOptions)
	cmd.Flags().IntVar(&opts.Runs, "runs", DefaultReplayRuns, "number of runs to compare")
	cmd.SetFlagErrorFunc(usageError)

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	if opts.Runs < 1 {
		return NewExitError(ExitFailure, fmt.Sprintf("--runs must be at least 1, got %d", opts.Runs))
	}

	v, err := loadSettings(cmd.Flags())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if err := opts.WorkloadOptions.resolve(v); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	logger := newLogger(cmd.ErrOrStderr(), v.GetBool(keyVerbose))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := ReplayResult{
		Seed: opts.Seed,
		Ops:  opts.Ops,
		Runs: make([]ReplayRun, 0, opts.Runs),
	}
	// One ID per repetition, sharing a prefix so logs group together.
	base := workload.UUIDv7Generator{}.Generate()
	names := make([]string, opts.Runs)
	for i := range names {
		names[i] = fmt.Sprintf("%s-%d", base, i+1)
	}
	runIDs := workload.NewSequenceGenerator(names...)

	for i := 1; i <= opts.Runs; i++ {
		cfg := opts.WorkloadOptions.config(logger.With("replay_run", i))
		cfg.RunIDs = runIDs
		run, err := replayOnce(ctx, i, cfg)
		if err != nil {
			return err
		}
		result.Runs = append(result.Runs, run)
	}
	result.Deterministic = sameDigests(result.Runs)

	f := &OutputFormatter{Format: v.GetString(keyFormat), Writer: cmd.OutOrStdout()}
	if f.Format == "json" {
		if result.Deterministic {
			return f.Success(result)
		}
		if err := f.Failure(CodeDiverged, "trace digests diverged", result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "trace digests diverged")
	}
	return outputReplayText(cmd, result)
}

// replayOnce runs cfg on a fresh in-memory store.
func replayOnce(ctx context.Context, n int, cfg workload.Config) (ReplayRun, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return ReplayRun{}, WrapExitError(ExitCommandError, "failed to open in-memory database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	rec := trace.NewRecorder()
	res, err := workload.Run(ctx, st, cfg, rec)
	if err != nil {
		return ReplayRun{}, runFailure(fmt.Errorf("replay run %d: %w", n, err))
	}

	return ReplayRun{
		Run:        n,
		RunID:      res.RunID,
		Digest:     rec.Digest(),
		Lines:      len(rec.Records),
		FinalCount: len(res.Scanned),
		Verified:   res.Verified,
	}, nil
}

// sameDigests reports whether every run matches the first one.
func sameDigests(runs []ReplayRun) bool {
	for _, r := range runs[1:] {
		if r.Digest != runs[0].Digest {
			return false
		}
	}
	return true
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay: seed %#x, %d ops, %d run(s)\n", result.Seed, result.Ops, len(result.Runs))
	for _, r := range result.Runs {
		status := "✓"
		if r.Digest != result.Runs[0].Digest {
			status = "✗"
		}
		fmt.Fprintf(w, "%s run %d: %s (%d lines, final %d)\n", status, r.Run, r.Digest, r.Lines, r.FinalCount)
	}
	fmt.Fprintln(w)

	if result.Deterministic {
		fmt.Fprintln(w, "✓ All runs produced the same trace")
		return nil
	}

	fmt.Fprintln(w, "✗ Trace digests diverged")
	return NewExitError(ExitFailure, "trace digests diverged")
}
