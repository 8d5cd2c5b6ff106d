package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/roach88/btrtrace/internal/store"
	"github.com/roach88/btrtrace/internal/trace"
	"github.com/roach88/btrtrace/internal/workload"
)

// TraceOptions holds flags for the root trace command.
type TraceOptions struct {
	*RootOptions
	WorkloadOptions
	Database string
	Out      string

	// RunIDs overrides run naming (for testing). Nil means UUIDv7.
	RunIDs workload.RunIDGenerator
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	v, err := loadSettings(cmd.Flags())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if err := opts.WorkloadOptions.resolve(v); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	format, err := trace.ParseFormat(v.GetString(keyFormat))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	dbPath, err := expandPath(v.GetString(keyDB))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid database path", err)
	}
	if dbPath == "" {
		dbPath = ":memory:"
	}
	outPath, err := expandPath(v.GetString(keyOut))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid output path", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), v.GetBool(keyVerbose))

	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.WorkloadOptions.config(logger)
	cfg.RunIDs = opts.RunIDs

	rec := trace.NewRecorder()
	sink := trace.Tee(trace.NewWriter(cmd.OutOrStdout(), format), rec)

	res, runErr := workload.Run(ctx, st, cfg, sink)

	if outPath != "" && len(rec.Records) > 0 {
		if err := atomic.WriteFile(outPath, strings.NewReader(rec.Text())); err != nil {
			return WrapExitError(ExitCommandError, "failed to write trace file", err)
		}
		logger.Debug("trace written", "path", outPath, "lines", len(rec.Records))
	}

	if isFileDatabase(dbPath) && res != nil && res.Digest != "" {
		seq, err := st.WriteRun(parentCtx, runRecord(res))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		logger.Debug("run recorded", "seq", seq, "run_id", res.RunID)
	}

	if runErr != nil {
		return runFailure(runErr)
	}
	return nil
}

// runFailure attaches the exit code for a workload.Run error.
func runFailure(err error) error {
	switch {
	case workload.IsMismatch(err):
		return WrapExitError(ExitFailure, "verification failed", err)
	case workload.IsFatal(err):
		return WrapExitError(ExitFailure, "engine failure", err)
	default:
		return WrapExitError(ExitFailure, "run failed", err)
	}
}

// runRecord converts a completed run into a ledger row.
func runRecord(res *workload.Result) store.RunRecord {
	return store.RunRecord{
		RunID:      res.RunID,
		Seed:       res.Seed,
		Ops:        res.Ops,
		MaxKey:     res.MaxKey,
		Inserts:    res.Stats.Inserts,
		Deletes:    res.Stats.Deletes,
		Searches:   res.Stats.Searches,
		Abandoned:  res.Stats.Abandoned,
		FinalCount: len(res.Scanned),
		Digest:     res.Digest,
		Verified:   res.Verified,
	}
}

// isFileDatabase reports whether path names an on-disk SQLite database.
func isFileDatabase(path string) bool {
	return !store.IsMemoryPath(path)
}
