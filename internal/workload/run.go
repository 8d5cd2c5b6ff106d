package workload

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/btrtrace/internal/engine"
	"github.com/roach88/btrtrace/internal/oracle"
	"github.com/roach88/btrtrace/internal/prng"
	"github.com/roach88/btrtrace/internal/trace"
)

// Defaults for Config fields left zero.
const (
	DefaultSeed  uint64 = 0xC0FFEE
	DefaultOps   uint64 = 60
	DefaultTable        = "trace_t"
)

// Config describes one run.
type Config struct {
	Seed uint64
	Ops  uint64

	// Table is created at the start of the run and dropped after a clean
	// verification. Empty means DefaultTable.
	Table string

	// MaxKey is the upper bound of the key domain [1, MaxKey].
	// Zero means oracle.DefaultMaxKey.
	MaxKey int64

	// CheckSearch asserts every search outcome against the oracle.
	CheckSearch bool

	// Logger receives run-level info and per-step debug records.
	// Nil discards.
	Logger *slog.Logger

	// RunIDs names the run. Nil means UUIDv7Generator.
	RunIDs RunIDGenerator
}

// DefaultConfig returns the configuration of a plain `btrtrace` invocation.
func DefaultConfig() Config {
	return Config{
		Seed:        DefaultSeed,
		Ops:         DefaultOps,
		Table:       DefaultTable,
		MaxKey:      oracle.DefaultMaxKey,
		CheckSearch: true,
	}
}

func (c Config) withDefaults() Config {
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.MaxKey <= 0 {
		c.MaxKey = oracle.DefaultMaxKey
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.RunIDs == nil {
		c.RunIDs = UUIDv7Generator{}
	}
	return c
}

// Result summarizes a run. Run returns a partial Result alongside any error.
type Result struct {
	RunID  string `json:"run_id"`
	Seed   uint64 `json:"seed"`
	Ops    uint64 `json:"ops"`
	MaxKey int64  `json:"max_key"`
	Stats  Stats  `json:"stats"`

	// Scanned are the keys the verification scan returned, ascending.
	Scanned []int64 `json:"scanned"`

	// Expected are the oracle's keys, ascending.
	Expected []int64 `json:"expected"`

	// Digest covers every emitted text line, final included.
	Digest string `json:"digest"`

	// Verified is true once the scan matched the oracle.
	Verified bool `json:"verified"`
}

// Run executes cfg against eng, emitting records to sink (which may be nil).
//
// Sequence: create table, drive cfg.Ops steps in one IX transaction, commit,
// scan in a fresh transaction, emit the final record, compare, drop table.
// On any error the table is left in place for inspection.
func Run(ctx context.Context, eng engine.Engine, cfg Config, sink trace.Sink) (*Result, error) {
	cfg = cfg.withDefaults()

	res := &Result{
		RunID:  cfg.RunIDs.Generate(),
		Seed:   cfg.Seed,
		Ops:    cfg.Ops,
		MaxKey: cfg.MaxKey,
	}
	logger := cfg.Logger.With("run_id", res.RunID)

	if err := oracle.CheckMaxKey(cfg.MaxKey); err != nil {
		return res, err
	}

	digest := trace.NewWriter(io.Discard, trace.FormatText)
	out := trace.Sink(digest)
	if sink != nil {
		out = trace.Tee(sink, digest)
	}

	logger.Info("workload starting",
		"seed", fmt.Sprintf("%#x", cfg.Seed),
		"ops", cfg.Ops,
		"table", cfg.Table,
		"max_key", cfg.MaxKey,
	)

	if err := eng.CreateTable(ctx, cfg.Table); err != nil {
		return res, newRunError(CodeSchemaFailed, 0, err)
	}

	orc := oracle.New(cfg.MaxKey)
	stats, err := drive(ctx, eng, cfg, orc, out, logger)
	res.Stats = stats
	if err != nil {
		logger.Error("workload failed", "error", err)
		return res, err
	}

	scanned, err := Scan(ctx, eng, cfg.Table, cfg.Ops)
	if err != nil {
		logger.Error("verification scan failed", "error", err)
		return res, err
	}
	res.Scanned = scanned
	res.Expected = orc.Keys()

	if err := out.Emit(trace.Final(cfg.Ops, scanned)); err != nil {
		return res, fmt.Errorf("emit final: %w", err)
	}
	res.Digest = digest.Digest()

	if err := Compare(scanned, res.Expected); err != nil {
		logger.Error("verification failed", "error", err)
		return res, err
	}
	res.Verified = true

	if err := eng.DropTable(ctx, cfg.Table); err != nil {
		return res, newRunError(CodeSchemaFailed, cfg.Ops, err)
	}

	logger.Info("workload verified",
		"inserts", stats.Inserts,
		"deletes", stats.Deletes,
		"searches", stats.Searches,
		"abandoned", stats.Abandoned,
		"final_count", len(scanned),
		"digest", res.Digest,
	)
	return res, nil
}

// drive runs the step loop inside one transaction and commits it.
func drive(
	ctx context.Context,
	eng engine.Engine,
	cfg Config,
	orc *oracle.Oracle,
	out trace.Sink,
	logger *slog.Logger,
) (Stats, error) {
	txn, err := eng.Begin(ctx)
	if err != nil {
		return Stats{}, newRunError(CodeBeginFailed, 0, err)
	}
	defer txn.Rollback()

	cur, err := txn.OpenCursor(ctx, cfg.Table)
	if err != nil {
		return Stats{}, newRunError(CodeBeginFailed, 0, err)
	}
	defer cur.Close()

	if err := cur.Lock(engine.LockIX); err != nil {
		return Stats{}, newRunError(CodeBeginFailed, 0, err)
	}

	d := NewDriver(cur, prng.New(cfg.Seed), orc,
		WithSearchCheck(cfg.CheckSearch),
		WithLogger(logger),
	)

	for i := uint64(0); i < cfg.Ops; i++ {
		if err := ctx.Err(); err != nil {
			logger.Info("workload interrupted", "step", i)
			return d.Stats(), fmt.Errorf("interrupted at step %d: %w", i, err)
		}

		rec, emitted, stepErr := d.Step(ctx)
		if emitted {
			if err := out.Emit(rec); err != nil {
				return d.Stats(), fmt.Errorf("emit step %d: %w", i, err)
			}
		}
		if stepErr != nil {
			return d.Stats(), stepErr
		}
	}

	if err := cur.Close(); err != nil {
		return d.Stats(), newRunError(CodeCommitFailed, cfg.Ops, fmt.Errorf("close cursor: %w", err))
	}
	if err := txn.Commit(); err != nil {
		return d.Stats(), newRunError(CodeCommitFailed, cfg.Ops, err)
	}
	return d.Stats(), nil
}
