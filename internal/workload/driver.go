package workload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/btrtrace/internal/engine"
	"github.com/roach88/btrtrace/internal/oracle"
	"github.com/roach88/btrtrace/internal/prng"
	"github.com/roach88/btrtrace/internal/trace"
)

// MaxInsertRedraws bounds how often Insert redraws a key that is already
// present before abandoning the step.
const MaxInsertRedraws = 10

// Action is the operation a step performs.
type Action uint8

const (
	ActionInsert Action = iota
	ActionDelete
	ActionSearch

	numActions = 3
)

// String returns the lowercase action name.
func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionDelete:
		return "delete"
	case ActionSearch:
		return "search"
	default:
		return "unknown"
	}
}

// Stats counts what a Driver has done.
type Stats struct {
	Inserts   uint64 `json:"inserts"`
	Deletes   uint64 `json:"deletes"`
	Searches  uint64 `json:"searches"`
	Abandoned uint64 `json:"abandoned"`
}

// Steps returns the number of steps taken, abandoned ones included.
func (s Stats) Steps() uint64 {
	return s.Inserts + s.Deletes + s.Searches + s.Abandoned
}

// Driver performs one randomized operation per Step against a cursor,
// mirroring every successful mutation in its oracle.
//
// A Driver is not safe for concurrent use.
type Driver struct {
	cur         engine.Cursor
	sampler     *prng.Sampler
	oracle      *oracle.Oracle
	checkSearch bool
	logger      *slog.Logger

	step  uint64
	stats Stats
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithSearchCheck makes a search whose outcome disagrees with the oracle a
// fatal CodeSearchMismatch error.
func WithSearchCheck(enabled bool) DriverOption {
	return func(d *Driver) {
		d.checkSearch = enabled
	}
}

// WithLogger sets the logger for per-step debug output.
func WithLogger(l *slog.Logger) DriverOption {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDriver creates a Driver over an IX-locked cursor. The oracle must
// describe the cursor's table exactly, which for a fresh table means empty.
func NewDriver(cur engine.Cursor, s *prng.Sampler, o *oracle.Oracle, opts ...DriverOption) *Driver {
	d := &Driver{
		cur:     cur,
		sampler: s,
		oracle:  o,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Stats returns the counts so far.
func (d *Driver) Stats() Stats {
	return d.stats
}

// Oracle returns the driver's model of the table.
func (d *Driver) Oracle() *oracle.Oracle {
	return d.oracle
}

// Step performs one step.
//
// emitted is false when an Insert was abandoned; the step still counts.
// On a search mismatch the offending record is returned along with the
// error so it can be emitted before the run stops.
func (d *Driver) Step(ctx context.Context) (rec trace.Record, emitted bool, err error) {
	step := d.step
	d.step++

	action := ActionInsert
	if d.oracle.Len() > 0 {
		action = Action(d.sampler.UintBelow8(numActions))
	}

	switch action {
	case ActionInsert:
		return d.insert(ctx, step)
	case ActionDelete:
		return d.delete(ctx, step)
	default:
		return d.search(ctx, step)
	}
}

func (d *Driver) drawKey() int64 {
	return d.sampler.IntRange64(1, d.oracle.MaxKey())
}

func (d *Driver) insert(ctx context.Context, step uint64) (trace.Record, bool, error) {
	key := d.drawKey()
	for redraws := 0; d.oracle.Contains(key) && redraws < MaxInsertRedraws; redraws++ {
		key = d.drawKey()
	}
	if d.oracle.Contains(key) {
		d.stats.Abandoned++
		d.logger.Debug("insert abandoned", "step", step, "last_key", key)
		return trace.Record{}, false, nil
	}

	if err := d.cur.Insert(ctx, key); err != nil {
		return trace.Record{}, false, newKeyError(CodeInsertFailed, step, key, err)
	}
	if err := d.oracle.Insert(key); err != nil {
		// The presence check above makes this unreachable.
		return trace.Record{}, false, fmt.Errorf("oracle insert at step %d: %w", step, err)
	}

	d.stats.Inserts++
	d.logger.Debug("step", "step", step, "op", ActionInsert, "key", key)
	return trace.Insert(step, key), true, nil
}

func (d *Driver) delete(ctx context.Context, step uint64) (trace.Record, bool, error) {
	idx, key, err := d.oracle.Pick(d.sampler)
	if err != nil {
		return trace.Record{}, false, fmt.Errorf("pick key at step %d: %w", step, err)
	}

	exact, err := d.cur.MoveTo(ctx, key)
	if err != nil {
		return trace.Record{}, false, newKeyError(CodeDeleteLookupFailed, step, key, err)
	}
	if !exact {
		landed, rerr := d.cur.ReadRow(ctx)
		if rerr != nil {
			return trace.Record{}, false, newKeyError(CodeDeleteLookupFailed, step, key,
				errors.New("cursor did not land on key"))
		}
		return trace.Record{}, false, newKeyError(CodeDeleteLookupFailed, step, key,
			fmt.Errorf("cursor landed on %d", landed))
	}

	if err := d.cur.DeleteRow(ctx); err != nil {
		return trace.Record{}, false, newKeyError(CodeDeleteFailed, step, key, err)
	}
	if _, err := d.oracle.RemoveAt(idx); err != nil {
		return trace.Record{}, false, fmt.Errorf("oracle remove at step %d: %w", step, err)
	}

	d.stats.Deletes++
	d.logger.Debug("step", "step", step, "op", ActionDelete, "key", key)
	return trace.Delete(step, key), true, nil
}

func (d *Driver) search(ctx context.Context, step uint64) (trace.Record, bool, error) {
	// Both draws happen whenever the oracle is non-empty; the domain draw
	// is consumed even when the coin picks a present key.
	target := d.drawKey()
	if d.oracle.Len() > 0 && d.sampler.Bool() {
		_, key, err := d.oracle.Pick(d.sampler)
		if err != nil {
			return trace.Record{}, false, fmt.Errorf("pick key at step %d: %w", step, err)
		}
		target = key
	}

	found, err := d.cur.MoveTo(ctx, target)
	if errors.Is(err, engine.ErrEndOfIndex) {
		found, err = false, nil
	}
	if err != nil {
		return trace.Record{}, false, newKeyError(CodeSearchFailed, step, target, err)
	}

	d.stats.Searches++
	d.logger.Debug("step", "step", step, "op", ActionSearch, "key", target, "found", found)
	rec := trace.Search(step, target, found)

	if d.checkSearch {
		if want := d.oracle.Contains(target); want != found {
			return rec, true, newKeyError(CodeSearchMismatch, step, target,
				fmt.Errorf("engine found=%t, oracle present=%t", found, want))
		}
	}
	return rec, true, nil
}
