package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/btrtrace/internal/store"
	"github.com/roach88/btrtrace/internal/testutil"
	"github.com/roach88/btrtrace/internal/trace"
	"github.com/roach88/btrtrace/internal/workload"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. A failed
// run is not an error: it is recorded in Result.Errors so that assertions
// still see the partial trace. The returned error is reserved for
// infrastructure failures.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario, nil)
}

// RunContext is Run with a context and a logger. A nil logger discards.
func RunContext(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cfg := workload.DefaultConfig()
	cfg.Seed = scenario.Seed
	cfg.Ops = scenario.Ops
	if scenario.MaxKey > 0 {
		cfg.MaxKey = scenario.MaxKey
	}
	cfg.CheckSearch = scenario.CheckSearchEnabled()
	cfg.Logger = logger.With("scenario", scenario.Name)
	cfg.RunIDs = testutil.NewFixedRunIDGenerator("scenario-" + scenario.Name)

	rec := trace.NewRecorder()
	result := NewResult()

	res, runErr := workload.Run(ctx, st, cfg, rec)
	result.Trace = append(result.Trace, rec.Lines()...)
	result.Digest = rec.Digest()
	if final, ok := rec.Final(); ok {
		result.Final = final.Keys
		if result.Final == nil {
			result.Final = []int64{}
		}
	}
	if res != nil {
		result.Expected = res.Expected
	}
	if runErr != nil {
		result.AddError(fmt.Sprintf("run failed: %v", runErr))
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}
