package workload

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/btrtrace/internal/engine"
)

// Scan reads every key of table in a new transaction under a shared lock.
//
// The scan stops at the first no-more-rows signal; ErrEndOfIndex and
// ErrRecordNotFound both count. Any other error is a CodeScanFailed
// RunError. step is only used to label errors.
func Scan(ctx context.Context, eng engine.Engine, table string, step uint64) ([]int64, error) {
	txn, err := eng.Begin(ctx)
	if err != nil {
		return nil, newRunError(CodeScanFailed, step, fmt.Errorf("begin: %w", err))
	}
	defer txn.Rollback()

	cur, err := txn.OpenCursor(ctx, table)
	if err != nil {
		return nil, newRunError(CodeScanFailed, step, err)
	}
	defer cur.Close()

	if err := cur.Lock(engine.LockIS); err != nil {
		return nil, newRunError(CodeScanFailed, step, err)
	}

	keys := []int64{}
	err = cur.First(ctx)
	for err == nil {
		var key int64
		key, err = cur.ReadRow(ctx)
		if err != nil {
			break
		}
		keys = append(keys, key)
		err = cur.Next(ctx)
	}
	if !engine.IsNoMoreRows(err) {
		return nil, newRunError(CodeScanFailed, step, err)
	}

	if err := cur.Close(); err != nil {
		return nil, newRunError(CodeScanFailed, step, fmt.Errorf("close cursor: %w", err))
	}
	if err := txn.Commit(); err != nil {
		return nil, newRunError(CodeScanFailed, step, err)
	}
	return keys, nil
}

// Compare checks scanned against expected as sets. It returns nil when they
// match and a *MismatchError otherwise. Both outputs are ascending.
func Compare(scanned, expected []int64) error {
	want := make(map[int64]bool, len(expected))
	for _, k := range expected {
		want[k] = false
	}

	var extra []int64
	for _, k := range scanned {
		seen, ok := want[k]
		if !ok || seen {
			extra = append(extra, k)
			continue
		}
		want[k] = true
	}

	var missing []int64
	for k, seen := range want {
		if !seen {
			missing = append(missing, k)
		}
	}

	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	slices.Sort(missing)
	slices.Sort(extra)
	return &MismatchError{Missing: missing, Extra: extra}
}
