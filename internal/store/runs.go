package store

import (
	"context"
	"fmt"
	"strings"
)

// RunRecord is one completed workload run in the ledger.
type RunRecord struct {
	Seq        int64  `json:"seq"`
	RunID      string `json:"run_id"`
	Seed       uint64 `json:"seed"`
	Ops        uint64 `json:"ops"`
	MaxKey     int64  `json:"max_key"`
	Inserts    uint64 `json:"inserts"`
	Deletes    uint64 `json:"deletes"`
	Searches   uint64 `json:"searches"`
	Abandoned  uint64 `json:"abandoned"`
	FinalCount int    `json:"final_count"`
	Digest     string `json:"digest"`
	Verified   bool   `json:"verified"`
}

// RunFilter narrows ListRuns. Nil fields match everything.
type RunFilter struct {
	Seed *uint64
	Ops  *uint64
}

// WriteRun appends a run to the ledger and returns its seq.
// Must not be called while a transaction from Begin is open.
func (s *Store) WriteRun(ctx context.Context, r RunRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, seed, ops, max_key, inserts, deletes, searches, abandoned, final_count, digest, verified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.RunID,
		int64(r.Seed),
		int64(r.Ops),
		r.MaxKey,
		int64(r.Inserts),
		int64(r.Deletes),
		int64(r.Searches),
		int64(r.Abandoned),
		r.FinalCount,
		r.Digest,
		boolToInt(r.Verified),
	)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("write run: last insert id: %w", err)
	}
	return seq, nil
}

// ListRuns returns ledger entries ordered by seq.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListRuns(ctx context.Context, f RunFilter) ([]RunRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.Seed != nil {
		where = append(where, "seed = ?")
		args = append(args, int64(*f.Seed))
	}
	if f.Ops != nil {
		where = append(where, "ops = ?")
		args = append(args, int64(*f.Ops))
	}

	query := `
		SELECT seq, run_id, seed, ops, max_key, inserts, deletes, searches, abandoned, final_count, digest, verified
		FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		var (
			r                                     RunRecord
			seed, ops                             int64
			inserts, deletes, searches, abandoned int64
			verified                              int
		)
		if err := rows.Scan(
			&r.Seq, &r.RunID, &seed, &ops, &r.MaxKey,
			&inserts, &deletes, &searches, &abandoned,
			&r.FinalCount, &r.Digest, &verified,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Seed = uint64(seed)
		r.Ops = uint64(ops)
		r.Inserts = uint64(inserts)
		r.Deletes = uint64(deletes)
		r.Searches = uint64(searches)
		r.Abandoned = uint64(abandoned)
		r.Verified = verified != 0
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
