package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/btrtrace/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Seed     uint64
	Ops      uint64
}

// DigestGroup collects the ledger runs for one workload configuration:
// seed, op count and key domain.
type DigestGroup struct {
	Seed       uint64   `json:"seed"`
	Ops        uint64   `json:"ops"`
	MaxKey     int64    `json:"max_key"`
	Runs       int      `json:"runs"`
	Digests    []string `json:"digests"`
	Consistent bool     `json:"consistent"`
}

// HistoryResult holds the history listing.
type HistoryResult struct {
	Runs      []store.RunRecord `json:"runs"`
	Groups    []DigestGroup     `json:"groups"`
	Conflicts int               `json:"conflicts"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs and check digest agreement",
		Long: `List the runs recorded in a database's ledger, oldest first.

Runs that share a seed, op count and max-key must share a trace digest.
Any configuration with more than one digest is reported as a conflict.

Exit codes:
  0 - No conflicts
  1 - At least one configuration has conflicting digests
  2 - Command error (database not found, etc.)

Examples:
  btrtrace history --db ./runs.db
  btrtrace history --db ./runs.db --seed 0xC0FFEE --ops 60
  btrtrace history --db ./runs.db --format json`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, keyDB, "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired(keyDB)
	cmd.Flags().Var(newUint64Value(0, &opts.Seed, true), keySeed, "only runs with this seed")
	cmd.Flags().Var(newUint64Value(0, &opts.Ops, false), keyOps, "only runs with this op count")
	cmd.SetFlagErrorFunc(usageError)

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	dbPath, err := expandPath(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid database path", err)
	}
	// store.Open would create an empty database
	if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", dbPath))
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var filter store.RunFilter
	if cmd.Flags().Changed(keySeed) {
		filter.Seed = &opts.Seed
	}
	if cmd.Flags().Changed(keyOps) {
		filter.Ops = &opts.Ops
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	runs, err := st.ListRuns(ctx, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	result := HistoryResult{Runs: runs, Groups: groupDigests(runs)}
	for _, g := range result.Groups {
		if !g.Consistent {
			result.Conflicts++
		}
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if f.Format == "json" {
		if result.Conflicts == 0 {
			return f.Success(result)
		}
		msg := fmt.Sprintf("%d configuration(s) with conflicting digests", result.Conflicts)
		if err := f.Failure(CodeConflict, msg, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return outputHistoryText(cmd, result)
}

// groupDigests groups runs by seed, ops and max key in order of first
// appearance.
func groupDigests(runs []store.RunRecord) []DigestGroup {
	type workloadKey struct {
		seed, ops uint64
		maxKey    int64
	}

	groups := []DigestGroup{}
	index := make(map[workloadKey]int)
	for _, r := range runs {
		k := workloadKey{r.Seed, r.Ops, r.MaxKey}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, DigestGroup{Seed: r.Seed, Ops: r.Ops, MaxKey: r.MaxKey, Digests: []string{}})
		}
		g := &groups[i]
		g.Runs++
		if !slices.Contains(g.Digests, r.Digest) {
			g.Digests = append(g.Digests, r.Digest)
		}
	}
	for i := range groups {
		groups[i].Consistent = len(groups[i].Digests) <= 1
	}
	return groups
}

// shortDigest trims a digest for tabular output.
func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

// outputHistoryText outputs the history as a table followed by conflicts.
func outputHistoryText(cmd *cobra.Command, result HistoryResult) error {
	w := cmd.OutOrStdout()

	if len(result.Runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRUN ID\tSEED\tOPS\tFINAL\tVERIFIED\tDIGEST")
	for _, r := range result.Runs {
		fmt.Fprintf(tw, "%d\t%s\t%#x\t%d\t%d\t%t\t%s\n",
			r.Seq, r.RunID, r.Seed, r.Ops, r.FinalCount, r.Verified, shortDigest(r.Digest))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)

	if result.Conflicts == 0 {
		fmt.Fprintf(w, "✓ %d run(s), digests agree for every configuration\n", len(result.Runs))
		return nil
	}

	for _, g := range result.Groups {
		if g.Consistent {
			continue
		}
		fmt.Fprintf(w, "✗ seed %#x ops %d max-key %d: %d runs, %d distinct digests\n",
			g.Seed, g.Ops, g.MaxKey, g.Runs, len(g.Digests))
		for _, d := range g.Digests {
			fmt.Fprintf(w, "    %s\n", d)
		}
	}
	msg := fmt.Sprintf("%d configuration(s) with conflicting digests", result.Conflicts)
	return NewExitError(ExitFailure, msg)
}
