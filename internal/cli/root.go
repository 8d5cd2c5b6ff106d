package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the btrtrace command. Run without a subcommand it
// generates, prints and verifies one trace.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	traceOpts := &TraceOptions{RootOptions: opts}

	cmd := &cobra.Command{
		Use:   "btrtrace",
		Short: "Deterministic workload generator for cursor-based KV engines",
		Long: `btrtrace drives a seeded stream of inserts, deletes and searches against a
storage engine, prints one line per operation, then scans the table and
checks it against an in-memory model of what it should contain.

The same seed and op count always print the same trace.

Trace lines:
  I <key>            insert
  D <key>            delete
  S <key> <0|1>      search, 1 if found
  final <n> <keys>   verified contents, ascending

Exit codes:
  0 - trace verified
  1 - usage error, engine failure or verification mismatch
  2 - environment error (database, config file)

Examples:
  btrtrace
  btrtrace --seed 0xC0FFEE --ops 5
  btrtrace --db ./runs.db --out trace.txt
  BTRTRACE_SEED=7 btrtrace --format json`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(traceOpts, cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, keyVerbose, "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, keyFormat, "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, keyConfig, "", "config file (.yaml, .json, .jsonc, .hujson)")

	addWorkloadFlags(cmd.Flags(), &traceOpts.WorkloadOptions)
	cmd.Flags().StringVar(&traceOpts.Database, keyDB, ":memory:", "SQLite database; a file path also records the run")
	cmd.Flags().StringVar(&traceOpts.Out, keyOut, "", "also write the text trace to this file")

	cmd.SetFlagErrorFunc(usageError)

	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// usageError appends the command's usage to a flag parsing error.
func usageError(cmd *cobra.Command, err error) error {
	return fmt.Errorf("%w\n\n%s", err, cmd.UsageString())
}

// noArgs rejects positional arguments with the command's usage attached.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return usageError(cmd, err)
	}
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
