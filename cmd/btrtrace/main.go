// Package main provides btrtrace, a deterministic workload generator and
// consistency checker for cursor-based KV engines.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/btrtrace/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "btrtrace:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
