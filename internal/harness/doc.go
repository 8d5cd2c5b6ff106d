// Package harness runs declarative workload scenarios and checks their
// traces.
//
// A scenario is a YAML file naming a seed, an operation count and a list
// of assertions over the resulting trace:
//
//	name: coffee_short
//	description: Five steps from the default seed
//	seed: 12648430
//	ops: 5
//	assertions:
//	  - type: trace_contains
//	    line: "I 549"
//	  - type: final_count
//	    count: 1
//
// Scenarios are decoded strictly (unknown fields are errors) and validated
// against an embedded CUE schema before they run. Each scenario runs
// against its own in-memory SQLite store, so scenarios are isolated and the
// trace depends only on the seed, ops and max_key.
//
// Golden files hold the exact text trace. RunWithGolden compares a scenario
// against testdata/golden/<name>.golden; regenerate with
//
//	go test ./internal/harness -update
package harness
