// Package testutil provides deterministic fixtures for tests: fixed run IDs
// and an in-memory engine with fault injection.
package testutil

// FixedRunIDGenerator generates the same run ID every time.
//
// This keeps logs and ledger rows byte-identical across repeated test runs.
//
// Thread-safety: FixedRunIDGenerator is stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a new fixed run ID generator.
// If id is empty, Generate returns "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run ID.
//
// Implements workload.RunIDGenerator.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
