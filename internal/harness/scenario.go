package harness

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Scenario defines one reproducible workload run and what its trace must
// show.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// Seed initialises the generator.
	Seed uint64 `yaml:"seed" json:"seed"`

	// Ops is the number of steps, abandoned inserts included.
	Ops uint64 `yaml:"ops" json:"ops"`

	// MaxKey bounds the key domain. Zero means the default of 1000.
	MaxKey int64 `yaml:"max_key,omitempty" json:"max_key,omitempty"`

	// CheckSearch asserts search outcomes against the oracle.
	// Nil means true.
	CheckSearch *bool `yaml:"check_search,omitempty" json:"check_search,omitempty"`

	// Assertions validate the trace and the final key set.
	// Supported types: trace_contains, trace_count, final_count, final_contains
	Assertions []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`

	// Path is the file the scenario was loaded from, if any.
	Path string `yaml:"-" json:"-"`
}

// Assertion validates the trace or the final key set.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Line appears verbatim in the trace
	// - "trace_count": Kind appears exactly Count times
	// - "final_count": Final key set has exactly Count keys
	// - "final_contains": Key is in the final key set
	Type string `yaml:"type" json:"type"`

	// Line is the exact trace line (used by trace_contains).
	Line string `yaml:"line,omitempty" json:"line,omitempty"`

	// Kind is insert, delete or search (used by trace_count).
	Kind string `yaml:"kind,omitempty" json:"kind,omitempty"`

	// Count is the expected number (used by trace_count and final_count).
	Count *int `yaml:"count,omitempty" json:"count,omitempty"`

	// Key is the expected key (used by final_contains).
	Key int64 `yaml:"key,omitempty" json:"key,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertFinalCount    = "final_count"
	AssertFinalContains = "final_contains"
)

// ScenarioExt is the file extension scenario files use.
const ScenarioExt = ".yaml"

// CheckSearchEnabled reports whether search outcomes are asserted.
func (s *Scenario) CheckSearchEnabled() bool {
	return s.CheckSearch == nil || *s.CheckSearch
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails schema validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	scenario.Name = norm.NFC.String(scenario.Name)

	if err := ValidateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every scenario under the given paths. Directories are
// searched recursively for *.yaml files; files are loaded directly. The
// result is sorted by name and names must be unique.
func LoadScenarios(paths ...string) ([]*Scenario, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("scenario path: %w", err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && d.Name() == GoldenDir {
				return filepath.SkipDir
			}
			if !d.IsDir() && strings.HasSuffix(d.Name(), ScenarioExt) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", p, err)
		}
	}

	scenarios := make([]*Scenario, 0, len(files))
	byName := make(map[string]string, len(files))
	for _, f := range files {
		s, err := LoadScenario(f)
		if err != nil {
			return nil, err
		}
		if prev, dup := byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate scenario name %q in %s and %s", s.Name, prev, f)
		}
		byName[s.Name] = f
		scenarios = append(scenarios, s)
	}

	sort.Slice(scenarios, func(i, j int) bool {
		return scenarios[i].Name < scenarios[j].Name
	})
	return scenarios, nil
}

// ValidateScenario checks s against the embedded #Scenario schema.
func ValidateScenario(s *Scenario) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Scenario"))
	v := def.Unify(ctx.Encode(s))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError flattens CUE's error list into one message per line.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		path := strings.Join(e.Path(), ".")
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if path != "" {
			msg = path + ": " + msg
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
