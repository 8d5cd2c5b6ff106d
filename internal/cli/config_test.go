package cli

import (
	"os"
	"path/filepath"
	"testing"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/btrtrace/internal/oracle"
	"github.com/roach88/btrtrace/internal/workload"
)

// resolveArgs parses args into a fresh workload flag set and resolves the
// layered settings.
func resolveArgs(t *testing.T, args ...string) (WorkloadOptions, error) {
	t.Helper()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	var o WorkloadOptions
	addWorkloadFlags(fs, &o)
	fs.String(keyConfig, "", "config file")
	require.NoError(t, fs.Parse(args))

	v, err := loadSettings(fs)
	if err != nil {
		return WorkloadOptions{}, err
	}
	if err := o.resolve(v); err != nil {
		return WorkloadOptions{}, err
	}
	return o, nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSettings_Defaults(t *testing.T) {
	o, err := resolveArgs(t)
	require.NoError(t, err)

	assert.Equal(t, WorkloadOptions{
		Seed:        workload.DefaultSeed,
		Ops:         workload.DefaultOps,
		Table:       workload.DefaultTable,
		MaxKey:      1000,
		CheckSearch: true,
	}, o)
}

func TestSettings_Flags(t *testing.T) {
	o, err := resolveArgs(t, "--seed=0x2a", "--ops", "0b11", "--table", "t2", "--max-key", "50", "--check-search=false")
	require.NoError(t, err)

	assert.Equal(t, uint64(42), o.Seed)
	assert.Equal(t, uint64(3), o.Ops)
	assert.Equal(t, "t2", o.Table)
	assert.Equal(t, int64(50), o.MaxKey)
	assert.False(t, o.CheckSearch)
}

func TestSettings_Environment(t *testing.T) {
	t.Setenv("BTRTRACE_SEED", "0x10")
	t.Setenv("BTRTRACE_MAX_KEY", "77")
	t.Setenv("BTRTRACE_CHECK_SEARCH", "false")

	o, err := resolveArgs(t)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), o.Seed)
	assert.Equal(t, int64(77), o.MaxKey)
	assert.False(t, o.CheckSearch)

	// An explicit flag wins over the environment.
	o, err = resolveArgs(t, "--seed", "9")
	require.NoError(t, err)
	assert.Equal(t, uint64(9), o.Seed)
}

func TestSettings_YAMLConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "btrtrace.yaml", `
seed: 0xC0FFEE
ops: 5
table: from_config
max-key: 200
`)

	o, err := resolveArgs(t, "--config", path)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xC0FFEE), o.Seed)
	assert.Equal(t, uint64(5), o.Ops)
	assert.Equal(t, "from_config", o.Table)
	assert.Equal(t, int64(200), o.MaxKey)
}

func TestSettings_JSONCConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "btrtrace.jsonc", `{
	// hex seeds are strings in JSON
	"seed": "0x7",
	"ops": 12, // trailing commas are fine
}`)

	o, err := resolveArgs(t, "--config", path)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), o.Seed)
	assert.Equal(t, uint64(12), o.Ops)
}

func TestSettings_Precedence(t *testing.T) {
	path := writeFile(t, t.TempDir(), "btrtrace.json", `{"seed": "1", "ops": 2, "table": "cfg"}`)
	t.Setenv("BTRTRACE_OPS", "3")

	o, err := resolveArgs(t, "--config", path, "--seed", "4")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), o.Seed, "flag beats config")
	assert.Equal(t, uint64(3), o.Ops, "env beats config")
	assert.Equal(t, "cfg", o.Table, "config beats default")
}

func TestSettings_ConfigFromEnvironment(t *testing.T) {
	path := writeFile(t, t.TempDir(), "btrtrace.yml", "ops: 8\n")
	t.Setenv("BTRTRACE_CONFIG", path)

	o, err := resolveArgs(t)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), o.Ops)
}

func TestSettings_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		args    []string
		env     map[string]string
		wantErr error
		wantMsg string
	}{
		{
			name:    "missing config file",
			args:    []string{"--config", filepath.Join(dir, "absent.yaml")},
			wantErr: errConfigRead,
		},
		{
			name:    "unsupported extension",
			args:    []string{"--config", writeFile(t, dir, "c.toml", "ops = 1\n")},
			wantErr: errConfigUnsupported,
		},
		{
			name:    "malformed jsonc",
			args:    []string{"--config", writeFile(t, dir, "c.json", "{\"ops\": }")},
			wantErr: errConfigInvalid,
		},
		{
			name:    "bad seed in environment",
			env:     map[string]string{"BTRTRACE_SEED": "banana"},
			wantMsg: "seed: invalid unsigned integer",
		},
		{
			name:    "max key below one",
			args:    []string{"--max-key", "0"},
			wantMsg: "max-key must be at least 1",
		},
		{
			name:    "max key above limit",
			args:    []string{"--max-key", "9223372036854775807"},
			wantErr: oracle.ErrDomainTooLarge,
		},
		{
			name:    "max key above limit in environment",
			env:     map[string]string{"BTRTRACE_MAX_KEY": "10000000000"},
			wantErr: oracle.ErrDomainTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := resolveArgs(t, tt.args...)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)

	got, err := expandPath("~/runs.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "runs.db"), got)

	got, err = expandPath("./runs.db")
	require.NoError(t, err)
	assert.Equal(t, "./runs.db", got)

	got, err = expandPath("")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}
