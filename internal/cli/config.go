package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tailscale/hujson"

	"github.com/roach88/btrtrace/internal/oracle"
	"github.com/roach88/btrtrace/internal/workload"
)

// EnvPrefix prefixes environment overrides: BTRTRACE_SEED, BTRTRACE_MAX_KEY, ...
const EnvPrefix = "BTRTRACE"

// Setting keys. They match flag names; in the environment "-" becomes "_".
const (
	keyConfig      = "config"
	keyVerbose     = "verbose"
	keyFormat      = "format"
	keySeed        = "seed"
	keyOps         = "ops"
	keyTable       = "table"
	keyMaxKey      = "max-key"
	keyCheckSearch = "check-search"
	keyDB          = "db"
	keyOut         = "out"
)

var settingKeys = []string{
	keyConfig, keyVerbose, keyFormat,
	keySeed, keyOps, keyTable, keyMaxKey, keyCheckSearch,
	keyDB, keyOut,
}

var (
	errConfigRead        = errors.New("cannot read config file")
	errConfigInvalid     = errors.New("invalid config file")
	errConfigUnsupported = errors.New("unsupported config file type")
)

// WorkloadOptions holds the workload flags shared by the root command and
// replay.
type WorkloadOptions struct {
	Seed        uint64
	Ops         uint64
	Table       string
	MaxKey      int64
	CheckSearch bool
}

func addWorkloadFlags(fs *pflag.FlagSet, o *WorkloadOptions) {
	fs.Var(newUint64Value(workload.DefaultSeed, &o.Seed, true), keySeed, "PRNG seed (decimal, 0x, 0o or 0b)")
	fs.Var(newUint64Value(workload.DefaultOps, &o.Ops, false), keyOps, "number of operations")
	fs.StringVar(&o.Table, keyTable, workload.DefaultTable, "table created for the run")
	fs.Int64Var(&o.MaxKey, keyMaxKey, oracle.DefaultMaxKey, "upper bound of the key domain [1, max-key]")
	fs.BoolVar(&o.CheckSearch, keyCheckSearch, true, "fail when a search outcome disagrees with the oracle")
}

// resolve reads the final workload values from v.
func (o *WorkloadOptions) resolve(v *viper.Viper) error {
	seed, err := parseUint64(v.GetString(keySeed))
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	ops, err := parseUint64(v.GetString(keyOps))
	if err != nil {
		return fmt.Errorf("ops: %w", err)
	}
	maxKey := v.GetInt64(keyMaxKey)
	if maxKey < 1 {
		return fmt.Errorf("max-key must be at least 1, got %d", maxKey)
	}
	if err := oracle.CheckMaxKey(maxKey); err != nil {
		return fmt.Errorf("max-key: %w", err)
	}

	o.Seed = seed
	o.Ops = ops
	o.Table = v.GetString(keyTable)
	o.MaxKey = maxKey
	o.CheckSearch = v.GetBool(keyCheckSearch)
	return nil
}

// config builds the workload.Config for o.
func (o *WorkloadOptions) config(logger *slog.Logger) workload.Config {
	cfg := workload.DefaultConfig()
	cfg.Seed = o.Seed
	cfg.Ops = o.Ops
	if o.Table != "" {
		cfg.Table = o.Table
	}
	cfg.MaxKey = o.MaxKey
	cfg.CheckSearch = o.CheckSearch
	cfg.Logger = logger
	return cfg
}

// loadSettings layers flags, BTRTRACE_* variables, the --config file and
// flag defaults, in that order of precedence.
func loadSettings(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, key := range settingKeys {
		if f := fs.Lookup(key); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", key, err)
			}
		}
	}

	if path := v.GetString(keyConfig); path != "" {
		if err := readConfigFile(v, path); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// readConfigFile loads a YAML or JSON-with-comments file into v.
func readConfigFile(v *viper.Viper, path string) error {
	path, err := expandPath(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w %s: %w", errConfigRead, path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json", ".jsonc", ".hujson":
		// Standardize JSONC to JSON
		data, err = hujson.Standardize(data)
		if err != nil {
			return fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
		}
		v.SetConfigType("json")
	case ".yaml", ".yml":
		v.SetConfigType("yaml")
	default:
		return fmt.Errorf("%w: %q", errConfigUnsupported, ext)
	}

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}
	return nil
}

// expandPath expands a leading ~. Empty paths stay empty.
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, err)
	}
	return expanded, nil
}

// newLogger configures slog the way every command does: text on w, Debug
// when verbose. The logger also becomes the slog default.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
