// Package config loads pipeline configuration from defaults, an optional
// keydiff.yaml, a .env file, and KEYDIFF_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"pkg.jsn.cam/keydiff/internal/logging"
	"pkg.jsn.cam/keydiff/pkg/keydiff"
)

// File configures one input file: its path and which whitespace-split
// fields form the instance key and the compared value.
type File struct {
	Path string `mapstructure:"path"`
	// KeyCols is a comma-separated list of 0-based key column indices.
	KeyCols  string `mapstructure:"key_cols"`
	ValueCol int    `mapstructure:"value_col"`
}

// Columns parses the file's column configuration.
func (f File) Columns() (keydiff.Columns, error) {
	keyCols, err := ParseCols(f.KeyCols)
	if err != nil {
		return keydiff.Columns{}, err
	}
	cols := keydiff.Columns{Key: keyCols, Value: f.ValueCol}
	if f.ValueCol < 0 {
		return keydiff.Columns{}, fmt.Errorf("%w: value column %d", keydiff.ErrInvalidColumns, f.ValueCol)
	}
	return cols, nil
}

// Config holds all configuration for a comparison run.
type Config struct {
	File1 File `mapstructure:"file1"`
	File2 File `mapstructure:"file2"`

	// Mode is numeric or string.
	Mode string `mapstructure:"mode"`
	// Shards is K, the cross-machine partition count.
	Shards int `mapstructure:"shards"`
	// Workers is N, the intra-shard parse parallelism.
	Workers int `mapstructure:"workers"`

	ShardDir     string `mapstructure:"shard_dir"`
	ResultsDir   string `mapstructure:"results_dir"`
	ManifestPath string `mapstructure:"manifest_path"`
	AllowPartial bool   `mapstructure:"allow_partial"`

	Log logging.Config `mapstructure:"log"`
}

// Load reads configuration from the given directory. Environment variables
// (KEYDIFF_FILE1_PATH, KEYDIFF_SHARDS, ...) override file values.
func Load(dir string) (*Config, error) {
	// Load .env if present; absence is not an error.
	_ = godotenv.Overload(filepath.Join(dir, ".env"))

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("keydiff")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("KEYDIFF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(keydiff.ModeNumeric))
	v.SetDefault("shards", 10)
	v.SetDefault("workers", 0) // 0 = runtime.NumCPU at the call site
	v.SetDefault("shard_dir", "shards")
	v.SetDefault("results_dir", "results")
	v.SetDefault("manifest_path", filepath.Join("results", "manifest.db"))
	v.SetDefault("allow_partial", false)
	// Empty defaults register the keys so AutomaticEnv can fill them in
	// during Unmarshal.
	v.SetDefault("file1.path", "")
	v.SetDefault("file1.key_cols", "")
	v.SetDefault("file1.value_col", 1)
	v.SetDefault("file2.path", "")
	v.SetDefault("file2.key_cols", "")
	v.SetDefault("file2.value_col", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate checks the run configuration. Arity must match between the two
// files: an instance's identity is comparable only if both files key on the
// same number of fields.
func (c *Config) Validate() error {
	if !keydiff.Mode(c.Mode).Valid() {
		return fmt.Errorf("%w: %q", keydiff.ErrInvalidMode, c.Mode)
	}
	if c.Shards < 1 {
		return fmt.Errorf("%w: %d", keydiff.ErrInvalidShards, c.Shards)
	}

	cols1, err := c.File1.Columns()
	if err != nil {
		return fmt.Errorf("file1: %w", err)
	}
	cols2, err := c.File2.Columns()
	if err != nil {
		return fmt.Errorf("file2: %w", err)
	}
	if cols1.Arity() != cols2.Arity() {
		return fmt.Errorf("%w: %d vs %d", keydiff.ErrArityMismatch, cols1.Arity(), cols2.Arity())
	}
	return nil
}

// ParseCols parses a comma-separated list of 0-based column indices.
func ParseCols(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	cols := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", keydiff.ErrInvalidColumns, s)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: negative index %d", keydiff.ErrInvalidColumns, n)
		}
		cols = append(cols, n)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: no key columns in %q", keydiff.ErrInvalidColumns, s)
	}
	return cols, nil
}
