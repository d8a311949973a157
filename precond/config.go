package precond

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/gnolang/bowtie/internal/oracle"
)

// DefaultConfigPath is read when no configuration file is named.
const DefaultConfigPath = ".bowtie.yaml"

// Environment overrides applied by LoadConfig.
const (
	EnvSolver     = "BOWTIE_SOLVER"
	EnvSolverArgs = "BOWTIE_SOLVER_ARGS"
)

type Config struct {
	Name        string       `yaml:"name"`
	Solver      SolverConfig `yaml:"solver"`
	Poke        bool         `yaml:"poke"`
	Verify      bool         `yaml:"verify"`
	Cache       CacheConfig  `yaml:"cache"`
	MetricsFile string       `yaml:"metrics_file"`

	// DumpScripts logs every prover exchange at debug level.
	DumpScripts bool `yaml:"-"`
}

type SolverConfig struct {
	Path            string        `yaml:"path" validate:"required"`
	Logic           string        `yaml:"logic" validate:"required"`
	Args            []string      `yaml:"args"`
	IncrementalArgs []string      `yaml:"incremental_args"`
	SimplifyArgs    []string      `yaml:"simplify_args"`
	VersionArgs     []string      `yaml:"version_args"`
	MinVersion      string        `yaml:"min_version"`
	Timeout         time.Duration `yaml:"timeout" validate:"gte=0"`
	// Session keeps one incremental prover alive for the whole run.
	Session   bool     `yaml:"session"`
	ExtraArgs []string `yaml:"extra_args"`
}

type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir" validate:"required_if=Enabled true"`
}

// DefaultConfig mirrors oracle.DefaultConfig with the poke heuristic on.
func DefaultConfig() Config {
	o := oracle.DefaultConfig()
	return Config{
		Name: "bowtie",
		Solver: SolverConfig{
			Path:            o.Path,
			Logic:           o.Logic,
			Args:            o.Args,
			IncrementalArgs: o.IncrementalArgs,
			SimplifyArgs:    o.SimplifyArgs,
			VersionArgs:     o.VersionArgs,
			MinVersion:      o.MinVersion,
			Timeout:         o.Timeout,
			ExtraArgs:       []string{},
		},
		Poke:  true,
		Cache: CacheConfig{Dir: ".bowtie-cache"},
	}
}

// Oracle converts the solver section.
func (c SolverConfig) Oracle() oracle.Config {
	return oracle.Config{
		Path:            c.Path,
		Logic:           c.Logic,
		Args:            c.Args,
		IncrementalArgs: c.IncrementalArgs,
		SimplifyArgs:    c.SimplifyArgs,
		VersionArgs:     c.VersionArgs,
		ExtraArgs:       c.ExtraArgs,
		MinVersion:      c.MinVersion,
		Timeout:         c.Timeout,
	}
}

var validate = validator.New()

// LoadConfig reads the configuration at path over the defaults, then
// applies a .env file and the environment overrides. An empty path reads
// DefaultConfigPath if it exists.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	optional := path == ""
	if optional {
		path = DefaultConfigPath
	}
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if cfg, err = ParseConfig(f); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if v := os.Getenv(EnvSolver); v != "" {
		cfg.Solver.Path = v
	}
	if v := os.Getenv(EnvSolverArgs); v != "" {
		cfg.Solver.ExtraArgs = append(cfg.Solver.ExtraArgs, strings.Fields(v)...)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseConfig decodes a YAML document over the defaults.
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// WriteDefaultConfig writes the default configuration to path.
func WriteDefaultConfig(path string) error {
	if path == "" {
		path = DefaultConfigPath
	}
	d, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(d)
	return err
}
