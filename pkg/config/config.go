// Package config loads process configuration from COGWRIGHT_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/chazu/cogwright/pkg/partlib"
)

// Config is the process configuration. CLI flags override these values.
type Config struct {
	LogLevel  string `env:"COGWRIGHT_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"COGWRIGHT_LOG_FORMAT" envDefault:"json"`
	Transport string `env:"COGWRIGHT_TRANSPORT"  envDefault:"stdio"`

	// PartCatalog is an optional YAML file overriding the stock parts.
	PartCatalog string `env:"COGWRIGHT_PART_CATALOG"`

	LinkageRadiusTolerance float64 `env:"COGWRIGHT_LINKAGE_RADIUS_TOLERANCE" envDefault:"0.05"`
	DiagnosticTolerance    float64 `env:"COGWRIGHT_DIAGNOSTIC_TOLERANCE"     envDefault:"0.01"`
	DiagnosticSamples      int     `env:"COGWRIGHT_DIAGNOSTIC_SAMPLES"       envDefault:"101"`

	ModuleCacheSize    int           `env:"COGWRIGHT_MODULE_CACHE_SIZE"    envDefault:"64"`
	ModuleMaxAge       time.Duration `env:"COGWRIGHT_MODULE_MAX_AGE"       envDefault:"5m"`
	ModuleFetchTimeout time.Duration `env:"COGWRIGHT_MODULE_FETCH_TIMEOUT" envDefault:"10s"`
	EvalTimeout        time.Duration `env:"COGWRIGHT_EVAL_TIMEOUT"         envDefault:"5s"`
}

// Load reads dotenv files (a missing file is not an error) and then parses
// the environment. Variables already set in the environment win over the
// dotenv file.
func Load(dotenv ...string) (Config, error) {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, path := range dotenv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges the type system cannot.
func (c Config) Validate() error {
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("config: log format %q: want json or console", c.LogFormat)
	}
	if c.Transport != "stdio" {
		return fmt.Errorf("config: transport %q: only stdio is supported", c.Transport)
	}
	if c.LinkageRadiusTolerance < 0 {
		return fmt.Errorf("config: linkage radius tolerance must not be negative")
	}
	if c.DiagnosticTolerance < 0 {
		return fmt.Errorf("config: diagnostic tolerance must not be negative")
	}
	if c.ModuleCacheSize <= 0 {
		return fmt.Errorf("config: module cache size must be positive")
	}
	if c.EvalTimeout <= 0 {
		return fmt.Errorf("config: eval timeout must be positive")
	}
	return nil
}

// Library returns the part library. An unset or missing catalog yields the
// stock parts.
func (c Config) Library() (partlib.Library, error) {
	return partlib.Load(c.PartCatalog)
}
