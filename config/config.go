// Package config loads solver and runtime settings for calibration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds solver settings and the runtime concerns around a
// calibration run.
type Config struct {
	Solver  SolverConfig
	Log     LogConfig
	Metrics MetricsConfig
	Store   StoreConfig
}

// SolverConfig controls the root finder and the block orchestrator.
type SolverConfig struct {
	// AbsoluteTolerance is the residual infinity-norm below which a unit is
	// calibrated.
	AbsoluteTolerance float64

	// RelativeTolerance stops the iteration once a full Newton step is
	// smaller than RelativeTolerance·(1+|x|).
	RelativeTolerance float64

	// MaxIterations is the maximum number of root-finder iterations per unit.
	MaxIterations int

	// RootFinder selects "newton" or "broyden".
	RootFinder string

	// Parallelism bounds the goroutines evaluating Jacobian rows. Values
	// below 2 evaluate rows sequentially.
	Parallelism int

	// Timeout bounds a whole block calibration, or a single unit solved on
	// its own. Zero means no limit.
	Timeout time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

// StoreConfig holds the Postgres connection used to persist results. An
// empty DSN disables persistence.
type StoreConfig struct {
	DSN string
}

// DefaultConfig provides production-ready default values.
var DefaultConfig = Config{
	Solver: SolverConfig{
		AbsoluteTolerance: 1e-11,
		RelativeTolerance: 1e-14,
		MaxIterations:     100,
		RootFinder:        "newton",
		Parallelism:       1,
	},
	Log: LogConfig{
		Level:  "info",
		Format: "console",
		Output: "stderr",
	},
	Metrics: MetricsConfig{
		Namespace: "curvecal",
	},
}

// Load reads configuration from an optional YAML file and the environment.
// Priority (highest to lowest):
// 1. Environment variables with CURVECAL_ prefix (e.g., CURVECAL_SOLVER_MAX_ITERATIONS)
// 2. The file at path, or curvecal.yaml in the working directory when path is empty
// 3. DefaultConfig
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("curvecal")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No file is fine: defaults and env vars apply.
	}

	v.SetEnvPrefix("CURVECAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Solver: SolverConfig{
			AbsoluteTolerance: v.GetFloat64("solver.absolute_tolerance"),
			RelativeTolerance: v.GetFloat64("solver.relative_tolerance"),
			MaxIterations:     v.GetInt("solver.max_iterations"),
			RootFinder:        strings.ToLower(v.GetString("solver.root_finder")),
			Parallelism:       v.GetInt("solver.parallelism"),
			Timeout:           v.GetDuration("solver.timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Metrics: MetricsConfig{
			Enabled:   v.GetBool("metrics.enabled"),
			Namespace: v.GetString("metrics.namespace"),
		},
		Store: StoreConfig{
			DSN: v.GetString("store.dsn"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig
	v.SetDefault("solver.absolute_tolerance", d.Solver.AbsoluteTolerance)
	v.SetDefault("solver.relative_tolerance", d.Solver.RelativeTolerance)
	v.SetDefault("solver.max_iterations", d.Solver.MaxIterations)
	v.SetDefault("solver.root_finder", d.Solver.RootFinder)
	v.SetDefault("solver.parallelism", d.Solver.Parallelism)
	v.SetDefault("solver.timeout", d.Solver.Timeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("store.dsn", d.Store.DSN)
}

// Validate rejects settings the solver cannot run with.
func (c *Config) Validate() error {
	return c.Solver.Validate()
}

// Validate rejects settings the solver cannot run with.
func (s SolverConfig) Validate() error {
	var errs []error
	if !(s.AbsoluteTolerance > 0) {
		errs = append(errs, fmt.Errorf("solver.absolute_tolerance must be positive, got %g", s.AbsoluteTolerance))
	}
	if s.RelativeTolerance < 0 {
		errs = append(errs, fmt.Errorf("solver.relative_tolerance must not be negative, got %g", s.RelativeTolerance))
	}
	if s.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("solver.max_iterations must be positive, got %d", s.MaxIterations))
	}
	switch s.RootFinder {
	case "", "newton", "broyden":
	default:
		errs = append(errs, fmt.Errorf("solver.root_finder must be newton or broyden, got %q", s.RootFinder))
	}
	if s.Timeout < 0 {
		errs = append(errs, fmt.Errorf("solver.timeout must not be negative, got %s", s.Timeout))
	}
	return errors.Join(errs...)
}
