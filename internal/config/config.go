// Package config provides unified configuration loading for riskloop.
// It supports loading from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/riskloop/internal/constants"
	"github.com/nvandessel/riskloop/internal/models"
)

// RiskloopConfig contains all riskloop configuration settings.
type RiskloopConfig struct {
	// Simulation contains the default simulation invocation.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Output contains report settings.
	Output OutputConfig `json:"output" yaml:"output"`

	// Logging contains settings for operational logging and the audit trail.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SimulationConfig configures a simulation run.
type SimulationConfig struct {
	// Trials is the number of Monte Carlo trials.
	Trials int `json:"trials" yaml:"trials" validate:"gte=1,lte=10000000"`

	// Seed fixes the random seed. Nil draws a fresh seed per run.
	Seed *uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`

	// Percentiles are the levels reported in the percentile table, each in (0, 100).
	Percentiles []float64 `json:"percentiles" yaml:"percentiles" validate:"min=1,dive,gt=0,lt=100"`

	// Workers is the number of simulation goroutines; 0 means one per CPU.
	Workers int `json:"workers" yaml:"workers" validate:"gte=0,lte=1024"`
}

// OutputConfig configures reports.
type OutputConfig struct {
	// Dir is where report files are written when given as bare names.
	Dir string `json:"dir" yaml:"dir"`

	// CurvePoints is the number of log-spaced points sampled from the exceedance curve.
	CurvePoints int `json:"curve_points" yaml:"curve_points" validate:"gte=2,lte=100000"`
}

// LoggingConfig configures riskloop's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" also enables the audit trail in .riskloop/audit.jsonl.
	Level string `json:"level" yaml:"level" validate:"omitempty,oneof=info debug trace"`
}

// Default returns a RiskloopConfig with sensible defaults.
func Default() *RiskloopConfig {
	return &RiskloopConfig{
		Simulation: SimulationConfig{
			Trials:      constants.DefaultTrials,
			Percentiles: constants.DefaultPercentiles(),
		},
		Output: OutputConfig{
			Dir:         ".",
			CurvePoints: constants.DefaultCurvePoints,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.riskloop/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, constants.DirName, constants.ConfigFileName), nil
}

// Load loads configuration from the default location and environment variables.
// Order: defaults -> ~/.riskloop/config.yaml -> environment variables
func Load() (*RiskloopConfig, error) {
	config := Default()

	if path, err := DefaultPath(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			fileConfig, loadErr := LoadFromFile(path)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadPath is Load with path in place of ~/.riskloop/config.yaml. Unlike
// Load, the file must exist. An empty path falls back to Load.
func LoadPath(path string) (*RiskloopConfig, error) {
	if path == "" {
		return Load()
	}
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Keys missing
// from the file keep their defaults.
func LoadFromFile(path string) (*RiskloopConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	config.Output.Dir = os.ExpandEnv(config.Output.Dir)
	return config, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks that the configuration is valid. The first violation is
// returned as a *models.ConfigurationError.
func (c *RiskloopConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validating config: %w", err)
	}
	fe := verrs[0]
	return &models.ConfigurationError{
		Field:  fieldPath(fe.Namespace()),
		Value:  fe.Value(),
		Reason: describe(fe),
	}
}

// fieldPath drops the root struct name from a validator namespace,
// e.g. "RiskloopConfig.simulation.trials" -> "simulation.trials".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "gt":
		return "must be > " + fe.Param()
	case "lt":
		return "must be < " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " entries"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

// applyEnvOverrides applies RISKLOOP_* environment variable overrides.
// Unparseable values are reported rather than ignored.
func applyEnvOverrides(config *RiskloopConfig) error {
	if v := os.Getenv("RISKLOOP_TRIALS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &models.ConfigurationError{Field: "RISKLOOP_TRIALS", Value: v, Reason: "must be an integer"}
		}
		config.Simulation.Trials = n
	}

	if v := os.Getenv("RISKLOOP_SEED"); v != "" {
		s, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return &models.ConfigurationError{Field: "RISKLOOP_SEED", Value: v, Reason: "must be an unsigned integer"}
		}
		config.Simulation.Seed = &s
	}

	if v := os.Getenv("RISKLOOP_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &models.ConfigurationError{Field: "RISKLOOP_WORKERS", Value: v, Reason: "must be an integer"}
		}
		config.Simulation.Workers = n
	}

	if v := os.Getenv("RISKLOOP_PERCENTILES"); v != "" {
		ps, err := ParsePercentiles(v)
		if err != nil {
			return err
		}
		config.Simulation.Percentiles = ps
	}

	if v := os.Getenv("RISKLOOP_OUTPUT_DIR"); v != "" {
		config.Output.Dir = v
	}

	if v := os.Getenv("RISKLOOP_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	return nil
}

// ParsePercentiles parses a comma-separated list such as "50,90,99.5".
// Range checking is left to Validate.
func ParsePercentiles(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, &models.ConfigurationError{Field: "percentiles", Value: p, Reason: "must be a number"}
		}
		out = append(out, f)
	}
	return out, nil
}

// SaveToFile writes the configuration as YAML, creating parent directories.
func (c *RiskloopConfig) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
