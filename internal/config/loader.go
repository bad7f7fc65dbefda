package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"litertlm/internal/litert"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir    string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	Backend      string `json:"backend" yaml:"backend" toml:"backend"`
	BudgetMB     int    `json:"budget_mb" yaml:"budget_mb" toml:"budget_mb"`
	MarginMB     int    `json:"margin_mb" yaml:"margin_mb" toml:"margin_mb"`
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`

	MaxQueueDepth int    `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxConcurrent int    `json:"max_concurrent" yaml:"max_concurrent" toml:"max_concurrent"`
	MaxWait       string `json:"max_wait" yaml:"max_wait" toml:"max_wait"`
	DrainTimeout  string `json:"drain_timeout" yaml:"drain_timeout" toml:"drain_timeout"`
	LoadRetries   int    `json:"load_retries" yaml:"load_retries" toml:"load_retries"`
	StateFile     string `json:"state_file" yaml:"state_file" toml:"state_file"`

	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
	CORSAllowedMethods []string `json:"cors_allowed_methods" yaml:"cors_allowed_methods" toml:"cors_allowed_methods"`
	CORSAllowedHeaders []string `json:"cors_allowed_headers" yaml:"cors_allowed_headers" toml:"cors_allowed_headers"`

	MaxBodyBytes        int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	InferTimeoutSeconds int    `json:"infer_timeout_seconds" yaml:"infer_timeout_seconds" toml:"infer_timeout_seconds"`
	LogLevel            string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Validate reports every problem in cfg at once. Unset fields are fine.
func (c Config) Validate() error {
	var err error
	if c.Backend != "" {
		if _, perr := litert.ParseBackend(c.Backend); perr != nil {
			err = multierr.Append(err, fmt.Errorf("backend: %w", perr))
		}
	}
	if c.BudgetMB < 0 {
		err = multierr.Append(err, fmt.Errorf("budget_mb must be >= 0, got %d", c.BudgetMB))
	}
	if c.MarginMB < 0 {
		err = multierr.Append(err, fmt.Errorf("margin_mb must be >= 0, got %d", c.MarginMB))
	}
	if c.BudgetMB > 0 && c.MarginMB >= c.BudgetMB {
		err = multierr.Append(err, fmt.Errorf("margin_mb (%d) must be smaller than budget_mb (%d)", c.MarginMB, c.BudgetMB))
	}
	if c.MaxQueueDepth < 0 {
		err = multierr.Append(err, fmt.Errorf("max_queue_depth must be >= 0, got %d", c.MaxQueueDepth))
	}
	if c.MaxConcurrent < 0 {
		err = multierr.Append(err, fmt.Errorf("max_concurrent must be >= 0, got %d", c.MaxConcurrent))
	}
	if c.LoadRetries < 0 {
		err = multierr.Append(err, fmt.Errorf("load_retries must be >= 0, got %d", c.LoadRetries))
	}
	if c.MaxBodyBytes < 0 {
		err = multierr.Append(err, fmt.Errorf("max_body_bytes must be >= 0, got %d", c.MaxBodyBytes))
	}
	if c.InferTimeoutSeconds < 0 {
		err = multierr.Append(err, fmt.Errorf("infer_timeout_seconds must be >= 0, got %d", c.InferTimeoutSeconds))
	}
	if _, derr := parseDuration("max_wait", c.MaxWait); derr != nil {
		err = multierr.Append(err, derr)
	}
	if _, derr := parseDuration("drain_timeout", c.DrainTimeout); derr != nil {
		err = multierr.Append(err, derr)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		err = multierr.Append(err, fmt.Errorf("log_level: unknown level %q", c.LogLevel))
	}
	return err
}

// MaxWaitDuration returns max_wait, or def when unset or invalid.
func (c Config) MaxWaitDuration(def time.Duration) time.Duration {
	if d, err := parseDuration("max_wait", c.MaxWait); err == nil && d > 0 {
		return d
	}
	return def
}

// DrainTimeoutDuration returns drain_timeout, or def when unset or invalid.
func (c Config) DrainTimeoutDuration(def time.Duration) time.Duration {
	if d, err := parseDuration("drain_timeout", c.DrainTimeout); err == nil && d > 0 {
		return d
	}
	return def
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", field, s)
	}
	return d, nil
}
