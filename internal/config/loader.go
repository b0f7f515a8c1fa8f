// Package config provides configuration management for the MSP toolkit.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"msp-toolkit/internal/model"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "MSP"

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "msp-toolkit.yaml"

// Default PromQL expressions for categraf-collected host metrics.
const (
	DefaultCPUQuery    = `cpu_usage_active{cpu="cpu-total"}`
	DefaultMemoryQuery = `mem_used_percent`
	DefaultDiskQuery   = `disk_used_percent{path="/"}`
)

// percentKeys are coerced to float before unmarshalling so that a non-numeric
// value is reported under its full key instead of a decoder error.
var percentKeys = []string{
	"health_checks.thresholds.cpu_percent",
	"health_checks.thresholds.memory_percent",
	"health_checks.thresholds.disk_percent",
	"health_checks.static.cpu_percent",
	"health_checks.static.memory_percent",
	"health_checks.static.disk_percent",
}

// Load reads configuration from the specified YAML file and environment variables.
// Environment variables take precedence over file values.
// Environment variable format: MSP_<SECTION>_<KEY> (e.g., MSP_DATABASE_PATH)
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return decode(v)
}

// LoadDefaults builds a configuration from defaults and environment variables only.
func LoadDefaults() (*Config, error) {
	return decode(newViper())
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are ignored; existing variables are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func decode(v *viper.Viper) (*Config, error) {
	if err := coercePercents(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// coercePercents converts every percentage key to float64 in place.
// Unset or null values fall back to the default; anything that cannot be read
// as a number is a validation error naming the full key.
func coercePercents(v *viper.Viper) error {
	var errs ValidationErrors
	defaults := defaultPercents()

	for _, key := range percentKeys {
		raw := v.Get(key)
		if raw == nil {
			v.Set(key, defaults[key])
			continue
		}
		if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
			v.Set(key, defaults[key])
			continue
		}
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			errs = append(errs, &ValidationError{
				Field:   key,
				Tag:     "numeric",
				Value:   raw,
				Message: fmt.Sprintf("value must be numeric, got %v", raw),
			})
			continue
		}
		v.Set(key, f)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func defaultPercents() map[string]float64 {
	th := model.DefaultThresholds()
	return map[string]float64{
		"health_checks.thresholds.cpu_percent":    th.CPUPercent,
		"health_checks.thresholds.memory_percent": th.MemoryPercent,
		"health_checks.thresholds.disk_percent":   th.DiskPercent,
		"health_checks.static.cpu_percent":        45.2,
		"health_checks.static.memory_percent":     62.3,
		"health_checks.static.disk_percent":       78.5,
	}
}

// setDefaults sets default values for all configuration options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("general.company_name", "")
	v.SetDefault("general.timezone", "UTC")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "data/msp-toolkit.db")

	for key, value := range defaultPercents() {
		v.SetDefault(key, value)
	}
	v.SetDefault("health_checks.metrics_source", "local")
	v.SetDefault("health_checks.device_source", "local")
	v.SetDefault("health_checks.concurrency", 5)
	v.SetDefault("health_checks.sample_interval", 100*time.Millisecond)
	v.SetDefault("health_checks.disk_path", "/")

	v.SetDefault("integrations.victoriametrics.timeout", 30*time.Second)
	v.SetDefault("integrations.victoriametrics.client_label", "client")
	v.SetDefault("integrations.victoriametrics.queries.cpu", DefaultCPUQuery)
	v.SetDefault("integrations.victoriametrics.queries.memory", DefaultMemoryQuery)
	v.SetDefault("integrations.victoriametrics.queries.disk", DefaultDiskQuery)
	v.SetDefault("integrations.n9e.timeout", 30*time.Second)
	v.SetDefault("integrations.n9e.client_tag", "client")

	v.SetDefault("http.retry.max_retries", 3)
	v.SetDefault("http.retry.base_delay", 1*time.Second)

	v.SetDefault("reporting.output_dir", "reports")
	v.SetDefault("reporting.default_format", "html")
	v.SetDefault("reporting.history_days", 30)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("telemetry.service_name", "msp-toolkit")
	v.SetDefault("telemetry.tracing.enabled", false)
	v.SetDefault("telemetry.tracing.exporter", "none")
	v.SetDefault("telemetry.tracing.sample_pct", 1.0)
	v.SetDefault("telemetry.metrics.enabled", false)
	v.SetDefault("telemetry.metrics.exporter", "none")
}
