// Package config provides configuration management for the MSP toolkit.
package config

import (
	"time"

	"msp-toolkit/internal/model"
)

// Config is the root configuration structure for the MSP toolkit.
type Config struct {
	General      GeneralConfig      `mapstructure:"general" yaml:"general"`
	Database     DatabaseConfig     `mapstructure:"database" yaml:"database"`
	HealthChecks HealthChecksConfig `mapstructure:"health_checks" yaml:"health_checks"`
	Integrations IntegrationsConfig `mapstructure:"integrations" yaml:"integrations"`
	HTTP         HTTPConfig         `mapstructure:"http" yaml:"http"`
	Reporting    ReportingConfig    `mapstructure:"reporting" yaml:"reporting"`
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry" yaml:"telemetry"`
}

// GeneralConfig contains company-wide settings.
type GeneralConfig struct {
	CompanyName string `mapstructure:"company_name" yaml:"company_name"`
	Timezone    string `mapstructure:"timezone" yaml:"timezone" validate:"timezone"`
}

// DatabaseConfig contains the storage backend settings.
type DatabaseConfig struct {
	Type string `mapstructure:"type" yaml:"type" validate:"oneof=sqlite"`
	Path string `mapstructure:"path" yaml:"path" validate:"required"`
}

// HealthChecksConfig contains health check behavior.
type HealthChecksConfig struct {
	Thresholds     ThresholdsConfig    `mapstructure:"thresholds" yaml:"thresholds"`
	MetricsSource  string              `mapstructure:"metrics_source" yaml:"metrics_source" validate:"oneof=local remote static"`
	DeviceSource   string              `mapstructure:"device_source" yaml:"device_source" validate:"oneof=local remote"`
	Concurrency    int                 `mapstructure:"concurrency" yaml:"concurrency" validate:"gte=1,lte=50"`
	SampleInterval time.Duration       `mapstructure:"sample_interval" yaml:"sample_interval"`
	DiskPath       string              `mapstructure:"disk_path" yaml:"disk_path"`
	Static         StaticMetricsConfig `mapstructure:"static" yaml:"static"`
}

// ThresholdsConfig contains the percentage thresholds for threshold-based checks.
type ThresholdsConfig struct {
	CPUPercent    float64 `mapstructure:"cpu_percent" yaml:"cpu_percent" validate:"gte=0,lte=100"`
	MemoryPercent float64 `mapstructure:"memory_percent" yaml:"memory_percent" validate:"gte=0,lte=100"`
	DiskPercent   float64 `mapstructure:"disk_percent" yaml:"disk_percent" validate:"gte=0,lte=100"`
}

// ThresholdSet converts the configured thresholds into the engine's model.
func (t ThresholdsConfig) ThresholdSet() model.ThresholdSet {
	return model.ThresholdSet{
		CPUPercent:    t.CPUPercent,
		MemoryPercent: t.MemoryPercent,
		DiskPercent:   t.DiskPercent,
	}
}

// StaticMetricsConfig holds the fixed readings reported by the static metrics source.
type StaticMetricsConfig struct {
	CPUPercent    float64 `mapstructure:"cpu_percent" yaml:"cpu_percent" validate:"gte=0,lte=100"`
	MemoryPercent float64 `mapstructure:"memory_percent" yaml:"memory_percent" validate:"gte=0,lte=100"`
	DiskPercent   float64 `mapstructure:"disk_percent" yaml:"disk_percent" validate:"gte=0,lte=100"`
}

// IntegrationsConfig contains configurations for external systems.
type IntegrationsConfig struct {
	VictoriaMetrics VictoriaMetricsConfig `mapstructure:"victoriametrics" yaml:"victoriametrics"`
	N9E             N9EConfig             `mapstructure:"n9e" yaml:"n9e"`
}

// VictoriaMetricsConfig configures the remote metrics source.
type VictoriaMetricsConfig struct {
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	ClientLabel string        `mapstructure:"client_label" yaml:"client_label"` // label carrying the client id
	Queries     QueriesConfig `mapstructure:"queries" yaml:"queries"`
}

// QueriesConfig holds the PromQL expressions used per threshold-based check.
type QueriesConfig struct {
	CPU    string `mapstructure:"cpu" yaml:"cpu"`
	Memory string `mapstructure:"memory" yaml:"memory"`
	Disk   string `mapstructure:"disk" yaml:"disk"`
}

// N9EConfig configures the Nightingale RMM used as the remote device registry.
type N9EConfig struct {
	Endpoint  string        `mapstructure:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	Token     string        `mapstructure:"token" yaml:"token"` // plain value or secretref:<provider>:<ref>
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	ClientTag string        `mapstructure:"client_tag" yaml:"client_tag"` // tag key identifying the owning client
	Query     string        `mapstructure:"query" yaml:"query"`           // extra target filter
}

// HTTPConfig contains HTTP client configurations including retry settings.
type HTTPConfig struct {
	Retry RetryConfig `mapstructure:"retry" yaml:"retry"`
}

// RetryConfig defines retry behavior for HTTP requests.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries" validate:"gte=0,lte=10"`
	BaseDelay  time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
}

// ReportingConfig contains configurations for report generation.
type ReportingConfig struct {
	OutputDir       string `mapstructure:"output_dir" yaml:"output_dir" validate:"required"`
	TemplateDir     string `mapstructure:"template_dir" yaml:"template_dir"`
	DefinitionsFile string `mapstructure:"definitions_file" yaml:"definitions_file"`
	DefaultFormat   string `mapstructure:"default_format" yaml:"default_format" validate:"oneof=html markdown excel pdf"`
	HistoryDays     int    `mapstructure:"history_days" yaml:"history_days" validate:"gte=1,lte=365"`
}

// LoggingConfig contains configurations for logging.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=json console"`
}

// TelemetryConfig configures tracing and metrics for tool execution.
type TelemetryConfig struct {
	ServiceName string        `mapstructure:"service_name" yaml:"service_name"`
	Tracing     TracingConfig `mapstructure:"tracing" yaml:"tracing"`
	Metrics     MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
	Exporter  string  `mapstructure:"exporter" yaml:"exporter" validate:"oneof=none stdout otlp"`
	SamplePct float64 `mapstructure:"sample_pct" yaml:"sample_pct" validate:"gte=0,lte=1"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Exporter string `mapstructure:"exporter" yaml:"exporter" validate:"oneof=none stdout otlp prometheus"`
}
