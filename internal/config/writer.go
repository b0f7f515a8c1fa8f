package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultSampleInterval = 100 * time.Millisecond
	defaultHTTPTimeout    = 30 * time.Second
	defaultRetryDelay     = time.Second
)

// Default returns the configuration produced by defaults alone, ignoring the environment.
func Default() *Config {
	defaults := defaultPercents()
	return &Config{
		General:  GeneralConfig{Timezone: "UTC"},
		Database: DatabaseConfig{Type: "sqlite", Path: "data/msp-toolkit.db"},
		HealthChecks: HealthChecksConfig{
			Thresholds: ThresholdsConfig{
				CPUPercent:    defaults["health_checks.thresholds.cpu_percent"],
				MemoryPercent: defaults["health_checks.thresholds.memory_percent"],
				DiskPercent:   defaults["health_checks.thresholds.disk_percent"],
			},
			MetricsSource:  "local",
			DeviceSource:   "local",
			Concurrency:    5,
			SampleInterval: defaultSampleInterval,
			DiskPath:       "/",
			Static: StaticMetricsConfig{
				CPUPercent:    defaults["health_checks.static.cpu_percent"],
				MemoryPercent: defaults["health_checks.static.memory_percent"],
				DiskPercent:   defaults["health_checks.static.disk_percent"],
			},
		},
		Integrations: IntegrationsConfig{
			VictoriaMetrics: VictoriaMetricsConfig{
				Timeout:     defaultHTTPTimeout,
				ClientLabel: "client",
				Queries: QueriesConfig{
					CPU:    DefaultCPUQuery,
					Memory: DefaultMemoryQuery,
					Disk:   DefaultDiskQuery,
				},
			},
			N9E: N9EConfig{
				Timeout:   defaultHTTPTimeout,
				ClientTag: "client",
			},
		},
		HTTP: HTTPConfig{Retry: RetryConfig{MaxRetries: 3, BaseDelay: defaultRetryDelay}},
		Reporting: ReportingConfig{
			OutputDir:     "reports",
			DefaultFormat: "html",
			HistoryDays:   30,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Telemetry: TelemetryConfig{
			ServiceName: "msp-toolkit",
			Tracing:     TracingConfig{Exporter: "none", SamplePct: 1.0},
			Metrics:     MetricsConfig{Exporter: "none"},
		},
	}
}

// WriteFile serializes cfg as YAML to path, creating parent directories.
// An existing file is only replaced when overwrite is set.
func WriteFile(cfg *Config, path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	humanizeDurations(&doc)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// durationKeys are rendered as "100ms" style strings instead of nanosecond integers.
var durationKeys = map[string]bool{
	"sample_interval": true,
	"timeout":         true,
	"base_delay":      true,
}

func humanizeDurations(n *yaml.Node) {
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			if durationKeys[key.Value] && val.Kind == yaml.ScalarNode && val.Tag == "!!int" {
				if ns, err := strconv.ParseInt(val.Value, 10, 64); err == nil {
					val.Value = time.Duration(ns).String()
					val.Tag = "!!str"
				}
			}
		}
	}
	for _, c := range n.Content {
		humanizeDurations(c)
	}
}
