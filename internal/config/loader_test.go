// Package config provides configuration management for the MSP toolkit.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msp-toolkit/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "msp-toolkit.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoad_Success(t *testing.T) {
	path := writeConfig(t, `
general:
  company_name: "Acme MSP"
database:
  path: "/tmp/msp.db"
health_checks:
  thresholds:
    cpu_percent: 70
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.General.CompanyName != "Acme MSP" {
		t.Errorf("CompanyName = %v, want Acme MSP", cfg.General.CompanyName)
	}
	if cfg.Database.Path != "/tmp/msp.db" {
		t.Errorf("Database.Path = %v, want /tmp/msp.db", cfg.Database.Path)
	}
	if cfg.HealthChecks.Thresholds.CPUPercent != 70 {
		t.Errorf("CPUPercent = %v, want 70", cfg.HealthChecks.Thresholds.CPUPercent)
	}

	// Verify defaults
	if cfg.HealthChecks.Thresholds.MemoryPercent != 90 {
		t.Errorf("MemoryPercent = %v, want 90", cfg.HealthChecks.Thresholds.MemoryPercent)
	}
	if cfg.HealthChecks.Thresholds.DiskPercent != 85 {
		t.Errorf("DiskPercent = %v, want 85", cfg.HealthChecks.Thresholds.DiskPercent)
	}
	if cfg.HealthChecks.SampleInterval != 100*time.Millisecond {
		t.Errorf("SampleInterval = %v, want 100ms", cfg.HealthChecks.SampleInterval)
	}
	if cfg.HTTP.Retry.MaxRetries != 3 {
		t.Errorf("MaxRetries = %v, want 3", cfg.HTTP.Retry.MaxRetries)
	}
	if cfg.Reporting.DefaultFormat != "html" {
		t.Errorf("DefaultFormat = %v, want html", cfg.Reporting.DefaultFormat)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load("")
	if err == nil {
		t.Error("Load() should return error for empty path")
	}
}

func TestLoad_NonNumericThreshold(t *testing.T) {
	path := writeConfig(t, `
health_checks:
  thresholds:
    cpu_percent: "fast"
`)

	_, err := Load(path)
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.True(t, verrs.Has("health_checks.thresholds.cpu_percent"))
	assert.Contains(t, err.Error(), "health_checks.thresholds.cpu_percent")
	assert.Equal(t, model.CodeValidation, model.ErrorCode(err))
}

func TestLoad_NumericStringThreshold(t *testing.T) {
	path := writeConfig(t, `
health_checks:
  thresholds:
    memory_percent: "75.5"
    disk_percent:
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 75.5, cfg.HealthChecks.Thresholds.MemoryPercent)
	assert.Equal(t, 85.0, cfg.HealthChecks.Thresholds.DiskPercent, "null falls back to default")
}

func TestLoad_ThresholdOutOfRange(t *testing.T) {
	path := writeConfig(t, `
health_checks:
  thresholds:
    disk_percent: 150
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "health_checks.thresholds.disk_percent")
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "file.db"
`)

	t.Setenv("MSP_DATABASE_PATH", "env.db")
	t.Setenv("MSP_HEALTH_CHECKS_THRESHOLDS_CPU_PERCENT", "60")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Database.Path)
	assert.Equal(t, 60.0, cfg.HealthChecks.Thresholds.CPUPercent)
}

func TestLoad_EnvironmentNonNumericThreshold(t *testing.T) {
	path := writeConfig(t, "general:\n  company_name: x\n")
	t.Setenv("MSP_HEALTH_CHECKS_THRESHOLDS_CPU_PERCENT", "fast")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "health_checks.thresholds.cpu_percent")
}

func TestLoad_RemoteMetricsRequiresEndpoint(t *testing.T) {
	path := writeConfig(t, `
health_checks:
  metrics_source: remote
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integrations.victoriametrics.endpoint")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadDefaults()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultThresholds(), cfg.HealthChecks.Thresholds.ThresholdSet())
	assert.Equal(t, "local", cfg.HealthChecks.MetricsSource)
	assert.Equal(t, 45.2, cfg.HealthChecks.Static.CPUPercent)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("MSP_TEST_DOTENV_KEY=from-file\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("MSP_TEST_DOTENV_KEY") })

	require.NoError(t, LoadDotEnv(envPath, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("MSP_TEST_DOTENV_KEY"))
}

func TestWriteFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "msp-toolkit.yaml")
	cfg := Default()
	cfg.General.CompanyName = "Round Trip"

	require.NoError(t, WriteFile(cfg, path, false))
	assert.Error(t, WriteFile(cfg, path, false), "existing file must not be replaced")
	require.NoError(t, WriteFile(cfg, path, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sample_interval: 100ms")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
