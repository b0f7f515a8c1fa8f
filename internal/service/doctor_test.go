package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msp-toolkit/internal/config"
	"msp-toolkit/internal/metrics"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func doctorConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Reporting.OutputDir = filepath.Join(t.TempDir(), "reports")
	return cfg
}

func checkByName(r *DoctorReport, name string) *DoctorCheck {
	for _, c := range r.Checks {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestDoctor_Healthy(t *testing.T) {
	env := newTestEnv(t)
	d := NewDoctor(doctorConfig(t), env.db, metrics.NewStaticSource(45.2, 62.3, 78.5), zerolog.Nop(),
		WithIntegration("n9e", pingFunc(func(context.Context) error { return nil })))

	report := d.Run(context.Background())
	assert.True(t, report.Healthy)
	require.Len(t, report.Checks, 5)

	assert.Equal(t, DoctorOK, checkByName(report, "config").Status)
	assert.Equal(t, DoctorOK, checkByName(report, "database").Status)
	assert.Contains(t, checkByName(report, "database").Message, "schema version 4")
	assert.Equal(t, "static source, CPU usage: 45.2%", checkByName(report, "metrics").Message)
	assert.Equal(t, DoctorOK, checkByName(report, "report_output").Status)
	assert.Equal(t, DoctorOK, checkByName(report, "n9e").Status)
}

func TestDoctor_Failures(t *testing.T) {
	cfg := doctorConfig(t)
	cfg.Logging.Level = "verbose"

	d := NewDoctor(cfg, nil, &fakeSource{err: errors.New("no sensor")}, zerolog.Nop(),
		WithIntegration("victoriametrics", pingFunc(func(context.Context) error { return errors.New("connection refused") })))

	report := d.Run(context.Background())
	assert.False(t, report.Healthy)

	assert.Equal(t, DoctorFailed, checkByName(report, "config").Status)
	assert.Contains(t, checkByName(report, "config").Message, "logging.level")
	assert.Equal(t, DoctorFailed, checkByName(report, "database").Status)
	assert.Equal(t, DoctorFailed, checkByName(report, "metrics").Status)
	assert.Equal(t, DoctorOK, checkByName(report, "report_output").Status)
	assert.Equal(t, "connection refused", checkByName(report, "victoriametrics").Message)
}

func TestDoctor_RemoteSourceWithoutSampleClient(t *testing.T) {
	env := newTestEnv(t)
	remote := metrics.NewRemoteSource(nil, config.Default().Integrations.VictoriaMetrics, zerolog.Nop())

	report := NewDoctor(doctorConfig(t), env.db, remote, zerolog.Nop()).Run(context.Background())
	assert.True(t, report.Healthy, "skipped checks do not fail the run")
	assert.Equal(t, DoctorSkipped, checkByName(report, "metrics").Status)
}
