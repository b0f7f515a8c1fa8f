package service

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"

	"msp-toolkit/internal/config"
	"msp-toolkit/internal/metrics"
	"msp-toolkit/internal/storage"
)

// Doctor check outcomes.
const (
	DoctorOK      = "ok"
	DoctorFailed  = "failed"
	DoctorSkipped = "skipped"
)

// DoctorCheck is the outcome of one diagnostic.
type DoctorCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// DoctorReport collects every diagnostic. Healthy is false when any check failed.
type DoctorReport struct {
	Healthy bool           `json:"healthy"`
	Checks  []*DoctorCheck `json:"checks"`
}

// Pinger is an integration endpoint that can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Doctor diagnoses the installation.
type Doctor struct {
	cfg          *config.Config
	db           *sql.DB
	source       metrics.Source
	sampleClient string
	integrations map[string]Pinger
	logger       zerolog.Logger
}

// DoctorOption configures a Doctor.
type DoctorOption func(*Doctor)

// WithIntegration adds an endpoint to probe.
func WithIntegration(name string, p Pinger) DoctorOption {
	return func(d *Doctor) {
		d.integrations[name] = p
	}
}

// WithSampleClient sets the client whose metrics are sampled. The remote
// source cannot be sampled without one.
func WithSampleClient(clientID string) DoctorOption {
	return func(d *Doctor) {
		d.sampleClient = clientID
	}
}

// NewDoctor creates a Doctor. db and source may be nil when they could not
// be opened; the corresponding checks then fail.
func NewDoctor(cfg *config.Config, db *sql.DB, source metrics.Source, logger zerolog.Logger, opts ...DoctorOption) *Doctor {
	d := &Doctor{
		cfg:          cfg,
		db:           db,
		source:       source,
		integrations: make(map[string]Pinger),
		logger:       logger.With().Str("component", "doctor").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes every diagnostic.
func (d *Doctor) Run(ctx context.Context) *DoctorReport {
	report := &DoctorReport{Healthy: true}
	add := func(c *DoctorCheck) {
		if c.Status == DoctorFailed {
			report.Healthy = false
			d.logger.Warn().Str("check", c.Name).Str("message", c.Message).Msg("doctor check failed")
		}
		report.Checks = append(report.Checks, c)
	}

	add(d.checkConfig())
	add(d.checkDatabase(ctx))
	add(d.checkMetrics(ctx))
	add(d.checkOutputDir())

	names := make([]string, 0, len(d.integrations))
	for name := range d.integrations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		add(d.checkIntegration(ctx, name, d.integrations[name]))
	}

	d.logger.Info().Bool("healthy", report.Healthy).Int("checks", len(report.Checks)).Msg("doctor run completed")
	return report
}

func (d *Doctor) checkConfig() *DoctorCheck {
	c := &DoctorCheck{Name: "config"}
	if d.cfg == nil {
		c.Status, c.Message = DoctorFailed, "configuration not loaded"
		return c
	}
	if err := config.Validate(d.cfg); err != nil {
		c.Status, c.Message = DoctorFailed, err.Error()
		return c
	}
	c.Status, c.Message = DoctorOK, "configuration is valid"
	return c
}

func (d *Doctor) checkDatabase(ctx context.Context) *DoctorCheck {
	c := &DoctorCheck{Name: "database"}
	if d.db == nil {
		c.Status, c.Message = DoctorFailed, "database is not open"
		return c
	}
	if err := d.db.PingContext(ctx); err != nil {
		c.Status, c.Message = DoctorFailed, fmt.Sprintf("database unreachable: %v", err)
		return c
	}
	version, err := storage.SchemaVersion(d.db)
	if err != nil {
		c.Status, c.Message = DoctorFailed, fmt.Sprintf("failed to read schema version: %v", err)
		return c
	}
	if latest := storage.LatestSchemaVersion(); version != latest {
		c.Status, c.Message = DoctorFailed, fmt.Sprintf("schema version %d, expected %d", version, latest)
		return c
	}
	c.Status, c.Message = DoctorOK, fmt.Sprintf("schema version %d", version)
	return c
}

func (d *Doctor) checkMetrics(ctx context.Context) *DoctorCheck {
	c := &DoctorCheck{Name: "metrics"}
	if d.source == nil {
		c.Status, c.Message = DoctorFailed, "metrics source is not configured"
		return c
	}
	if d.source.Name() == metrics.KindRemote && d.sampleClient == "" {
		c.Status, c.Message = DoctorSkipped, "remote source has no client to sample"
		return c
	}
	cpu, err := d.source.CPUPercent(ctx, d.sampleClient)
	if err != nil {
		c.Status, c.Message = DoctorFailed, fmt.Sprintf("%s source: %v", d.source.Name(), err)
		return c
	}
	c.Status, c.Message = DoctorOK, fmt.Sprintf("%s source, CPU usage: %s%%", d.source.Name(), FormatPercent(cpu))
	return c
}

func (d *Doctor) checkOutputDir() *DoctorCheck {
	c := &DoctorCheck{Name: "report_output"}
	if d.cfg == nil {
		c.Status, c.Message = DoctorSkipped, "configuration not loaded"
		return c
	}
	dir := d.cfg.Reporting.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.Status, c.Message = DoctorFailed, fmt.Sprintf("cannot create %s: %v", dir, err)
		return c
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		c.Status, c.Message = DoctorFailed, fmt.Sprintf("%s is not writable: %v", dir, err)
		return c
	}
	probe.Close()
	os.Remove(probe.Name())
	c.Status, c.Message = DoctorOK, fmt.Sprintf("%s is writable", dir)
	return c
}

func (d *Doctor) checkIntegration(ctx context.Context, name string, p Pinger) *DoctorCheck {
	c := &DoctorCheck{Name: name}
	if err := p.Ping(ctx); err != nil {
		c.Status, c.Message = DoctorFailed, err.Error()
		return c
	}
	c.Status, c.Message = DoctorOK, "reachable"
	return c
}
