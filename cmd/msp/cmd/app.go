package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"msp-toolkit/internal/client/n9e"
	"msp-toolkit/internal/client/vm"
	"msp-toolkit/internal/config"
	"msp-toolkit/internal/metrics"
	"msp-toolkit/internal/model"
	"msp-toolkit/internal/observe"
	"msp-toolkit/internal/report"
	"msp-toolkit/internal/secret"
	"msp-toolkit/internal/service"
	"msp-toolkit/internal/storage"
	"msp-toolkit/internal/tools"
)

// app holds the wired services of one command invocation.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	storage *storage.Registry
	db      *sql.DB
	source  metrics.Source

	vmClient  *vm.Client
	n9eClient *n9e.Client

	clientStore *storage.ClientStore
	engine      *service.Engine
	clients     *service.ClientManager
	devices     *service.DeviceManager
	fleet       *service.FleetRunner
	reports     *service.ReportGenerator
}

// newApp wires storage, integrations and services from cfg.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		storage: storage.NewRegistry(logger),
	}

	db, err := a.storage.Open(cfg.Database.Type, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.db = db

	if err := a.connectIntegrations(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.source, err = metrics.New(cfg, a.vmClient, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.clientStore = storage.NewClientStore(db)
	deviceStore := storage.NewDeviceStore(db)
	history := storage.NewHistoryStore(db)

	var registry service.DeviceRegistry = deviceStore
	if cfg.HealthChecks.DeviceSource == "remote" {
		if a.n9eClient == nil {
			a.Close()
			return nil, fmt.Errorf("remote device source requires integrations.n9e.endpoint")
		}
		registry = service.NewScopedRegistry(a.clientStore, a.n9eClient)
	}

	a.engine, err = service.NewEngine(
		a.source,
		registry,
		history,
		cfg.HealthChecks.Thresholds.ThresholdSet(),
		logger,
		service.WithOverrides(storage.NewOverrideStore(db)),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.clients = service.NewClientManager(a.clientStore, a.engine, logger)
	a.devices = service.NewDeviceManager(deviceStore, logger)
	a.fleet = service.NewFleetRunner(a.engine, a.clientStore, cfg.HealthChecks.Concurrency, logger)

	tz, err := time.LoadLocation(cfg.General.Timezone)
	if err != nil {
		tz = time.UTC
	}
	defs, err := config.LoadReportDefinitions(cfg.Reporting.DefinitionsFile)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.reports = service.NewReportGenerator(
		service.ReportSettings{
			OutputDir:     cfg.Reporting.OutputDir,
			TemplateDir:   cfg.Reporting.TemplateDir,
			DefaultFormat: cfg.Reporting.DefaultFormat,
			CompanyName:   cfg.General.CompanyName,
			HistoryDays:   cfg.Reporting.HistoryDays,
			Definitions:   defs,
			Timezone:      tz,
		},
		a.clientStore,
		a.devices,
		a.engine,
		report.NewRegistry(tz, cfg.Reporting.TemplateDir, logger),
		logger,
	)

	logger.Debug().
		Str("database", cfg.Database.Path).
		Str("metrics_source", a.source.Name()).
		Str("device_source", registry.Name()).
		Msg("services initialized")

	return a, nil
}

func (a *app) connectIntegrations(ctx context.Context) error {
	integrations := a.cfg.Integrations

	if integrations.VictoriaMetrics.Endpoint != "" {
		a.vmClient = vm.NewClient(&integrations.VictoriaMetrics, &a.cfg.HTTP.Retry, a.logger)
	}

	if integrations.N9E.Endpoint != "" {
		token, err := secret.NewDefaultResolver().Resolve(ctx, integrations.N9E.Token)
		if err != nil {
			return fmt.Errorf("failed to resolve integrations.n9e.token: %w", err)
		}
		a.n9eClient = n9e.NewClient(&integrations.N9E, token, &a.cfg.HTTP.Retry, a.logger)
	}
	return nil
}

// doctor returns a Doctor over the wired collaborators, sampling the first
// active client when metrics are remote.
func (a *app) doctor(ctx context.Context) *service.Doctor {
	var opts []service.DoctorOption
	if a.vmClient != nil {
		opts = append(opts, service.WithIntegration("victoriametrics", a.vmClient))
	}
	if a.n9eClient != nil {
		opts = append(opts, service.WithIntegration("n9e", a.n9eClient))
	}
	if a.source.Name() == metrics.KindRemote {
		active, err := a.clients.List(ctx, model.ClientFilter{Status: model.ClientStatusActive})
		if err == nil && len(active) > 0 {
			opts = append(opts, service.WithSampleClient(active[0].ID))
		}
	}
	return service.NewDoctor(a.cfg, a.db, a.source, a.logger, opts...)
}

// dispatcher returns the agent tool dispatcher, instrumented by obs when
// given.
func (a *app) dispatcher(obs *observe.Observer) (*tools.Dispatcher, error) {
	var mw *observe.Middleware
	if obs != nil {
		var err error
		mw, err = observe.MiddlewareFromObserver(obs, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create tool middleware: %w", err)
		}
	}
	return tools.NewDispatcher(tools.Services{
		Engine:  a.engine,
		Fleet:   a.fleet,
		Clients: a.clients,
		Devices: a.devices,
		Reports: a.reports,
	}, mw, a.logger), nil
}

// Close releases the database handles.
func (a *app) Close() {
	if err := a.storage.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("failed to close storage")
	}
}

// bootstrap loads config, sets up logging and wires the app. Failures exit.
func bootstrap(cmd *cobra.Command) *app {
	cfg := mustLoadConfig(cmd)
	logger := newLogger(cfg)
	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		fail(err)
	}
	return a
}
