// Package observe wires OpenTelemetry tracing and metrics for tool
// execution.
package observe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"msp-toolkit/internal/config"
)

// Observer owns the tracer and meter providers of the process.
type Observer struct {
	tracer         trace.Tracer
	meter          metric.Meter
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	logger         zerolog.Logger
}

// Option configures an Observer.
type Option func(*options)

type options struct {
	writer    io.Writer
	version   string
	spanProcs []sdktrace.SpanProcessor
	readers   []sdkmetric.Reader
}

// WithWriter sets where the stdout exporters write. Defaults to stderr so
// that stdout stays free for the JSON-RPC stream.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

// WithVersion sets the service.version resource attribute.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// WithSpanProcessor adds a span processor, used in tests to record spans.
func WithSpanProcessor(p sdktrace.SpanProcessor) Option {
	return func(o *options) { o.spanProcs = append(o.spanProcs, p) }
}

// WithReader adds a metric reader, used in tests to collect metrics.
func WithReader(r sdkmetric.Reader) Option {
	return func(o *options) { o.readers = append(o.readers, r) }
}

// New creates an Observer from cfg. Disabled subsystems get no-op
// implementations.
func New(ctx context.Context, cfg config.TelemetryConfig, logger zerolog.Logger, opts ...Option) (*Observer, error) {
	o := &options{writer: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "msp-toolkit"
	}

	obs := &Observer{
		logger: logger.With().Str("component", "observe").Logger(),
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(o.version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if cfg.Tracing.Enabled {
		exporter, err := NewSpanExporter(ctx, cfg.Tracing.Exporter, o.writer)
		if err != nil {
			return nil, fmt.Errorf("failed to setup tracing: %w", err)
		}
		tpOpts := []sdktrace.TracerProviderOption{
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sampler(cfg.Tracing.SamplePct)),
		}
		if exporter != nil {
			tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
		}
		for _, p := range o.spanProcs {
			tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(p))
		}
		obs.tracerProvider = sdktrace.NewTracerProvider(tpOpts...)
		obs.tracer = obs.tracerProvider.Tracer(serviceName)
	} else {
		obs.tracer = tracenoop.NewTracerProvider().Tracer("noop")
	}

	if cfg.Metrics.Enabled {
		reader, err := NewMetricReader(ctx, cfg.Metrics.Exporter, o.writer)
		if err != nil {
			return nil, fmt.Errorf("failed to setup metrics: %w", err)
		}
		mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
		if reader != nil {
			mpOpts = append(mpOpts, sdkmetric.WithReader(reader))
		}
		for _, r := range o.readers {
			mpOpts = append(mpOpts, sdkmetric.WithReader(r))
		}
		obs.meterProvider = sdkmetric.NewMeterProvider(mpOpts...)
		obs.meter = obs.meterProvider.Meter(serviceName)
	} else {
		obs.meter = metricnoop.NewMeterProvider().Meter("noop")
	}

	obs.logger.Debug().
		Bool("tracing", cfg.Tracing.Enabled).
		Str("trace_exporter", cfg.Tracing.Exporter).
		Bool("metrics", cfg.Metrics.Enabled).
		Str("metric_exporter", cfg.Metrics.Exporter).
		Msg("telemetry initialized")

	return obs, nil
}

func sampler(pct float64) sdktrace.Sampler {
	switch {
	case pct >= 1.0:
		return sdktrace.AlwaysSample()
	case pct <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(pct)
	}
}

// Tracer returns the configured tracer.
func (o *Observer) Tracer() trace.Tracer { return o.tracer }

// Meter returns the configured meter.
func (o *Observer) Meter() metric.Meter { return o.meter }

// Shutdown flushes and stops the providers. It returns every error joined.
func (o *Observer) Shutdown(ctx context.Context) error {
	var errs []error
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
