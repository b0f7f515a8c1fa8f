package observe

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"msp-toolkit/internal/model"
)

// Handler executes one named tool call.
type Handler func(ctx context.Context, tool string, args map[string]interface{}) (interface{}, error)

// Middleware wraps tool handlers with a span, execution counters, a
// duration histogram and a log line.
type Middleware struct {
	tracer       trace.Tracer
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	logger       zerolog.Logger
}

// NewMiddleware creates the instruments on meter.
func NewMiddleware(tracer trace.Tracer, meter metric.Meter, logger zerolog.Logger) (*Middleware, error) {
	totalCount, err := meter.Int64Counter(
		"tool.exec.total",
		metric.WithDescription("Total number of tool executions"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"tool.exec.errors",
		metric.WithDescription("Total number of tool execution errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"tool.exec.duration_ms",
		metric.WithDescription("Tool execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Middleware{
		tracer:       tracer,
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		logger:       logger.With().Str("component", "tool-exec").Logger(),
	}, nil
}

// MiddlewareFromObserver creates a Middleware on the observer's providers.
func MiddlewareFromObserver(obs *Observer, logger zerolog.Logger) (*Middleware, error) {
	return NewMiddleware(obs.Tracer(), obs.Meter(), logger)
}

// Wrap returns h instrumented. Errors pass through unchanged.
func (m *Middleware) Wrap(h Handler) Handler {
	return func(ctx context.Context, tool string, args map[string]interface{}) (interface{}, error) {
		ctx, span := m.tracer.Start(ctx, "tool.exec."+tool,
			trace.WithAttributes(
				attribute.String("tool.name", tool),
				attribute.Bool("tool.error", false),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)

		start := time.Now()
		result, err := h(ctx, tool, args)
		duration := time.Since(start)

		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.Bool("tool.error", true), attribute.String("error.code", model.ErrorCode(err)))
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()

		opt := metric.WithAttributes(attribute.String("tool.name", tool))
		m.totalCount.Add(ctx, 1, opt)
		if err != nil {
			m.errorCount.Add(ctx, 1, opt)
		}
		m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)

		if err != nil {
			m.logger.Warn().Err(err).Str("tool", tool).Str("code", model.ErrorCode(err)).Dur("duration", duration).Msg("tool execution failed")
		} else {
			m.logger.Info().Str("tool", tool).Dur("duration", duration).Msg("tool execution completed")
		}

		return result, err
	}
}
