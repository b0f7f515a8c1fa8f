package metrics

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"msp-toolkit/internal/client/vm"
	"msp-toolkit/internal/config"
	"msp-toolkit/internal/model"
)

// Querier runs an instant query scoped by label matchers.
type Querier interface {
	QueryResults(ctx context.Context, query string, labels map[string]string) ([]vm.QueryResult, error)
}

// RemoteSource reads client metrics from VictoriaMetrics. Each reading is
// the highest value across the client's series, so the busiest endpoint
// decides the check.
type RemoteSource struct {
	querier     Querier
	clientLabel string
	queries     config.QueriesConfig
	logger      zerolog.Logger
}

// NewRemoteSource creates a remote source. Empty queries fall back to the
// categraf defaults.
func NewRemoteSource(q Querier, cfg config.VictoriaMetricsConfig, logger zerolog.Logger) *RemoteSource {
	label := cfg.ClientLabel
	if label == "" {
		label = "client"
	}
	queries := cfg.Queries
	if queries.CPU == "" {
		queries.CPU = config.DefaultCPUQuery
	}
	if queries.Memory == "" {
		queries.Memory = config.DefaultMemoryQuery
	}
	if queries.Disk == "" {
		queries.Disk = config.DefaultDiskQuery
	}
	return &RemoteSource{
		querier:     q,
		clientLabel: label,
		queries:     queries,
		logger:      logger.With().Str("component", "remote-metrics").Logger(),
	}
}

// Name implements Source.
func (s *RemoteSource) Name() string { return KindRemote }

// CPUPercent implements Source.
func (s *RemoteSource) CPUPercent(ctx context.Context, clientID string) (float64, error) {
	return s.query(ctx, "cpu", s.queries.CPU, clientID)
}

// MemoryPercent implements Source.
func (s *RemoteSource) MemoryPercent(ctx context.Context, clientID string) (float64, error) {
	return s.query(ctx, "memory", s.queries.Memory, clientID)
}

// DiskPercent implements Source.
func (s *RemoteSource) DiskPercent(ctx context.Context, clientID string) (float64, error) {
	return s.query(ctx, "disk", s.queries.Disk, clientID)
}

func (s *RemoteSource) query(ctx context.Context, metric, query, clientID string) (float64, error) {
	results, err := s.querier.QueryResults(ctx, query, map[string]string{s.clientLabel: clientID})
	if err != nil {
		return 0, &model.IntegrationError{Integration: "victoriametrics", Err: err}
	}

	max, ok := vm.MaxResult(results)
	if !ok {
		return 0, &model.IntegrationError{
			Integration: "victoriametrics",
			Err:         fmt.Errorf("no %s samples for %s=%q", metric, s.clientLabel, clientID),
		}
	}

	s.logger.Debug().
		Str("client_id", clientID).
		Str("metric", metric).
		Int("series", len(results)).
		Float64("value", max.Value).
		Msg("remote reading")
	return max.Value, nil
}
