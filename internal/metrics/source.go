// Package metrics provides the percentage readings used by threshold-based
// health checks. The engine depends on the Source interface only.
package metrics

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"msp-toolkit/internal/client/vm"
	"msp-toolkit/internal/config"
)

// Source kinds accepted by health_checks.metrics_source.
const (
	KindLocal  = "local"
	KindRemote = "remote"
	KindStatic = "static"
)

// Source reports utilisation percentages in [0,100] for a client.
// Implementations must be safe for concurrent use.
type Source interface {
	CPUPercent(ctx context.Context, clientID string) (float64, error)
	MemoryPercent(ctx context.Context, clientID string) (float64, error)
	DiskPercent(ctx context.Context, clientID string) (float64, error)
	Name() string
}

// New builds the source selected by cfg.HealthChecks.MetricsSource. vmClient
// is only used, and then required, for the remote source.
func New(cfg *config.Config, vmClient *vm.Client, logger zerolog.Logger) (Source, error) {
	hc := cfg.HealthChecks
	switch hc.MetricsSource {
	case KindLocal, "":
		return NewLocalSource(hc.SampleInterval, hc.DiskPath, logger), nil
	case KindStatic:
		return NewStaticSource(hc.Static.CPUPercent, hc.Static.MemoryPercent, hc.Static.DiskPercent), nil
	case KindRemote:
		if vmClient == nil {
			return nil, fmt.Errorf("remote metrics source requires a VictoriaMetrics client")
		}
		return NewRemoteSource(vmClient, cfg.Integrations.VictoriaMetrics, logger), nil
	default:
		return nil, fmt.Errorf("unsupported metrics source: %s", hc.MetricsSource)
	}
}
