package metrics

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// DefaultSampleInterval is the CPU sampling window of the local source.
const DefaultSampleInterval = 100 * time.Millisecond

// LocalSource reads the host the toolkit runs on. The client id is ignored.
// When an OS facility is unavailable the reading is 0 and the failure is logged.
type LocalSource struct {
	interval time.Duration
	diskPath string
	logger   zerolog.Logger
}

// NewLocalSource creates a local-host source.
func NewLocalSource(interval time.Duration, diskPath string, logger zerolog.Logger) *LocalSource {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	if diskPath == "" {
		diskPath = "/"
	}
	return &LocalSource{
		interval: interval,
		diskPath: diskPath,
		logger:   logger.With().Str("component", "local-metrics").Logger(),
	}
}

// Name implements Source.
func (s *LocalSource) Name() string { return KindLocal }

// CPUPercent samples total CPU utilisation over the configured interval.
func (s *LocalSource) CPUPercent(ctx context.Context, _ string) (float64, error) {
	percents, err := cpu.PercentWithContext(ctx, s.interval, false)
	if err != nil || len(percents) == 0 {
		s.logger.Warn().Err(err).Msg("cpu utilisation unavailable, reporting 0")
		return 0, nil
	}
	return percents[0], nil
}

// MemoryPercent returns the used share of virtual memory.
func (s *LocalSource) MemoryPercent(ctx context.Context, _ string) (float64, error) {
	vmem, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("memory utilisation unavailable, reporting 0")
		return 0, nil
	}
	return vmem.UsedPercent, nil
}

// DiskPercent returns the used share of the configured mount.
func (s *LocalSource) DiskPercent(ctx context.Context, _ string) (float64, error) {
	usage, err := disk.UsageWithContext(ctx, s.diskPath)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", s.diskPath).Msg("disk utilisation unavailable, reporting 0")
		return 0, nil
	}
	return usage.UsedPercent, nil
}
