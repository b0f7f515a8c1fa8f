package metrics

import "context"

// StaticSource reports fixed readings for every client.
type StaticSource struct {
	cpu, memory, disk float64
}

// NewStaticSource creates a source returning the given percentages.
func NewStaticSource(cpu, memory, disk float64) *StaticSource {
	return &StaticSource{cpu: cpu, memory: memory, disk: disk}
}

func (s *StaticSource) Name() string { return KindStatic }

func (s *StaticSource) CPUPercent(context.Context, string) (float64, error) { return s.cpu, nil }

func (s *StaticSource) MemoryPercent(context.Context, string) (float64, error) {
	return s.memory, nil
}

func (s *StaticSource) DiskPercent(context.Context, string) (float64, error) { return s.disk, nil }
