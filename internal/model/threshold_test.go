package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultThresholds(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, 85.0, th.CPUPercent)
	assert.Equal(t, 90.0, th.MemoryPercent)
	assert.Equal(t, 85.0, th.DiskPercent)

	v, ok := th.For(CheckKindMemory)
	assert.True(t, ok)
	assert.Equal(t, 90.0, v)

	_, ok = th.For(CheckKindServices)
	assert.False(t, ok)
}

func TestThresholdSet_Merge(t *testing.T) {
	cpu := 50.0
	merged := DefaultThresholds().Merge(&ThresholdOverride{CPUPercent: &cpu})
	assert.Equal(t, 50.0, merged.CPUPercent)
	assert.Equal(t, 90.0, merged.MemoryPercent)
	assert.Equal(t, 85.0, merged.DiskPercent)

	assert.Equal(t, DefaultThresholds(), DefaultThresholds().Merge(nil))
}

func TestParseCheckConfig(t *testing.T) {
	cfg, ignored, err := ParseCheckConfig("acme", map[string]interface{}{
		"thresholds": map[string]interface{}{
			"cpu_percent":  "70",
			"disk_percent": 95,
		},
		"enabled_checks": []interface{}{"CPU", "disk"},
		"schedule":       "hourly",
	})
	require.NoError(t, err)

	assert.Equal(t, "acme", cfg.ClientID)
	require.NotNil(t, cfg.Thresholds)
	require.NotNil(t, cfg.Thresholds.CPUPercent)
	assert.Equal(t, 70.0, *cfg.Thresholds.CPUPercent)
	assert.Nil(t, cfg.Thresholds.MemoryPercent)
	assert.Equal(t, 95.0, *cfg.Thresholds.DiskPercent)
	assert.Equal(t, []CheckKind{CheckKindCPU, CheckKindDisk}, cfg.EnabledChecks)
	assert.Equal(t, []string{"schedule"}, ignored)
}

func TestParseCheckConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]interface{}
		field   string
	}{
		{
			name:    "non numeric threshold",
			payload: map[string]interface{}{"thresholds": map[string]interface{}{"cpu_percent": "fast"}},
			field:   "thresholds.cpu_percent",
		},
		{
			name:    "out of range",
			payload: map[string]interface{}{"thresholds": map[string]interface{}{"memory_percent": 120}},
			field:   "thresholds.memory_percent",
		},
		{
			name:    "unknown threshold",
			payload: map[string]interface{}{"thresholds": map[string]interface{}{"gpu_percent": 10}},
			field:   "thresholds.gpu_percent",
		},
		{
			name:    "thresholds not a map",
			payload: map[string]interface{}{"thresholds": 42},
			field:   "thresholds",
		},
		{
			name:    "bad enabled check",
			payload: map[string]interface{}{"enabled_checks": []string{"cpu", "bogus"}},
			field:   "check_kinds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseCheckConfig("acme", tt.payload)
			require.Error(t, err)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestParsePercent_RejectsNonFinite(t *testing.T) {
	for _, v := range []interface{}{"NaN", "Inf", "-Inf", math.NaN(), math.Inf(1)} {
		_, err := ParsePercent("thresholds.cpu_percent", v)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve), "value %v", v)
		assert.Equal(t, "thresholds.cpu_percent", ve.Field)
	}

	pct, err := ParsePercent("thresholds.cpu_percent", "42.5")
	require.NoError(t, err)
	assert.Equal(t, 42.5, pct)
}
