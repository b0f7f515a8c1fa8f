package model

import (
	"fmt"
	"math"

	"github.com/spf13/cast"
)

// Default percentage thresholds.
const (
	DefaultCPUPercent    = 85.0
	DefaultMemoryPercent = 90.0
	DefaultDiskPercent   = 85.0
)

// ThresholdSet holds the percentage thresholds for the threshold-based check kinds.
type ThresholdSet struct {
	CPUPercent    float64 `json:"cpu_percent" yaml:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent" yaml:"memory_percent"`
	DiskPercent   float64 `json:"disk_percent" yaml:"disk_percent"`
}

// DefaultThresholds returns the documented default thresholds.
func DefaultThresholds() ThresholdSet {
	return ThresholdSet{
		CPUPercent:    DefaultCPUPercent,
		MemoryPercent: DefaultMemoryPercent,
		DiskPercent:   DefaultDiskPercent,
	}
}

// For returns the threshold for kind. ok is false for kinds without a threshold.
func (t ThresholdSet) For(kind CheckKind) (threshold float64, ok bool) {
	switch kind {
	case CheckKindCPU:
		return t.CPUPercent, true
	case CheckKindMemory:
		return t.MemoryPercent, true
	case CheckKindDisk:
		return t.DiskPercent, true
	}
	return 0, false
}

// Merge returns a copy of t with every non-nil override applied.
func (t ThresholdSet) Merge(o *ThresholdOverride) ThresholdSet {
	if o == nil {
		return t
	}
	merged := t
	if o.CPUPercent != nil {
		merged.CPUPercent = *o.CPUPercent
	}
	if o.MemoryPercent != nil {
		merged.MemoryPercent = *o.MemoryPercent
	}
	if o.DiskPercent != nil {
		merged.DiskPercent = *o.DiskPercent
	}
	return merged
}

// ThresholdKeys maps threshold config keys to their check kinds.
var ThresholdKeys = map[string]CheckKind{
	"cpu_percent":    CheckKindCPU,
	"memory_percent": CheckKindMemory,
	"disk_percent":   CheckKindDisk,
}

// ThresholdOverride is a partial ThresholdSet; nil fields keep the configured value.
type ThresholdOverride struct {
	CPUPercent    *float64 `json:"cpu_percent,omitempty"`
	MemoryPercent *float64 `json:"memory_percent,omitempty"`
	DiskPercent   *float64 `json:"disk_percent,omitempty"`
}

// IsEmpty reports whether no field is overridden.
func (o *ThresholdOverride) IsEmpty() bool {
	return o == nil || (o.CPUPercent == nil && o.MemoryPercent == nil && o.DiskPercent == nil)
}

// CheckConfig is the per-client configuration accepted by Engine.Configure.
type CheckConfig struct {
	ClientID      string             `json:"client_id"`
	Thresholds    *ThresholdOverride `json:"thresholds,omitempty"`
	EnabledChecks []CheckKind        `json:"enabled_checks,omitempty"`
}

// ParseCheckConfig normalizes an untyped configuration payload.
// Recognized keys are "thresholds" and "enabled_checks"; the names of any other
// keys are returned in ignored.
func ParseCheckConfig(clientID string, payload map[string]interface{}) (cfg *CheckConfig, ignored []string, err error) {
	cfg = &CheckConfig{ClientID: clientID}

	for key, raw := range payload {
		switch key {
		case "thresholds":
			override, err := parseThresholdOverride(raw)
			if err != nil {
				return nil, nil, err
			}
			cfg.Thresholds = override
		case "enabled_checks":
			names, err := cast.ToStringSliceE(raw)
			if err != nil {
				return nil, nil, &ValidationError{
					Field:   "enabled_checks",
					Value:   raw,
					Message: "enabled_checks must be a list of check kinds",
				}
			}
			kinds, err := ParseCheckKinds(names)
			if err != nil {
				return nil, nil, err
			}
			cfg.EnabledChecks = kinds
		default:
			ignored = append(ignored, key)
		}
	}

	return cfg, ignored, nil
}

func parseThresholdOverride(raw interface{}) (*ThresholdOverride, error) {
	values, err := cast.ToStringMapE(raw)
	if err != nil {
		return nil, &ValidationError{
			Field:   "thresholds",
			Value:   raw,
			Message: "thresholds must be a mapping of threshold names to percentages",
		}
	}

	override := &ThresholdOverride{}
	for key, v := range values {
		kind, known := ThresholdKeys[key]
		if !known {
			return nil, &ValidationError{
				Field:   "thresholds." + key,
				Value:   v,
				Message: fmt.Sprintf("unknown threshold %q", key),
			}
		}
		pct, err := ParsePercent("thresholds."+key, v)
		if err != nil {
			return nil, err
		}
		switch kind {
		case CheckKindCPU:
			override.CPUPercent = &pct
		case CheckKindMemory:
			override.MemoryPercent = &pct
		case CheckKindDisk:
			override.DiskPercent = &pct
		}
	}
	return override, nil
}

// ParsePercent coerces v to a float in [0,100]. field names the offending key in errors.
func ParsePercent(field string, v interface{}) (float64, error) {
	pct, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, &ValidationError{
			Field:   field,
			Value:   v,
			Message: fmt.Sprintf("%s must be numeric, got %v", field, v),
		}
	}
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return 0, &ValidationError{
			Field:   field,
			Value:   v,
			Message: fmt.Sprintf("%s must be a finite number, got %v", field, v),
		}
	}
	if pct < 0 || pct > 100 {
		return 0, &ValidationError{
			Field:   field,
			Value:   v,
			Message: fmt.Sprintf("%s must be between 0 and 100, got %v", field, v),
		}
	}
	return pct, nil
}
