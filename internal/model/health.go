// Package model provides data models for the MSP toolkit.
package model

import (
	"fmt"
	"strings"
	"time"
)

// CheckKind identifies which aspect of a client's infrastructure a check inspects.
type CheckKind string

const (
	CheckKindCPU      CheckKind = "cpu"
	CheckKindMemory   CheckKind = "memory"
	CheckKindDisk     CheckKind = "disk"
	CheckKindServices CheckKind = "services"
	CheckKindNetwork  CheckKind = "network"
	CheckKindCustom   CheckKind = "custom"
)

// allCheckKinds lists every known kind in declaration order.
var allCheckKinds = []CheckKind{
	CheckKindCPU,
	CheckKindMemory,
	CheckKindDisk,
	CheckKindServices,
	CheckKindNetwork,
	CheckKindCustom,
}

// DefaultCheckKinds returns the kinds executed when the caller does not name any.
// A fresh slice is returned on every call.
func DefaultCheckKinds() []CheckKind {
	return []CheckKind{
		CheckKindCPU,
		CheckKindMemory,
		CheckKindDisk,
		CheckKindServices,
		CheckKindNetwork,
	}
}

// AllCheckKinds returns every supported check kind.
func AllCheckKinds() []CheckKind {
	kinds := make([]CheckKind, len(allCheckKinds))
	copy(kinds, allCheckKinds)
	return kinds
}

// ParseCheckKind normalizes a raw string into a CheckKind.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseCheckKind(raw string) (CheckKind, error) {
	normalized := CheckKind(strings.ToLower(strings.TrimSpace(raw)))
	for _, kind := range allCheckKinds {
		if kind == normalized {
			return kind, nil
		}
	}
	return "", &ValidationError{
		Field:   "check_kinds",
		Value:   raw,
		Message: fmt.Sprintf("invalid check kind %q, supported kinds: %s", raw, joinKinds(allCheckKinds)),
	}
}

// ParseCheckKinds normalizes every entry of raw, failing on the first unknown value.
// An empty input yields an empty, non-nil slice.
func ParseCheckKinds(raw []string) ([]CheckKind, error) {
	kinds := make([]CheckKind, 0, len(raw))
	for _, r := range raw {
		kind, err := ParseCheckKind(r)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// IsThresholdBased reports whether the kind is classified against a percentage threshold.
func (k CheckKind) IsThresholdBased() bool {
	switch k {
	case CheckKindCPU, CheckKindMemory, CheckKindDisk:
		return true
	}
	return false
}

// DisplayName returns the label used in result messages (e.g. "CPU", "Memory").
func (k CheckKind) DisplayName() string {
	switch k {
	case CheckKindCPU:
		return "CPU"
	case CheckKindMemory:
		return "Memory"
	case CheckKindDisk:
		return "Disk"
	case CheckKindServices:
		return "Services"
	case CheckKindNetwork:
		return "Network"
	case CheckKindCustom:
		return "Custom"
	}
	return string(k)
}

func (k CheckKind) String() string {
	return string(k)
}

func joinKinds(kinds []CheckKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}

// CheckStatus is the outcome of a single check.
type CheckStatus string

const (
	CheckStatusHealthy  CheckStatus = "healthy"
	CheckStatusWarning  CheckStatus = "warning"
	CheckStatusCritical CheckStatus = "critical"
	CheckStatusUnknown  CheckStatus = "unknown" // check could not complete
)

// ParseCheckStatus converts a persisted status tag back into a CheckStatus.
func ParseCheckStatus(raw string) (CheckStatus, error) {
	switch s := CheckStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case CheckStatusHealthy, CheckStatusWarning, CheckStatusCritical, CheckStatusUnknown:
		return s, nil
	}
	return "", &ValidationError{
		Field:   "status",
		Value:   raw,
		Message: fmt.Sprintf("invalid check status %q", raw),
	}
}

// Severity orders measured statuses: healthy < warning < critical.
// Unknown is not a measured severity and returns -1.
func (s CheckStatus) Severity() int {
	switch s {
	case CheckStatusHealthy:
		return 0
	case CheckStatusWarning:
		return 1
	case CheckStatusCritical:
		return 2
	}
	return -1
}

func (s CheckStatus) String() string {
	return string(s)
}

// WorstStatus returns the most severe measured status among statuses.
// Unknown entries are skipped; if nothing was measured the result is unknown.
func WorstStatus(statuses ...CheckStatus) CheckStatus {
	worst := CheckStatusUnknown
	for _, s := range statuses {
		if s.Severity() < 0 {
			continue
		}
		if s.Severity() > worst.Severity() {
			worst = s
		}
	}
	return worst
}

// CheckResult is one execution of one check kind for one client.
// Value and Threshold are both set for threshold-based kinds and both nil otherwise.
type CheckResult struct {
	ID        int64                  `json:"id,omitempty"`
	RunID     string                 `json:"run_id,omitempty"` // shared by every result of one run
	ClientID  string                 `json:"client_id"`
	Kind      CheckKind              `json:"check_kind"`
	Status    CheckStatus            `json:"status"`
	Message   string                 `json:"message"`
	Value     *float64               `json:"value,omitempty"`
	Threshold *float64               `json:"threshold,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// IsDegraded reports whether the check could not complete.
func (r *CheckResult) IsDegraded() bool {
	return r.Status == CheckStatusUnknown
}

// HealthSummary aggregates the results of one client over a history window.
type HealthSummary struct {
	ClientID      string     `json:"client_id"`
	TotalChecks   int        `json:"total_checks"`
	Healthy       int        `json:"healthy"`
	Warnings      int        `json:"warnings"`
	Critical      int        `json:"critical"`
	Unknown       int        `json:"unknown"`
	LastCheckTime *time.Time `json:"last_check_time,omitempty"`
}

// NewHealthSummary counts results by status. Results are expected newest-first,
// so the first timestamp becomes LastCheckTime.
func NewHealthSummary(clientID string, results []*CheckResult) *HealthSummary {
	summary := &HealthSummary{ClientID: clientID}
	for _, r := range results {
		if r == nil {
			continue
		}
		summary.TotalChecks++
		switch r.Status {
		case CheckStatusHealthy:
			summary.Healthy++
		case CheckStatusWarning:
			summary.Warnings++
		case CheckStatusCritical:
			summary.Critical++
		default:
			summary.Unknown++
		}
		if summary.LastCheckTime == nil || r.Timestamp.After(*summary.LastCheckTime) {
			ts := r.Timestamp
			summary.LastCheckTime = &ts
		}
	}
	return summary
}

// OverallStatus returns the worst measured status in the summary.
func (s *HealthSummary) OverallStatus() CheckStatus {
	switch {
	case s.Critical > 0:
		return CheckStatusCritical
	case s.Warnings > 0:
		return CheckStatusWarning
	case s.Healthy > 0:
		return CheckStatusHealthy
	}
	return CheckStatusUnknown
}
