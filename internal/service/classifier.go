package service

import (
	"fmt"
	"strconv"

	"msp-toolkit/internal/model"
)

// ClassifyThreshold applies the two-tier rule for threshold-based kinds:
// healthy strictly below the threshold, warning at or above it.
// There is no critical tier.
func ClassifyThreshold(value, threshold float64) model.CheckStatus {
	if value < threshold {
		return model.CheckStatusHealthy
	}
	return model.CheckStatusWarning
}

// UsageMessage renders "<Kind> usage: <value>%".
func UsageMessage(kind model.CheckKind, value float64) string {
	return fmt.Sprintf("%s usage: %s%%", kind.DisplayName(), FormatPercent(value))
}

// ServicesMessage renders the device count of a services check.
func ServicesMessage(devices int) string {
	return fmt.Sprintf("%d device(s) registered", devices)
}

// PassThroughMessage renders the message of kinds without a specific rule.
func PassThroughMessage(kind model.CheckKind) string {
	return fmt.Sprintf("%s check passed.", kind)
}

// FailedMessage renders the message of a degraded check.
func FailedMessage(kind model.CheckKind, err error) string {
	return fmt.Sprintf("%s check failed: %v", kind.DisplayName(), err)
}

// FormatPercent prints v with the fewest digits that round-trip.
func FormatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
