package tools

import (
	"fmt"
	"strings"

	"msp-toolkit/internal/model"
	"msp-toolkit/internal/service"
)

const timeLayout = "2006-01-02 15:04:05"

func statusIcon(status model.CheckStatus) string {
	switch status {
	case model.CheckStatusHealthy:
		return "✓"
	case model.CheckStatusCritical:
		return "✗"
	default:
		return "⚠"
	}
}

func formatClients(clients []*model.Client) string {
	if len(clients) == 0 {
		return "No clients found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d client(s):\n\n", len(clients))
	for _, c := range clients {
		fmt.Fprintf(&b, "• %s\n", c.Name)
		fmt.Fprintf(&b, "  - ID: %s\n", c.ID)
		fmt.Fprintf(&b, "  - Tier: %s\n", c.Tier)
		fmt.Fprintf(&b, "  - Status: %s\n", c.Status)
		if c.ContactEmail != "" {
			fmt.Fprintf(&b, "  - Contact: %s\n", c.ContactEmail)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatOnboard(c *model.Client, r *service.OnboardResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ Client '%s' onboarded successfully\n\n", c.Name)
	b.WriteString("Client Details:\n")
	fmt.Fprintf(&b, "  - ID: %s\n", c.ID)
	fmt.Fprintf(&b, "  - Name: %s\n", c.Name)
	fmt.Fprintf(&b, "  - Tier: %s\n", c.Tier)
	fmt.Fprintf(&b, "  - Template: %s\n\n", r.Template)
	fmt.Fprintf(&b, "Onboarding Status: %s\n\n", r.Status)
	b.WriteString("Steps Completed:")
	for _, step := range r.StepsCompleted {
		fmt.Fprintf(&b, "\n  ✓ %s", step)
	}
	if len(r.InitialChecks) > 0 {
		b.WriteString("\n\nInitial Health Checks:")
		for _, res := range r.InitialChecks {
			fmt.Fprintf(&b, "\n%s %s: %s", statusIcon(res.Status), res.Kind, res.Message)
		}
	}
	return b.String()
}

func writeResults(b *strings.Builder, results []*model.CheckResult) {
	for _, r := range results {
		fmt.Fprintf(b, "%s %s: %s\n", statusIcon(r.Status), r.Kind, r.Message)
	}
}

func writeSummary(b *strings.Builder, s *model.HealthSummary) {
	fmt.Fprintf(b, "  Total Checks: %d\n", s.TotalChecks)
	fmt.Fprintf(b, "  Healthy: %d\n", s.Healthy)
	fmt.Fprintf(b, "  Warnings: %d\n", s.Warnings)
	fmt.Fprintf(b, "  Critical: %d\n", s.Critical)
	fmt.Fprintf(b, "  Unknown: %d", s.Unknown)
}

func formatHealthCheck(clientID string, results []*model.CheckResult, summary *model.HealthSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Health Check Results for '%s':\n\n", clientID)
	writeResults(&b, results)
	b.WriteString("\nSummary (last 24h):\n")
	writeSummary(&b, summary)
	return b.String()
}

func formatFleet(results []*service.FleetResult) string {
	if len(results) == 0 {
		return "No active clients to check."
	}

	var b strings.Builder
	failed := 0
	fmt.Fprintf(&b, "Health Check Results for %d client(s):\n", len(results))
	for _, r := range results {
		if r.Failed() {
			failed++
			fmt.Fprintf(&b, "\n[%s]\n✗ check run failed: %s (%s)\n", r.ClientID, r.Error, r.Code)
			continue
		}
		fmt.Fprintf(&b, "\n[%s] %s\n", r.ClientID, r.Status())
		writeResults(&b, r.Results)
	}
	if failed > 0 {
		fmt.Fprintf(&b, "\n%d client(s) failed.", failed)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatHistory(clientID string, days int, results []*model.CheckResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No health checks recorded for '%s' in the last %d day(s).", clientID, days)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Health history for '%s' (last %d day(s), %d result(s)):\n\n", clientID, days, len(results))
	for _, r := range results {
		fmt.Fprintf(&b, "%s %s %s: %s\n", r.Timestamp.UTC().Format(timeLayout), statusIcon(r.Status), r.Kind, r.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSummary(s *model.HealthSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Health summary for '%s' (last 24h):\n", s.ClientID)
	fmt.Fprintf(&b, "  Overall: %s\n", s.OverallStatus())
	writeSummary(&b, s)
	if s.LastCheckTime != nil {
		fmt.Fprintf(&b, "\n  Last Check: %s", s.LastCheckTime.UTC().Format(timeLayout))
	}
	return b.String()
}

func formatReport(r *model.Report) string {
	var b strings.Builder
	b.WriteString("✓ Report generated successfully\n\n")
	b.WriteString("Report Details:\n")
	fmt.Fprintf(&b, "  - ID: %s\n", r.ID)
	fmt.Fprintf(&b, "  - Client: %s\n", r.ClientID)
	fmt.Fprintf(&b, "  - Template: %s\n", r.Template)
	fmt.Fprintf(&b, "  - Format: %s\n", r.Format)
	fmt.Fprintf(&b, "  - File: %s\n", r.FilePath)
	fmt.Fprintf(&b, "  - Generated: %s", r.GeneratedAt.UTC().Format(timeLayout))
	return b.String()
}

func formatDevices(devices []*model.Device) string {
	if len(devices) == 0 {
		return "No devices found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d device(s):\n\n", len(devices))
	for _, d := range devices {
		fmt.Fprintf(&b, "• %s (ID: %d)\n", d.Name, d.ID)
		fmt.Fprintf(&b, "  - Client: %s\n", d.ClientID)
		fmt.Fprintf(&b, "  - Type: %s\n", d.Type)
		if d.RMMDeviceID != "" {
			fmt.Fprintf(&b, "  - RMM ID: %s\n", d.RMMDeviceID)
		}
		if d.LastSeen != nil {
			fmt.Fprintf(&b, "  - Last Seen: %s\n", d.LastSeen.UTC().Format(timeLayout))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatDeviceAdded(d *model.Device) string {
	return strings.Join([]string{
		"✓ Device registered",
		fmt.Sprintf("  - ID: %d", d.ID),
		fmt.Sprintf("  - Name: %s", d.Name),
		fmt.Sprintf("  - Client: %s", d.ClientID),
		fmt.Sprintf("  - Type: %s", d.Type),
	}, "\n")
}
