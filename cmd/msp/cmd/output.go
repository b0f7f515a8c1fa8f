package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"msp-toolkit/internal/model"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func success(format string, a ...interface{}) {
	fmt.Printf("✅ %s\n", green(fmt.Sprintf(format, a...)))
}

func warn(format string, a ...interface{}) {
	fmt.Printf("⚠️  %s\n", yellow(fmt.Sprintf(format, a...)))
}

// fail prints err as one line on stderr and exits with status 1.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "❌ %s\n", red(err.Error()))
	os.Exit(1)
}

// statusMarker renders a check status. Unknown results carry the warning
// marker since they are degraded checks, not failures.
func statusMarker(status model.CheckStatus) string {
	switch status {
	case model.CheckStatusHealthy:
		return green("✅ " + string(status))
	case model.CheckStatusCritical:
		return red("❌ " + string(status))
	default:
		return yellow("⚠️  " + string(status))
	}
}

func printResults(results []*model.CheckResult) {
	for _, r := range results {
		fmt.Printf("  %-10s %-22s %s\n", r.Kind, statusMarker(r.Status), r.Message)
	}
}

func printSummary(s *model.HealthSummary) {
	fmt.Printf("Health summary for %s (last 24h)\n", bold(s.ClientID))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("   Overall:  %s\n", statusMarker(s.OverallStatus()))
	fmt.Printf("   Total:    %d\n", s.TotalChecks)
	fmt.Printf("   Healthy:  %d\n", s.Healthy)
	fmt.Printf("   Warnings: %d\n", s.Warnings)
	fmt.Printf("   Critical: %d\n", s.Critical)
	fmt.Printf("   Unknown:  %d\n", s.Unknown)
	if s.LastCheckTime != nil {
		fmt.Printf("   Last check: %s\n", s.LastCheckTime.Format(timeLayout))
	} else {
		fmt.Println("   Last check: never")
	}
}

const timeLayout = "2006-01-02 15:04:05"
