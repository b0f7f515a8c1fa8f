//go:build ignore
// +build ignore

// This script renders a sample report in every format for manual verification.
// Run with: go run scripts/sample_report.go [output-dir]
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"msp-toolkit/internal/model"
	"msp-toolkit/internal/report"
)

func main() {
	outDir := "."
	if len(os.Args) > 1 {
		outDir = os.Args[1]
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output dir: %v\n", err)
		os.Exit(1)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	registry := report.NewRegistry(time.UTC, "", logger)
	data := sampleData()

	for _, name := range registry.GetAll() {
		writer, err := registry.Get(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		path := filepath.Join(outDir, "sample-health-report-"+name+"."+writer.Extension())
		if err := writer.Write(data, path); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating %s report: %v\n", name, err)
			os.Exit(1)
		}
		fmt.Printf("✅ %-8s %s\n", name, path)
	}
}

func pct(v float64) *float64 { return &v }

func sampleData() *model.ReportData {
	now := time.Now().UTC()
	seen := now.Add(-10 * time.Minute)

	history := []*model.CheckResult{
		{Kind: model.CheckKindCPU, Status: model.CheckStatusHealthy, Message: "CPU usage: 45.2%", Value: pct(45.2), Threshold: pct(85), Timestamp: now},
		{Kind: model.CheckKindMemory, Status: model.CheckStatusHealthy, Message: "Memory usage: 62.3%", Value: pct(62.3), Threshold: pct(90), Timestamp: now},
		{Kind: model.CheckKindDisk, Status: model.CheckStatusWarning, Message: "Disk usage: 91.0%", Value: pct(91), Threshold: pct(85), Timestamp: now},
		{Kind: model.CheckKindServices, Status: model.CheckStatusHealthy, Message: "2 device(s) registered", Timestamp: now},
		{Kind: model.CheckKindNetwork, Status: model.CheckStatusUnknown, Message: "network check failed: timeout", Timestamp: now.Add(-time.Hour)},
	}
	for _, r := range history {
		r.ClientID = "acme-corp"
	}

	sla, _ := model.SLACompliance(history)
	return &model.ReportData{
		Title:    "Health Report",
		Template: model.ReportTemplateHealthReport,
		Client: &model.Client{
			ID:           "acme-corp",
			Name:         "Acme Corp",
			ContactEmail: "ops@acme.example",
			Tier:         model.ClientTierGold,
			Status:       model.ClientStatusActive,
		},
		Devices: []*model.Device{
			{ID: 1, ClientID: "acme-corp", Name: "web-01", Type: model.DeviceTypeServer, LastSeen: &seen},
			{ID: 2, ClientID: "acme-corp", Name: "fw-01", Type: model.DeviceTypeNetwork, RMMDeviceID: "rmm-42"},
		},
		Summary:     model.NewHealthSummary("acme-corp", history),
		History:     history,
		WindowDays:  30,
		SLAPercent:  &sla,
		Incidents:   model.Incidents(history),
		GeneratedAt: now,
		CompanyName: "Example MSP",
		Timezone:    "UTC",
	}
}
