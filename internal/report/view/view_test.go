package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msp-toolkit/internal/model"
)

func ptr(v float64) *float64 { return &v }

func TestBuild(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seen := ts.Add(-time.Hour)
	history := []*model.CheckResult{
		{ClientID: "acme", Kind: model.CheckKindCPU, Status: model.CheckStatusHealthy, Message: "CPU usage: 45.2%", Value: ptr(45.2), Threshold: ptr(85), Timestamp: ts},
		{ClientID: "acme", Kind: model.CheckKindServices, Status: model.CheckStatusWarning, Message: "0 device(s) registered", Timestamp: ts},
	}

	data := &model.ReportData{
		Template:   model.ReportTemplateHealthReport,
		Sections:   []string{model.SectionSummary, model.SectionChecks},
		Client:     &model.Client{ID: "acme", Name: "Acme Corp", Tier: model.ClientTierGold},
		Summary:    model.NewHealthSummary("acme", history),
		History:    history,
		Incidents:  model.Incidents(history),
		SLAPercent: ptr(50),
		WindowDays: 7,
		Devices: []*model.Device{
			{Name: "web-02", Type: model.DeviceTypeServer},
			{Name: "web-01", Type: model.DeviceTypeServer, LastSeen: &seen},
		},
		GeneratedAt: ts,
	}

	shanghai, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	v := Build(data, shanghai)

	assert.Equal(t, "Health Report", v.Title, "title falls back to the template name")
	assert.Equal(t, "Acme Corp", v.ClientName)
	assert.Equal(t, "gold", v.ClientTier)
	assert.Equal(t, "2026-03-01 20:00:00", v.GeneratedAt)
	assert.Equal(t, "warning", v.OverallStatus)
	assert.Equal(t, "2026-03-01 20:00:00", v.LastCheck)
	assert.Equal(t, "50.00%", v.SLA)

	require.Len(t, v.Checks, 2)
	assert.Equal(t, "45.2%", v.Checks[0].Value)
	assert.Equal(t, "85%", v.Checks[0].Threshold)
	assert.Equal(t, "status-healthy", v.Checks[0].StatusClass)
	assert.Equal(t, "-", v.Checks[1].Value)

	require.Len(t, v.Incidents, 1)
	assert.Equal(t, "services", v.Incidents[0].Kind)

	require.Len(t, v.Devices, 2)
	assert.Equal(t, "web-01", v.Devices[0].Name)
	assert.Equal(t, "2026-03-01 19:00:00", v.Devices[0].LastSeen)
	assert.Equal(t, "never", v.Devices[1].LastSeen)

	assert.True(t, v.Has(model.SectionChecks))
	assert.False(t, v.Has(model.SectionSLA))
}

func TestBuild_Empty(t *testing.T) {
	v := Build(&model.ReportData{Template: "monthly-summary", Title: "Monthly"}, nil)

	assert.Equal(t, "Monthly", v.Title)
	assert.Equal(t, "Monthly Summary", v.TemplateName)
	assert.Equal(t, "UTC", v.Timezone)
	assert.Equal(t, "n/a", v.SLA)
	assert.Equal(t, "never", v.LastCheck)
	assert.Equal(t, "unknown", v.OverallStatus)
	assert.NotNil(t, v.Summary)
	assert.Empty(t, v.Checks)
	assert.True(t, v.Has(model.SectionDevices), "no sections means every section")
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"health-report":    "Health Report",
		"sla_compliance":   "Sla Compliance",
		"incident-summary": "Incident Summary",
		"custom":           "Custom",
		"":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, TitleCase(in), in)
	}
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "status-healthy", StatusClass(model.CheckStatusHealthy))
	assert.Equal(t, "status-warning", StatusClass(model.CheckStatusWarning))
	assert.Equal(t, "status-critical", StatusClass(model.CheckStatusCritical))
	assert.Equal(t, "status-unknown", StatusClass(model.CheckStatusUnknown))
	assert.Equal(t, "status-unknown", StatusClass(""))
}
