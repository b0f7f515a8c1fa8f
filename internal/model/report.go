package model

import (
	"fmt"
	"strings"
	"time"
)

// ReportFormat is the output format of a generated report.
type ReportFormat string

const (
	ReportFormatHTML     ReportFormat = "html"
	ReportFormatMarkdown ReportFormat = "markdown"
	ReportFormatExcel    ReportFormat = "excel"
	ReportFormatPDF      ReportFormat = "pdf" // rendered as HTML
)

// ParseReportFormat normalizes a format name. "md" and "xlsx" are accepted aliases.
func ParseReportFormat(raw string) (ReportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "html", "htm":
		return ReportFormatHTML, nil
	case "markdown", "md":
		return ReportFormatMarkdown, nil
	case "excel", "xlsx":
		return ReportFormatExcel, nil
	case "pdf":
		return ReportFormatPDF, nil
	}
	return "", &ValidationError{
		Field:   "format",
		Value:   raw,
		Message: fmt.Sprintf("unsupported report format %q, supported formats: html, markdown, excel, pdf", raw),
	}
}

// Built-in report templates.
const (
	ReportTemplateMonthlySummary  = "monthly-summary"
	ReportTemplateHealthReport    = "health-report"
	ReportTemplateSLACompliance   = "sla-compliance"
	ReportTemplateIncidentSummary = "incident-summary"
)

// Report describes a generated report file.
type Report struct {
	ID          string       `json:"id"`
	ClientID    string       `json:"client_id"`
	Template    string       `json:"template"`
	Format      ReportFormat `json:"format"`
	FilePath    string       `json:"file_path"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// ReportData is everything a writer needs to render one report.
type ReportData struct {
	Title       string
	Template    string
	Sections    []string
	Client      *Client
	Devices     []*Device
	Summary     *HealthSummary
	History     []*CheckResult
	WindowDays  int
	SLAPercent  *float64 // nil when nothing was measured in the window
	Incidents   []*CheckResult
	GeneratedAt time.Time
	CompanyName string
	Timezone    string
}

// SLACompliance returns healthy / (total - unknown) as a percentage.
// ok is false when no check in results produced a measured status.
func SLACompliance(results []*CheckResult) (pct float64, ok bool) {
	var measured, healthy int
	for _, r := range results {
		if r == nil || r.IsDegraded() {
			continue
		}
		measured++
		if r.Status == CheckStatusHealthy {
			healthy++
		}
	}
	if measured == 0 {
		return 0, false
	}
	return float64(healthy) / float64(measured) * 100, true
}

// Incidents filters results to those with a warning or critical status.
func Incidents(results []*CheckResult) []*CheckResult {
	incidents := make([]*CheckResult, 0)
	for _, r := range results {
		if r != nil && r.Status.Severity() > 0 {
			incidents = append(incidents, r)
		}
	}
	return incidents
}

// ReportDefinition describes how a report template is titled and assembled.
type ReportDefinition struct {
	Name        string   `yaml:"name" json:"name"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Sections    []string `yaml:"sections" json:"sections"` // summary, sla, incidents, checks, devices
	HistoryDays int      `yaml:"history_days" json:"history_days"`
}

// ReportDefinitionsConfig is the root of a report definitions file.
type ReportDefinitionsConfig struct {
	Reports []*ReportDefinition `yaml:"reports"`
}

// Report sections understood by the writers.
const (
	SectionSummary   = "summary"
	SectionSLA       = "sla"
	SectionIncidents = "incidents"
	SectionChecks    = "checks"
	SectionDevices   = "devices"
)

// DefaultReportDefinitions returns the built-in report templates.
func DefaultReportDefinitions() []*ReportDefinition {
	return []*ReportDefinition{
		{
			Name:        ReportTemplateMonthlySummary,
			Title:       "Monthly Summary",
			Description: "Health overview for the last 30 days",
			Sections:    []string{SectionSummary, SectionSLA, SectionIncidents, SectionDevices},
			HistoryDays: 30,
		},
		{
			Name:        ReportTemplateHealthReport,
			Title:       "Health Report",
			Description: "Latest health check results",
			Sections:    []string{SectionSummary, SectionChecks, SectionDevices},
			HistoryDays: 7,
		},
		{
			Name:        ReportTemplateSLACompliance,
			Title:       "SLA Compliance",
			Description: "Share of measured checks that were healthy",
			Sections:    []string{SectionSummary, SectionSLA},
			HistoryDays: 30,
		},
		{
			Name:        ReportTemplateIncidentSummary,
			Title:       "Incident Summary",
			Description: "Checks that raised a warning or worse",
			Sections:    []string{SectionSummary, SectionIncidents},
			HistoryDays: 30,
		},
	}
}

// HasSection reports whether the definition includes section.
func (d *ReportDefinition) HasSection(section string) bool {
	for _, s := range d.Sections {
		if s == section {
			return true
		}
	}
	return false
}
