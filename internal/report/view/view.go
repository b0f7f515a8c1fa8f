// Package view flattens model.ReportData into display strings shared by the
// text based report writers.
package view

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"msp-toolkit/internal/model"
)

// TimeLayout is used for every timestamp shown in a report.
const TimeLayout = "2006-01-02 15:04:05"

// Report is the flattened form of model.ReportData.
type Report struct {
	Title        string
	Template     string
	TemplateName string // title-cased template name
	CompanyName  string
	ClientID     string
	ClientName   string
	ClientTier   string
	ClientStatus string
	ContactEmail string
	GeneratedAt  string
	Timezone     string
	WindowDays   int

	Summary       *model.HealthSummary
	OverallStatus string
	LastCheck     string
	SLA           string // "n/a" when nothing was measured

	Checks    []*CheckRow
	Incidents []*CheckRow
	Devices   []*DeviceRow

	sections map[string]bool
}

// CheckRow is one check result.
type CheckRow struct {
	Time        string
	Kind        string
	Status      string
	StatusClass string
	Message     string
	Value       string
	Threshold   string
}

// DeviceRow is one registered device.
type DeviceRow struct {
	Name     string
	Type     string
	RMMID    string
	LastSeen string
}

// Has reports whether section is part of the report. A report without
// sections shows everything.
func (r *Report) Has(section string) bool {
	if len(r.sections) == 0 {
		return true
	}
	return r.sections[section]
}

// Build converts data for rendering in loc. A nil loc means UTC.
func Build(data *model.ReportData, loc *time.Location) *Report {
	if loc == nil {
		loc = time.UTC
	}

	r := &Report{
		Title:        data.Title,
		Template:     data.Template,
		TemplateName: TitleCase(data.Template),
		CompanyName:  data.CompanyName,
		GeneratedAt:  FormatTime(data.GeneratedAt, loc),
		Timezone:     loc.String(),
		WindowDays:   data.WindowDays,
		Summary:      data.Summary,
		SLA:          "n/a",
		sections:     make(map[string]bool, len(data.Sections)),
	}
	if r.Title == "" {
		r.Title = r.TemplateName
	}
	for _, s := range data.Sections {
		r.sections[s] = true
	}

	if c := data.Client; c != nil {
		r.ClientID = c.ID
		r.ClientName = c.Name
		r.ClientTier = string(c.Tier)
		r.ClientStatus = string(c.Status)
		r.ContactEmail = c.ContactEmail
	}

	if r.Summary == nil {
		r.Summary = model.NewHealthSummary(r.ClientID, nil)
	}
	r.OverallStatus = string(r.Summary.OverallStatus())
	r.LastCheck = "never"
	if r.Summary.LastCheckTime != nil {
		r.LastCheck = FormatTime(*r.Summary.LastCheckTime, loc)
	}

	if data.SLAPercent != nil {
		r.SLA = strconv.FormatFloat(*data.SLAPercent, 'f', 2, 64) + "%"
	}

	r.Checks = checkRows(data.History, loc)
	r.Incidents = checkRows(data.Incidents, loc)

	r.Devices = make([]*DeviceRow, 0, len(data.Devices))
	for _, d := range data.Devices {
		row := &DeviceRow{Name: d.Name, Type: string(d.Type), RMMID: d.RMMDeviceID, LastSeen: "never"}
		if d.LastSeen != nil {
			row.LastSeen = FormatTime(*d.LastSeen, loc)
		}
		r.Devices = append(r.Devices, row)
	}
	sort.SliceStable(r.Devices, func(i, j int) bool { return r.Devices[i].Name < r.Devices[j].Name })

	return r
}

func checkRows(results []*model.CheckResult, loc *time.Location) []*CheckRow {
	rows := make([]*CheckRow, 0, len(results))
	for _, res := range results {
		if res == nil {
			continue
		}
		rows = append(rows, &CheckRow{
			Time:        FormatTime(res.Timestamp, loc),
			Kind:        string(res.Kind),
			Status:      string(res.Status),
			StatusClass: StatusClass(res.Status),
			Message:     res.Message,
			Value:       optionalPercent(res.Value),
			Threshold:   optionalPercent(res.Threshold),
		})
	}
	return rows
}

// FormatTime renders t in loc with TimeLayout.
func FormatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(TimeLayout)
}

// StatusClass returns the CSS class of a check status.
func StatusClass(s model.CheckStatus) string {
	switch s {
	case model.CheckStatusHealthy:
		return "status-healthy"
	case model.CheckStatusWarning:
		return "status-warning"
	case model.CheckStatusCritical:
		return "status-critical"
	default:
		return "status-unknown"
	}
}

// TitleCase turns "health-report" into "Health Report".
func TitleCase(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func optionalPercent(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + "%"
}
