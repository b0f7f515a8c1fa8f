// Package excel renders client reports as .xlsx workbooks.
package excel

import (
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"msp-toolkit/internal/model"
	"msp-toolkit/internal/report/view"
)

const (
	sheetSummary   = "Summary"
	sheetChecks    = "Checks"
	sheetIncidents = "Incidents"
	sheetDevices   = "Devices"

	defaultSheet = "Sheet1"

	// Colors for conditional formatting (RGB without #)
	colorWarningBg  = "FFEB9C"
	colorWarningFg  = "9C6500"
	colorCriticalBg = "FFC7CE"
	colorCriticalFg = "9C0006"
	colorHeaderBg   = "4472C4"
	colorHeaderFg   = "FFFFFF"
	colorNormalBg   = "C6EFCE"
	colorNormalFg   = "006100"
	colorUnknownBg  = "EDEDED"
	colorUnknownFg  = "555555"
)

// Writer implements report.ReportWriter for Excel.
type Writer struct {
	timezone *time.Location
}

// NewWriter creates an Excel writer. A nil timezone means UTC.
func NewWriter(timezone *time.Location) *Writer {
	if timezone == nil {
		timezone = time.UTC
	}
	return &Writer{timezone: timezone}
}

// Format returns the format identifier for this writer.
func (w *Writer) Format() model.ReportFormat {
	return model.ReportFormatExcel
}

// Extension returns the file extension of written files.
func (w *Writer) Extension() string {
	return "xlsx"
}

// styles holds the cell styles shared by every sheet.
type styles struct {
	title    int
	header   int
	label    int
	value    int
	byStatus map[model.CheckStatus]int
}

// Write renders data to outputPath. The Summary and Checks sheets are always
// present; Incidents and Devices follow the report sections.
func (w *Writer) Write(data *model.ReportData, outputPath string) error {
	if data == nil {
		return errors.New("report data is nil")
	}

	f := excelize.NewFile()
	defer f.Close()

	st, err := createStyles(f)
	if err != nil {
		return fmt.Errorf("failed to create styles: %w", err)
	}

	v := view.Build(data, w.timezone)

	if err := w.createSummarySheet(f, v, st); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := w.createResultSheet(f, sheetChecks, data.History, st); err != nil {
		return fmt.Errorf("failed to create checks sheet: %w", err)
	}
	if v.Has(model.SectionIncidents) {
		if err := w.createResultSheet(f, sheetIncidents, data.Incidents, st); err != nil {
			return fmt.Errorf("failed to create incidents sheet: %w", err)
		}
	}
	if v.Has(model.SectionDevices) {
		if err := w.createDevicesSheet(f, v, st); err != nil {
			return fmt.Errorf("failed to create devices sheet: %w", err)
		}
	}

	// Sheet1 always exists in a new file.
	_ = f.DeleteSheet(defaultSheet)

	idx, err := f.GetSheetIndex(sheetSummary)
	if err == nil {
		f.SetActiveSheet(idx)
	}

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

func (w *Writer) createSummarySheet(f *excelize.File, v *view.Report, st *styles) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return err
	}

	f.SetColWidth(sheetSummary, "A", "A", 22)
	f.SetColWidth(sheetSummary, "B", "B", 36)

	f.MergeCell(sheetSummary, "A1", "B1")
	f.SetCellValue(sheetSummary, "A1", v.Title)
	f.SetCellStyle(sheetSummary, "A1", "B1", st.title)
	f.SetRowHeight(sheetSummary, 1, 30)

	rows := []struct {
		label string
		value interface{}
	}{
		{"Client", v.ClientName},
		{"Client ID", v.ClientID},
		{"Tier", v.ClientTier},
		{"Report", v.TemplateName},
		{"Window (days)", v.WindowDays},
		{"Generated", v.GeneratedAt + " " + v.Timezone},
		{"Overall status (24h)", v.OverallStatus},
		{"Total checks (24h)", v.Summary.TotalChecks},
		{"Healthy", v.Summary.Healthy},
		{"Warning", v.Summary.Warnings},
		{"Critical", v.Summary.Critical},
		{"Unknown", v.Summary.Unknown},
		{"Last check", v.LastCheck},
	}
	if v.Has(model.SectionSLA) {
		rows = append(rows, struct {
			label string
			value interface{}
		}{"SLA compliance", v.SLA})
	}
	if v.CompanyName != "" {
		rows = append(rows, struct {
			label string
			value interface{}
		}{"Prepared by", v.CompanyName})
	}

	for i, item := range rows {
		row := i + 3
		a, b := fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row)
		f.SetCellValue(sheetSummary, a, item.label)
		f.SetCellValue(sheetSummary, b, item.value)
		f.SetCellStyle(sheetSummary, a, a, st.label)
		f.SetCellStyle(sheetSummary, b, b, st.value)
		if item.label == "Overall status (24h)" {
			f.SetCellStyle(sheetSummary, b, b, st.statusStyle(model.CheckStatus(v.OverallStatus)))
		}
		f.SetRowHeight(sheetSummary, row, 22)
	}
	return nil
}

func (w *Writer) createResultSheet(f *excelize.File, sheet string, results []*model.CheckResult, st *styles) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Time", "Check", "Status", "Value (%)", "Threshold (%)", "Message", "Run ID"}
	widths := []float64{20, 12, 12, 12, 14, 50, 38}
	if err := writeHeader(f, sheet, headers, widths, st); err != nil {
		return err
	}

	row := 2
	for _, r := range results {
		if r == nil {
			continue
		}
		values := []interface{}{
			view.FormatTime(r.Timestamp, w.timezone),
			string(r.Kind),
			string(r.Status),
			optional(r.Value),
			optional(r.Threshold),
			r.Message,
			r.RunID,
		}
		for col, val := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			f.SetCellValue(sheet, cell, val)
		}
		statusCell := fmt.Sprintf("C%d", row)
		f.SetCellStyle(sheet, statusCell, statusCell, st.statusStyle(r.Status))
		row++
	}

	if row > 2 {
		f.AutoFilter(sheet, fmt.Sprintf("A1:G%d", row-1), nil)
	}
	return nil
}

func (w *Writer) createDevicesSheet(f *excelize.File, v *view.Report, st *styles) error {
	if _, err := f.NewSheet(sheetDevices); err != nil {
		return err
	}

	headers := []string{"Name", "Type", "RMM ID", "Last seen"}
	widths := []float64{28, 14, 24, 20}
	if err := writeHeader(f, sheetDevices, headers, widths, st); err != nil {
		return err
	}

	for i, d := range v.Devices {
		row := i + 2
		f.SetCellValue(sheetDevices, fmt.Sprintf("A%d", row), d.Name)
		f.SetCellValue(sheetDevices, fmt.Sprintf("B%d", row), d.Type)
		f.SetCellValue(sheetDevices, fmt.Sprintf("C%d", row), d.RMMID)
		f.SetCellValue(sheetDevices, fmt.Sprintf("D%d", row), d.LastSeen)
	}
	return nil
}

// writeHeader writes a styled, frozen header row.
func writeHeader(f *excelize.File, sheet string, headers []string, widths []float64, st *styles) error {
	for i, header := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if i < len(widths) {
			f.SetColWidth(sheet, col, col, widths[i])
		}
		cell := col + "1"
		f.SetCellValue(sheet, cell, header)
		f.SetCellStyle(sheet, cell, cell, st.header)
	}
	f.SetRowHeight(sheet, 1, 25)

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (s *styles) statusStyle(status model.CheckStatus) int {
	if id, ok := s.byStatus[status]; ok {
		return id
	}
	return s.byStatus[model.CheckStatusUnknown]
}

func createStyles(f *excelize.File) (*styles, error) {
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}

	title, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 18},
		Alignment: center,
	})
	if err != nil {
		return nil, err
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: colorHeaderFg},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{colorHeaderBg}, Pattern: 1},
		Alignment: center,
	})
	if err != nil {
		return nil, err
	}

	label, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: colorHeaderFg},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{colorHeaderBg}, Pattern: 1},
		Alignment: center,
	})
	if err != nil {
		return nil, err
	}

	value, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 12},
		Alignment: center,
	})
	if err != nil {
		return nil, err
	}

	s := &styles{
		title:    title,
		header:   header,
		label:    label,
		value:    value,
		byStatus: make(map[model.CheckStatus]int, 4),
	}

	palette := map[model.CheckStatus][2]string{
		model.CheckStatusHealthy:  {colorNormalBg, colorNormalFg},
		model.CheckStatusWarning:  {colorWarningBg, colorWarningFg},
		model.CheckStatusCritical: {colorCriticalBg, colorCriticalFg},
		model.CheckStatusUnknown:  {colorUnknownBg, colorUnknownFg},
	}
	for status, colors := range palette {
		id, err := f.NewStyle(&excelize.Style{
			Font:      &excelize.Font{Color: colors[1]},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{colors[0]}, Pattern: 1},
			Alignment: center,
		})
		if err != nil {
			return nil, err
		}
		s.byStatus[status] = id
	}
	return s, nil
}

func optional(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
