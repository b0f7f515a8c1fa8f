// Package markdown renders client reports as Markdown documents.
package markdown

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"msp-toolkit/internal/model"
	"msp-toolkit/internal/report/view"
)

//go:embed templates/report.md.tmpl
var embeddedTemplates embed.FS

// Writer implements report.ReportWriter for Markdown.
type Writer struct {
	timezone *time.Location
}

// NewWriter creates a Markdown writer. A nil timezone means UTC.
func NewWriter(timezone *time.Location) *Writer {
	if timezone == nil {
		timezone = time.UTC
	}
	return &Writer{timezone: timezone}
}

// Format returns the format identifier for this writer.
func (w *Writer) Format() model.ReportFormat {
	return model.ReportFormatMarkdown
}

// Extension returns the file extension of written files.
func (w *Writer) Extension() string {
	return "md"
}

// Write renders data to outputPath.
func (w *Writer) Write(data *model.ReportData, outputPath string) error {
	if data == nil {
		return errors.New("report data is nil")
	}

	tmpl, err := template.New("report.md.tmpl").
		Funcs(template.FuncMap{"cell": cell}).
		ParseFS(embeddedTemplates, "templates/report.md.tmpl")
	if err != nil {
		return fmt.Errorf("failed to parse embedded template: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := tmpl.Execute(file, view.Build(data, w.timezone)); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

// cell escapes a value for use inside a table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
