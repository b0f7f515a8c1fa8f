// Package html renders client reports as standalone HTML documents.
package html

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"msp-toolkit/internal/model"
	"msp-toolkit/internal/report/view"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// Writer implements report.ReportWriter for HTML.
type Writer struct {
	timezone    *time.Location
	templateDir string // optional directory of <template>.html overrides
}

// NewWriter creates an HTML writer. A nil timezone means UTC. When
// templateDir holds a file named after the report template, that file is
// used instead of the embedded layout.
func NewWriter(timezone *time.Location, templateDir string) *Writer {
	if timezone == nil {
		timezone = time.UTC
	}
	return &Writer{
		timezone:    timezone,
		templateDir: templateDir,
	}
}

// Format returns the format identifier for this writer.
func (w *Writer) Format() model.ReportFormat {
	return model.ReportFormatHTML
}

// Extension returns the file extension of written files.
func (w *Writer) Extension() string {
	return "html"
}

// Write renders data to outputPath.
func (w *Writer) Write(data *model.ReportData, outputPath string) error {
	if data == nil {
		return errors.New("report data is nil")
	}

	tmpl, err := w.loadTemplate(data.Template)
	if err != nil {
		return fmt.Errorf("failed to load template: %w", err)
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

// loadTemplate prefers <templateDir>/<name>.html and falls back to the
// embedded layout.
func (w *Writer) loadTemplate(name string) (*template.Template, error) {
	funcMap := template.FuncMap{
		"statusClass": func(s string) string { return view.StatusClass(model.CheckStatus(s)) },
	}

	if w.templateDir != "" && name != "" {
		path := filepath.Join(w.templateDir, name+".html")
		if _, err := os.Stat(path); err == nil {
			tmpl, err := template.New(filepath.Base(path)).Funcs(funcMap).ParseFiles(path)
			if err != nil {
				return nil, fmt.Errorf("failed to parse user template: %w", err)
			}
			return tmpl, nil
		}
	}

	tmpl, err := template.New("report.html").Funcs(funcMap).ParseFS(embeddedTemplates, "templates/report.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded template: %w", err)
	}
	return tmpl, nil
}

// Templates returns the stems of the *.html files in dir, sorted. A missing
// directory yields no names.
func Templates(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".html"))
	}
	return names, nil
}
