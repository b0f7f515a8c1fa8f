package report

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"msp-toolkit/internal/model"
	"msp-toolkit/internal/report/excel"
	"msp-toolkit/internal/report/html"
	"msp-toolkit/internal/report/markdown"
)

// Registry maps report formats to writers.
type Registry struct {
	writers map[model.ReportFormat]ReportWriter
}

// NewRegistry creates a registry with the html, markdown, excel and pdf
// writers. A nil timezone means UTC. templateDir is optional and holds
// <template>.html overrides for the HTML writer.
func NewRegistry(timezone *time.Location, templateDir string, logger zerolog.Logger) *Registry {
	if timezone == nil {
		timezone = time.UTC
	}

	htmlWriter := html.NewWriter(timezone, templateDir)
	r := &Registry{
		writers: make(map[model.ReportFormat]ReportWriter),
	}
	for _, w := range []ReportWriter{
		htmlWriter,
		markdown.NewWriter(timezone),
		excel.NewWriter(timezone),
		newPDFWriter(htmlWriter, logger),
	} {
		r.writers[w.Format()] = w
	}
	return r
}

// Get returns the writer for format. Names are case-insensitive and the
// aliases "md" and "xlsx" are accepted. An unsupported format yields a
// *model.ValidationError.
func (r *Registry) Get(format string) (ReportWriter, error) {
	f, err := model.ParseReportFormat(format)
	if err != nil {
		return nil, err
	}
	w, ok := r.writers[f]
	if !ok {
		return nil, &model.ValidationError{Field: "format", Value: format, Message: "no writer registered for format " + string(f)}
	}
	return w, nil
}

// GetAll returns every registered format in sorted order.
func (r *Registry) GetAll() []string {
	formats := make([]string, 0, len(r.writers))
	for f := range r.writers {
		formats = append(formats, string(f))
	}
	sort.Strings(formats)
	return formats
}

// Has reports whether format is supported.
func (r *Registry) Has(format string) bool {
	_, err := r.Get(format)
	return err == nil
}
