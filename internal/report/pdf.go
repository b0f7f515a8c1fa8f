package report

import (
	"github.com/rs/zerolog"

	"msp-toolkit/internal/model"
)

// pdfWriter answers for the pdf format. No PDF renderer is bundled, so it
// writes the HTML rendering and names the file accordingly.
type pdfWriter struct {
	html   ReportWriter
	logger zerolog.Logger
}

func newPDFWriter(html ReportWriter, logger zerolog.Logger) *pdfWriter {
	return &pdfWriter{
		html:   html,
		logger: logger.With().Str("component", "report-pdf").Logger(),
	}
}

func (w *pdfWriter) Format() model.ReportFormat { return model.ReportFormatPDF }

func (w *pdfWriter) Extension() string { return w.html.Extension() }

func (w *pdfWriter) Write(data *model.ReportData, outputPath string) error {
	w.logger.Warn().Str("path", outputPath).Msg("PDF generation not yet implemented, saving as HTML")
	return w.html.Write(data, outputPath)
}
