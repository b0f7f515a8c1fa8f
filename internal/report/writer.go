// Package report renders client reports. It defines the ReportWriter
// interface and a registry of writers keyed by format.
package report

import (
	"msp-toolkit/internal/model"
)

// ReportWriter renders a report to a file.
type ReportWriter interface {
	// Write renders data to outputPath. outputPath already carries the
	// extension returned by Extension.
	Write(data *model.ReportData, outputPath string) error

	// Format returns the format this writer is registered under.
	Format() model.ReportFormat

	// Extension returns the file extension of written files, without a dot.
	Extension() string
}
