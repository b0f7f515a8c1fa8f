package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"msp-toolkit/internal/model"
	"msp-toolkit/internal/report"
	"msp-toolkit/internal/report/html"
	"msp-toolkit/internal/report/view"
)

// reportTimestampLayout stamps generated file names.
const reportTimestampLayout = "20060102-150405"

// ClientGetter loads a single client.
type ClientGetter interface {
	Get(ctx context.Context, id string) (*model.Client, error)
}

// DeviceLister lists the devices stored for a client.
type DeviceLister interface {
	List(ctx context.Context, clientID string) ([]*model.Device, error)
}

// WriterRegistry resolves report writers by format name.
type WriterRegistry interface {
	Get(format string) (report.ReportWriter, error)
}

// ReportSettings configures a ReportGenerator.
type ReportSettings struct {
	OutputDir     string
	TemplateDir   string
	DefaultFormat string
	CompanyName   string
	HistoryDays   int // window for definitions without history_days
	Definitions   []*model.ReportDefinition
	Timezone      *time.Location
}

// ReportGenerator assembles report data for a client and hands it to the
// writer of the requested format.
type ReportGenerator struct {
	clients  ClientGetter
	devices  DeviceLister
	engine   *Engine
	writers  WriterRegistry
	settings ReportSettings
	now      func() time.Time
	logger   zerolog.Logger
}

// NewReportGenerator creates a ReportGenerator. devices may be nil, in which
// case reports carry no device list.
func NewReportGenerator(
	settings ReportSettings,
	clients ClientGetter,
	devices DeviceLister,
	engine *Engine,
	writers WriterRegistry,
	logger zerolog.Logger,
) *ReportGenerator {
	if settings.OutputDir == "" {
		settings.OutputDir = "reports"
	}
	if settings.DefaultFormat == "" {
		settings.DefaultFormat = string(model.ReportFormatHTML)
	}
	if settings.HistoryDays <= 0 {
		settings.HistoryDays = 30
	}
	if len(settings.Definitions) == 0 {
		settings.Definitions = model.DefaultReportDefinitions()
	}
	if settings.Timezone == nil {
		settings.Timezone = time.UTC
	}
	return &ReportGenerator{
		clients:  clients,
		devices:  devices,
		engine:   engine,
		writers:  writers,
		settings: settings,
		now:      time.Now,
		logger:   logger.With().Str("component", "report-generator").Logger(),
	}
}

// Generate renders template for clientID in format (the configured default
// when empty) and writes <client>-<template>-<YYYYMMDD-HHMMSS>.<ext> into the
// output directory.
func (g *ReportGenerator) Generate(ctx context.Context, clientID, template, format string) (*model.Report, error) {
	if err := validateClientID(clientID); err != nil {
		return nil, err
	}

	def, err := g.definition(template)
	if err != nil {
		return nil, err
	}

	if format == "" {
		format = g.settings.DefaultFormat
	}
	writer, err := g.writers.Get(format)
	if err != nil {
		return nil, err
	}

	client, err := g.clients.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}

	logger := g.logger.With().Str("client_id", clientID).Str("template", def.Name).Str("format", string(writer.Format())).Logger()
	logger.Info().Msg("generating report")

	data, err := g.collect(ctx, client, def)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(g.settings.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	fileName := fmt.Sprintf("%s-%s-%s.%s", client.ID, def.Name, data.GeneratedAt.In(g.settings.Timezone).Format(reportTimestampLayout), writer.Extension())
	outputPath := filepath.Join(g.settings.OutputDir, fileName)

	if err := writer.Write(data, outputPath); err != nil {
		logger.Error().Err(err).Msg("failed to write report")
		return nil, fmt.Errorf("failed to write %s report: %w", writer.Format(), err)
	}

	logger.Info().Str("path", outputPath).Msg("report generated successfully")

	return &model.Report{
		ID:          uuid.NewString(),
		ClientID:    client.ID,
		Template:    def.Name,
		Format:      writer.Format(),
		FilePath:    outputPath,
		GeneratedAt: data.GeneratedAt,
	}, nil
}

// collect gathers everything a writer renders for one client.
func (g *ReportGenerator) collect(ctx context.Context, client *model.Client, def *model.ReportDefinition) (*model.ReportData, error) {
	days := def.HistoryDays
	if days <= 0 {
		days = g.settings.HistoryDays
	}

	summary, err := g.engine.GetStatusSummary(ctx, client.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load health summary: %w", err)
	}
	history, err := g.engine.GetHistory(ctx, client.ID, days)
	if err != nil {
		return nil, fmt.Errorf("failed to load health history: %w", err)
	}

	var devices []*model.Device
	if g.devices != nil && def.HasSection(model.SectionDevices) {
		devices, err = g.devices.List(ctx, client.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load devices: %w", err)
		}
	}

	data := &model.ReportData{
		Title:       def.Title,
		Template:    def.Name,
		Sections:    def.Sections,
		Client:      client,
		Devices:     devices,
		Summary:     summary,
		History:     history,
		WindowDays:  days,
		Incidents:   model.Incidents(history),
		GeneratedAt: g.now().UTC(),
		CompanyName: g.settings.CompanyName,
		Timezone:    g.settings.Timezone.String(),
	}
	if pct, ok := model.SLACompliance(history); ok {
		data.SLAPercent = &pct
	}
	return data, nil
}

func (g *ReportGenerator) definition(template string) (*model.ReportDefinition, error) {
	name := strings.ToLower(strings.TrimSpace(template))
	if name == "" {
		return nil, &model.ValidationError{Field: "template", Value: template, Message: "template is required"}
	}
	for _, d := range g.settings.Definitions {
		if d.Name == name {
			return d, nil
		}
	}

	// A user HTML template without a definition still renders, with every
	// section and the default window.
	if g.hasUserTemplate(name) {
		return &model.ReportDefinition{
			Name:     name,
			Title:    view.TitleCase(name),
			Sections: []string{model.SectionSummary, model.SectionSLA, model.SectionIncidents, model.SectionChecks, model.SectionDevices},
		}, nil
	}

	names, _ := g.ListTemplates()
	return nil, &model.ValidationError{
		Field:   "template",
		Value:   template,
		Message: fmt.Sprintf("unknown report template %q, available templates: %s", template, strings.Join(names, ", ")),
	}
}

func (g *ReportGenerator) hasUserTemplate(name string) bool {
	if g.settings.TemplateDir == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(g.settings.TemplateDir, name+".html"))
	return err == nil
}

// ListTemplates returns the report templates that can be generated: every
// definition plus the HTML files found in the template directory, sorted.
func (g *ReportGenerator) ListTemplates() ([]string, error) {
	seen := make(map[string]bool)
	for _, d := range g.settings.Definitions {
		seen[d.Name] = true
	}

	user, err := html.Templates(g.settings.TemplateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list template directory: %w", err)
	}
	for _, name := range user {
		seen[name] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Definitions returns the configured report definitions.
func (g *ReportGenerator) Definitions() []*model.ReportDefinition {
	return g.settings.Definitions
}
