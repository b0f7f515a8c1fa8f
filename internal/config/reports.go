package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"msp-toolkit/internal/model"
)

// LoadReportDefinitions returns the built-in report definitions, overlaid with the
// definitions in path when path is non-empty. Entries in the file replace
// built-ins of the same name and new names are appended.
func LoadReportDefinitions(path string) ([]*model.ReportDefinition, error) {
	defs := model.DefaultReportDefinitions()
	if path == "" {
		return defs, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("report definitions file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report definitions file: %w", err)
	}

	var cfg model.ReportDefinitionsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse report definitions file: %w", err)
	}

	if len(cfg.Reports) == 0 {
		return nil, fmt.Errorf("no reports defined in file: %s", path)
	}

	index := make(map[string]int, len(defs))
	for i, d := range defs {
		index[d.Name] = i
	}

	for i, d := range cfg.Reports {
		if d == nil || d.Name == "" {
			return nil, fmt.Errorf("report at index %d has no name", i)
		}
		if d.Title == "" {
			return nil, fmt.Errorf("report %q has no title", d.Name)
		}
		if d.HistoryDays < 0 {
			return nil, fmt.Errorf("report %q has negative history_days", d.Name)
		}
		if len(d.Sections) == 0 {
			d.Sections = []string{model.SectionSummary, model.SectionChecks}
		}
		if pos, ok := index[d.Name]; ok {
			defs[pos] = d
			continue
		}
		index[d.Name] = len(defs)
		defs = append(defs, d)
	}

	return defs, nil
}

// FindReportDefinition returns the definition named name, or nil.
func FindReportDefinition(defs []*model.ReportDefinition, name string) *model.ReportDefinition {
	for _, d := range defs {
		if d.Name == name {
			return d
		}
	}
	return nil
}
