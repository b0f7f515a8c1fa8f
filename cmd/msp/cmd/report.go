package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"msp-toolkit/internal/model"
)

var (
	reportTemplate string
	reportFormat   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate client reports",
}

var reportGenerateCmd = &cobra.Command{
	Use:   "generate <client>",
	Short: "Generate a report for a client",
	Long: `Render a report template for a client into the configured output directory.

Formats: html, markdown (md), excel (xlsx), pdf (written as HTML).`,
	Example: `  msp report generate acme-corp --template health-report
  msp report generate acme-corp --template sla-compliance --format excel`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := bootstrap(cmd)
		defer a.Close()

		report, err := a.reports.Generate(cmd.Context(), args[0], reportTemplate, reportFormat)
		if err != nil {
			fail(err)
		}
		success("Report generated: %s", report.FilePath)
		fmt.Printf("   Template: %s\n", report.Template)
		fmt.Printf("   Format:   %s\n", report.Format)
		fmt.Printf("   ID:       %s\n", report.ID)
	},
}

var reportTemplatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List report templates",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := bootstrap(cmd)
		defer a.Close()

		defs := make(map[string]*model.ReportDefinition)
		for _, d := range a.reports.Definitions() {
			defs[d.Name] = d
		}

		names, err := a.reports.ListTemplates()
		if err != nil {
			fail(err)
		}
		for _, name := range names {
			if d, ok := defs[name]; ok {
				fmt.Printf("  %-20s %s\n", bold(name), d.Title)
				continue
			}
			fmt.Printf("  %-20s %s\n", bold(name), "(custom HTML template)")
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportGenerateCmd, reportTemplatesCmd)

	reportGenerateCmd.Flags().StringVar(&reportTemplate, "template", model.ReportTemplateHealthReport, "report template")
	reportGenerateCmd.Flags().StringVar(&reportFormat, "format", "", "output format (defaults to reporting.default_format)")
}
