package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"msp-toolkit/internal/service"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the toolkit installation",
	Long: `Check configuration validity, database reachability and schema version,
the metrics source, report output directory writability and every configured
integration endpoint.`,
	Run: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) {
	a := bootstrap(cmd)
	defer a.Close()

	report := a.doctor(cmd.Context()).Run(cmd.Context())

	for _, c := range report.Checks {
		var marker string
		switch c.Status {
		case service.DoctorOK:
			marker = green("✅")
		case service.DoctorSkipped:
			marker = yellow("⚠️ ")
		default:
			marker = red("❌")
		}
		fmt.Printf("%s %-16s %s\n", marker, c.Name, c.Message)
	}
	fmt.Println()

	if !report.Healthy {
		fmt.Fprintln(os.Stderr, red("❌ some checks failed"))
		a.Close()
		os.Exit(1)
	}
	success("All checks passed")
}
