package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"msp-toolkit/internal/model"
	"msp-toolkit/internal/service"
)

var (
	healthAll     bool
	healthTypes   []string
	historyDays   int
	configCPU     float64
	configMemory  float64
	configDisk    float64
	configEnabled []string
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run and inspect client health checks",
}

var healthCheckCmd = &cobra.Command{
	Use:   "check [client]",
	Short: "Run health checks",
	Long: `Run health checks for one client, or for every active client with --all.

Without --type each client runs its enabled checks, or the default sequence
cpu, memory, disk, services, network.`,
	Example: `  msp health check acme-corp
  msp health check acme-corp --type cpu,memory
  msp health check --all`,
	Args: cobra.MaximumNArgs(1),
	Run:  runHealthCheck,
}

var healthHistoryCmd = &cobra.Command{
	Use:   "history <client>",
	Short: "Show stored check results, newest first",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := bootstrap(cmd)
		defer a.Close()

		results, err := a.engine.GetHistory(cmd.Context(), args[0], historyDays)
		if err != nil {
			fail(err)
		}
		if len(results) == 0 {
			warn("No health checks recorded for %s in the last %d day(s)", args[0], historyDays)
			return
		}

		fmt.Printf("Health history for %s (last %d day(s), %d results)\n", bold(args[0]), historyDays, len(results))
		for _, r := range results {
			fmt.Printf("  %s  %-10s %-22s %s\n", r.Timestamp.Local().Format(timeLayout), r.Kind, statusMarker(r.Status), r.Message)
		}
	},
}

var healthSummaryCmd = &cobra.Command{
	Use:   "summary <client>",
	Short: "Summarize the last 24 hours of checks",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := bootstrap(cmd)
		defer a.Close()

		summary, err := a.engine.GetStatusSummary(cmd.Context(), args[0])
		if err != nil {
			fail(err)
		}
		printSummary(summary)
	},
}

var healthConfigureCmd = &cobra.Command{
	Use:   "configure <client>",
	Short: "Set per-client thresholds and enabled checks",
	Example: `  msp health configure acme-corp --cpu 70 --disk 95
  msp health configure acme-corp --enable cpu,memory,services`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		payload := configurePayload(cmd)
		if len(payload) == 0 {
			fail(&model.ValidationError{Message: "nothing to configure: pass --cpu, --memory, --disk or --enable"})
		}

		a := bootstrap(cmd)
		defer a.Close()

		if _, err := a.engine.Configure(cmd.Context(), args[0], payload); err != nil {
			fail(err)
		}
		success("Health check configuration saved for %s", args[0])
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.AddCommand(healthCheckCmd, healthHistoryCmd, healthSummaryCmd, healthConfigureCmd)

	healthCheckCmd.Flags().BoolVar(&healthAll, "all", false, "check every active client")
	healthCheckCmd.Flags().StringSliceVar(&healthTypes, "type", nil, "check types to run (cpu,memory,disk,services,network)")

	healthHistoryCmd.Flags().IntVar(&historyDays, "days", service.DefaultHistoryDays, "number of days to look back")

	healthConfigureCmd.Flags().Float64Var(&configCPU, "cpu", 0, "CPU warning threshold in percent")
	healthConfigureCmd.Flags().Float64Var(&configMemory, "memory", 0, "memory warning threshold in percent")
	healthConfigureCmd.Flags().Float64Var(&configDisk, "disk", 0, "disk warning threshold in percent")
	healthConfigureCmd.Flags().StringSliceVar(&configEnabled, "enable", nil, "checks to run by default (cpu,memory,disk,services,network)")
}

// configurePayload builds the Configure payload from the flags that were set.
func configurePayload(cmd *cobra.Command) map[string]interface{} {
	payload := make(map[string]interface{})

	thresholds := make(map[string]interface{})
	for flag, v := range map[string]float64{"cpu": configCPU, "memory": configMemory, "disk": configDisk} {
		if cmd.Flags().Changed(flag) {
			thresholds[flag+"_percent"] = v
		}
	}
	if len(thresholds) > 0 {
		payload["thresholds"] = thresholds
	}
	if cmd.Flags().Changed("enable") {
		payload["enabled_checks"] = configEnabled
	}
	return payload
}

func runHealthCheck(cmd *cobra.Command, args []string) {
	if healthAll == (len(args) == 1) {
		fail(&model.ValidationError{Message: "specify either a client or --all"})
	}

	a := bootstrap(cmd)
	defer a.Close()

	if !healthAll {
		results, err := a.engine.RunChecks(cmd.Context(), args[0], healthTypes...)
		if err != nil {
			fail(err)
		}
		fmt.Printf("Health checks for %s\n", bold(args[0]))
		printResults(results)
		return
	}

	kinds, err := model.ParseCheckKinds(healthTypes)
	if err != nil {
		fail(err)
	}
	if len(kinds) == 0 {
		kinds = nil
	}

	fleet, err := a.fleet.RunAll(cmd.Context(), kinds)
	if err != nil {
		fail(err)
	}
	if len(fleet) == 0 {
		warn("No active clients to check")
		return
	}

	var failed []string
	for _, res := range fleet {
		if res.Failed() {
			fmt.Printf("\n%s\n", bold(res.ClientID))
			fmt.Printf("  %s %s\n", red("❌"), res.Error)
			failed = append(failed, res.ClientID)
			continue
		}
		fmt.Printf("\n%s  %s\n", bold(res.ClientID), statusMarker(res.Status()))
		printResults(res.Results)
	}
	fmt.Println()

	if len(failed) > 0 {
		fmt.Fprintf(os.Stderr, "❌ %s\n", red(fmt.Sprintf("%d of %d clients failed: %s", len(failed), len(fleet), strings.Join(failed, ", "))))
		a.Close()
		os.Exit(1)
	}
	success("Checked %d clients", len(fleet))
}
