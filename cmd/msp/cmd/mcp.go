package cmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"msp-toolkit/internal/observe"
	"msp-toolkit/internal/tools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the toolkit tools to AI agents over stdio",
	Long: `Serve the toolkit operations as agent tools using newline-delimited
JSON-RPC 2.0 on stdin and stdout. Logs go to stderr.

Tool calls are traced and counted according to the telemetry section of the
configuration.`,
	Args: cobra.NoArgs,
	Run:  runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) {
	a := bootstrap(cmd)
	defer a.Close()

	ctx := cmd.Context()
	obs, err := observe.New(ctx, a.cfg.Telemetry, a.logger, observe.WithVersion(Version))
	if err != nil {
		fail(err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	dispatcher, err := a.dispatcher(obs)
	if err != nil {
		fail(err)
	}

	server := tools.NewServer(dispatcher, "msp-toolkit", Version, a.logger)
	if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		a.logger.Error().Err(err).Msg("tool server stopped")
		fail(err)
	}
}
