// Package cmd provides the CLI commands of the MSP toolkit.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"msp-toolkit/internal/config"
)

// Version information, injected at build time via -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Global flags
var (
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "msp",
	Short: "MSP automation toolkit",
	Long: `msp manages clients and their devices, runs health checks against their
infrastructure, keeps the results as history and renders client reports.

The same operations are exposed to AI agents with "msp mcp".`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv()
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fail(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultConfigPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json); overrides the config file")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// GetVersionInfo returns formatted version information.
func GetVersionInfo() string {
	return Version + "\n" +
		"Build Time: " + BuildTime + "\n" +
		"Git Commit: " + GitCommit + "\n" +
		"Go Version: " + runtime.Version() + "\n" +
		"OS/Arch: " + runtime.GOOS + "/" + runtime.GOARCH
}

// loadConfig reads the config file. Without an explicit --config and without
// the default file, defaults and MSP_* variables are used.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
			return config.LoadDefaults()
		}
	}
	return config.Load(cfgFile)
}

// newLogger builds the process logger from cfg, letting the flags win.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, format := cfg.Logging.Level, cfg.Logging.Format
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	return setupLogger(level, format, cfg.General.Timezone)
}

// setupLogger writes to stderr so stdout stays usable for command output and
// the agent protocol.
func setupLogger(level, format, timezone string) zerolog.Logger {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	tz, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		tz = time.Local
	}
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().In(tz)
	}

	var output io.Writer
	if format == "json" {
		output = os.Stderr
	} else {
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

func mustLoadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fail(fmt.Errorf("failed to load config: %w", err))
	}
	return cfg
}
