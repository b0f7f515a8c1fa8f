package cmd

import (
	"github.com/spf13/cobra"

	"msp-toolkit/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long:  "Load and validate the configuration file: format, required fields, value ranges and integration settings.",
	Run:   runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) {
	if _, err := config.Load(cfgFile); err != nil {
		fail(err)
	}
	success("Configuration is valid: %s", cfgFile)
}
