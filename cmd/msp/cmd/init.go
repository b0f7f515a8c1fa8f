package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"msp-toolkit/internal/config"
	"msp-toolkit/internal/storage"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file and the database",
	Long: `Write a configuration file with the default settings and create the
database with the current schema.

Example:
  msp init
  msp init -c /etc/msp/msp-toolkit.yaml --force`,
	Run: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing configuration file")
}

func runInit(cmd *cobra.Command, args []string) {
	cfg := config.Default()
	if err := config.WriteFile(cfg, cfgFile, initForce); err != nil {
		fail(err)
	}
	success("Configuration written to %s", cfgFile)

	logger := newLogger(cfg)
	registry := storage.NewRegistry(logger)
	defer registry.Close()

	db, err := registry.Open(cfg.Database.Type, cfg.Database.Path)
	if err != nil {
		fail(fmt.Errorf("failed to create database: %w", err))
	}
	version, err := storage.SchemaVersion(db)
	if err != nil {
		fail(err)
	}
	success("Database ready at %s (schema version %d)", cfg.Database.Path, version)
}
