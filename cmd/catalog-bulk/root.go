package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openpim/catalog-bulk/internal/cli"
	"github.com/openpim/catalog-bulk/internal/config"
	"github.com/openpim/catalog-bulk/pkg/log"
)

var (
	migrationFolder string
	skipMigrations  bool
)

var rootCmd = &cobra.Command{
	Use:   "catalog-bulk",
	Short: "Bulk import and export service for the product catalog",
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cli.NewCmdFields())
	rootCmd.AddCommand(cli.NewCmdTemplate())
	rootCmd.AddCommand(cli.NewCmdConfig())

	rootCmd.PersistentFlags().StringVar(&migrationFolder, "migrations", "", "Folder holding the sql migrations, the embedded set is used when empty")
	runCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not migrate the database on startup")
}

// setup reads the configuration and installs the global zap logger. The returned func
// flushes and restores the previous logger.
func setup() (*config.Config, func(), error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}
	if migrationFolder != "" {
		cfg.Service.MigrationFolder = migrationFolder
	}

	logger := log.InitLog(log.ParseLevel(cfg.Service.LogLevel), cfg.Service.LogFormat)
	undo := zap.ReplaceGlobals(logger)

	return cfg, func() {
		_ = logger.Sync()
		undo()
	}, nil
}
