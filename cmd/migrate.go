package main

import (
	"fmt"

	"github.com/Shivanand-hulikatti/event-participation/internal/config"
	"github.com/Shivanand-hulikatti/event-participation/internal/database"
	"github.com/spf13/cobra"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the PostgreSQL schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := config.NewLogger(cfg.Logging)

		logger.Info().Msg("applying migrations")
		if err := database.MigrateUp(cfg.Database.DSN()); err != nil {
			return err
		}
		return reportVersion(cmd, cfg, "migrated up")
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if migrateSteps < 1 {
			return fmt.Errorf("--steps must be at least 1")
		}
		if err := database.MigrateDown(cfg.Database.DSN(), migrateSteps); err != nil {
			return err
		}
		return reportVersion(cmd, cfg, "migrated down")
	},
}

func reportVersion(cmd *cobra.Command, cfg config.Config, action string) error {
	version, dirty, err := database.MigrationVersion(cfg.Database.DSN())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %d (dirty=%t)\n", action, version, dirty)
	return nil
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}
