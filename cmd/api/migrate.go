package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"internportal/internal/config"
	"internportal/internal/database"
	"internportal/internal/observability"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := observability.NewLogger(cfg.LogLevel)
			db, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db, cfg.DBDriver); err != nil {
				return err
			}
			logger.Info("schema applied", "driver", cfg.DBDriver)
			return nil
		},
	}
}
