package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/exposingwithjay/cybersentinel-backend/internal/database"
	"github.com/exposingwithjay/cybersentinel-backend/internal/repository"
	"github.com/exposingwithjay/cybersentinel-backend/internal/services"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := database.Connect(cfg.DatabaseURL, cfg.IsProduction())
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Info("database migrated")
		return nil
	},
}

var pruneTimeout time.Duration

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Trim both contact logs to their configured bounds once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := database.Connect(cfg.DatabaseURL, cfg.IsProduction())
		if err != nil {
			return err
		}
		defer database.Close(db)

		retention := services.NewRetentionService(repository.NewContactLogRepository(db), services.RetentionConfig{
			OperationalLogLimit: cfg.OperationalLogLimit,
			DisplayLogLimit:     cfg.DisplayLogLimit,
			Timeout:             pruneTimeout,
		}, log, nil)

		ctx, cancel := context.WithTimeout(cmd.Context(), pruneTimeout)
		defer cancel()

		removed, err := retention.RunOnce(ctx)
		if err != nil {
			return fmt.Errorf("prune failed: %w", err)
		}
		log.Info("contact logs pruned", slog.Int64("removed", removed))
		return nil
	},
}

func init() {
	pruneCmd.Flags().DurationVar(&pruneTimeout, "timeout", time.Minute, "Maximum time for the sweep")
}
