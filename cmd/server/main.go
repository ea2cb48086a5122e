// Command server runs the CyberSentinel contact intake backend.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/exposingwithjay/cybersentinel-backend/internal/config"
	"github.com/exposingwithjay/cybersentinel-backend/internal/logger"
	"github.com/spf13/cobra"
)

var envFiles []string

// rootCmd runs the server when no subcommand is given
var rootCmd = &cobra.Command{
	Use:           "cybersentinel",
	Short:         "CyberSentinel contact intake backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "Environment files to load (existing variables win)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(pruneCmd)
}

// loadConfig reads the environment files and builds a validated config and
// the process logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	if err := config.LoadEnvFiles(envFiles...); err != nil {
		return nil, nil, err
	}

	cfg, err := config.LoadWithValidation()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(log)
	return cfg, log, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
