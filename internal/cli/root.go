// Package cli wires the dealership commands: serve, migrate and admin.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/car-dealership/internal/config"
	"github.com/iliyamo/car-dealership/internal/logging"
)

// configPath is the optional config file given by --config.
var configPath string

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Car dealership API server",
	Long: `Backend for the car dealership site: catalogue, bookings, reviews,
contact messages and the admin dashboard.

Configuration comes from environment variables (and an optional .env),
optionally merged with a YAML/JSON/TOML file passed with --config.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "optional config file (env vars take precedence)")
}

// bootstrap loads configuration and installs the default logger.
func bootstrap() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	lg, err := logging.New(logging.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON})
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	return cfg, lg.With("env", cfg.Env), nil
}
