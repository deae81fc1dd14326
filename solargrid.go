package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtm0/solargrid/internal/config"
	"github.com/rtm0/solargrid/internal/observability"
)

var (
	configFile string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "solargrid",
		Short:         "Theoretical solar irradiance grids",
		Long:          "Computes daily global grids of clear-sky solar irradiance and luminance and stores them as NetCDF files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default ./solargrid.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides log.level)")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(snapshotCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(statusCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("solargrid failed", "err", err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger every command uses.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, observability.NewLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format), nil
}
