package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rtm0/solargrid/internal/dataset"
	"github.com/rtm0/solargrid/internal/solar"
)

func snapshotCmd() *cobra.Command {
	var (
		start      string
		interval   int
		count      int
		resolution float64
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Write a single file of samples from an arbitrary start time",
		Long:  "Compute count samples spaced by interval minutes from start on a grid including the +90 and +180 edges",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			from, err := time.Parse(time.RFC3339, start)
			if err != nil {
				if from, err = time.Parse("2006-01-02T15:04:05", start); err != nil {
					return fmt.Errorf("invalid start %q: %w", start, err)
				}
			}
			if interval < 1 {
				return fmt.Errorf("interval must be at least one minute, got %d", interval)
			}
			if cmd.Flags().Changed("resolution") {
				cfg.Grid.Resolution = resolution
			}
			if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
				return err
			}

			computer, err := newComputer(cfg, true)
			if err != nil {
				return err
			}
			w := dataset.NewWriter(cfg.Output.Dir, computer, solar.DefaultSampling(), dataset.WithMetadata(metadata(cfg)))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			began := time.Now()
			path, err := w.WriteSnapshot(ctx, from, time.Duration(interval)*time.Minute, count, cfg.Grid.Resolution)
			if err != nil {
				return err
			}
			logger.Info("Snapshot written",
				"path", path,
				"samples", count,
				"latitudes", len(computer.Grid().Latitudes),
				"longitudes", len(computer.Grid().Longitudes),
				"in", time.Since(began).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "start time, RFC 3339 or YYYY-MM-DDTHH:MM:SS in UTC")
	cmd.Flags().IntVar(&interval, "interval", 60, "minutes between samples")
	cmd.Flags().IntVar(&count, "count", 24, "number of samples")
	cmd.Flags().Float64Var(&resolution, "resolution", 1, "grid resolution in degrees (overrides grid.resolution)")
	cmd.MarkFlagRequired("start")
	return cmd
}
