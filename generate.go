package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rtm0/solargrid/internal/catalog"
	"github.com/rtm0/solargrid/internal/config"
	"github.com/rtm0/solargrid/internal/dataset"
	"github.com/rtm0/solargrid/internal/ephemeris"
	"github.com/rtm0/solargrid/internal/httpapi"
	"github.com/rtm0/solargrid/internal/manifest"
	"github.com/rtm0/solargrid/internal/notify"
	"github.com/rtm0/solargrid/internal/observability"
	"github.com/rtm0/solargrid/internal/pipeline"
	"github.com/rtm0/solargrid/internal/solar"
)

func generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate the daily grid files",
		Long:  "Resume after the latest completed day and write one file per remaining day of the configured range",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return generate(ctx, cfg, logger)
		},
	}
}

func generate(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	start, end, err := cfg.Run.Dates()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return err
	}

	computer, err := newComputer(cfg, false)
	if err != nil {
		return err
	}
	sampling := solar.Sampling{Samples: cfg.Sampling.Samples, Interval: cfg.Sampling.Interval}
	writer := dataset.NewWriter(cfg.Output.Dir, computer, sampling, dataset.WithMetadata(metadata(cfg)))

	var resumer pipeline.Resumer = dataset.DirResumer{Dir: cfg.Output.Dir, Logger: logger}
	var observers []pipeline.Observer
	if cfg.Manifest.Path != "" {
		store, err := manifest.Open(cfg.Manifest.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		observers = append(observers, store)
		if cfg.Resume.Source == config.ResumeFromManifest {
			resumer = store
		}
	}

	publisher, err := notify.NewPublisher(notify.Config{
		Enabled:     cfg.MQTT.Enabled,
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		Timeout:     cfg.MQTT.Timeout,
	}, logger)
	if err != nil {
		logger.Warn("MQTT notifications disabled", "err", err)
		publisher, _ = notify.NewPublisher(notify.Config{}, logger)
	}
	defer publisher.Close()
	observers = append(observers, publisher)

	metrics := observability.NewMetrics()
	runner := pipeline.New(writer, resumer, pipeline.Options{
		Start:   start,
		End:     end,
		Workers: cfg.Run.Workers,
	}, logger, metrics, observers...)

	if cfg.Status.Addr != "" {
		srv := httpapi.NewServer(cfg.Status.Addr, runner, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Status server failed", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	sum, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	if cfg.Catalog.Enabled {
		path := filepath.Join(cfg.Output.Dir, catalog.FileName)
		if err := catalog.Merge(path, catalog.Rows(sum)); err != nil {
			logger.Error("Could not update catalog", "path", path, "err", err)
		}
	}
	if err := publisher.PublishSummary(sum); err != nil {
		logger.Warn("Could not publish run summary", "err", err)
	}
	return sum.Err()
}

// newComputer loads the ephemeris and builds the grid computer. Snapshots
// use the grid that includes the +90 and +180 edges.
func newComputer(cfg *config.Config, inclusive bool) (*solar.Computer, error) {
	eph, err := ephemeris.Load(cfg.Ephemeris.Model, cfg.Ephemeris.Path)
	if err != nil {
		return nil, fmt.Errorf("could not load ephemeris: %w", err)
	}
	newGrid := solar.NewGrid
	if inclusive {
		newGrid = solar.NewInclusiveGrid
	}
	grid, err := newGrid(cfg.Grid.Resolution)
	if err != nil {
		return nil, err
	}
	consts := solar.Constants{SolarConstant: cfg.Constants.Solar, ConversionFactor: cfg.Constants.Conversion}
	return solar.NewComputer(grid, consts, eph), nil
}

func metadata(cfg *config.Config) dataset.Metadata {
	meta := dataset.DefaultMetadata()
	if cfg.Metadata.Title != "" {
		meta.Title = cfg.Metadata.Title
	}
	if cfg.Metadata.MadeBy != "" {
		meta.MadeBy = cfg.Metadata.MadeBy
	}
	switch cfg.Ephemeris.Model {
	case ephemeris.ModelAnalytic:
		meta.Source = "Generated from low-precision analytic solar ephemeris calculations"
	default:
		meta.Source = "Generated from VSOP87 solar ephemeris calculations"
	}
	return meta
}
