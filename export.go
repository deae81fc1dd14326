package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rtm0/solargrid/internal/dataset"
	"github.com/rtm0/solargrid/internal/observability"
	"github.com/rtm0/solargrid/internal/solar"
	"github.com/rtm0/solargrid/internal/vm"
)

func exportCmd() *cobra.Command {
	var (
		insertURL     string
		concurrency   int
		recsPerInsert int
		metricPrefix  string
	)
	cmd := &cobra.Command{
		Use:   "export [file...]",
		Short: "Insert grid files into Victoria Metrics",
		Long:  "Scan grid files and insert their records into Victoria Metrics. Without arguments every daily file in the output directory is exported",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			flags := cmd.Flags()
			if flags.Changed("vmInsertUrl") {
				cfg.Export.InsertURL = insertURL
			}
			if flags.Changed("concurrency") {
				cfg.Export.Concurrency = concurrency
			}
			if flags.Changed("recsPerInsert") {
				cfg.Export.RecsPerInsert = recsPerInsert
			}
			if flags.Changed("metricPrefix") {
				cfg.Export.MetricPrefix = metricPrefix
			}
			if cfg.Export.Concurrency < 1 || cfg.Export.RecsPerInsert < 1 {
				return fmt.Errorf("concurrency and recsPerInsert must be at least 1")
			}

			files := args
			if len(files) == 0 {
				files, err = filepath.Glob(filepath.Join(cfg.Output.Dir, "solar_data_*.nc"))
				if err != nil {
					return err
				}
			}
			if len(files) == 0 {
				logger.Warn("Nothing to export", "dir", cfg.Output.Dir)
				return nil
			}

			vmCli, err := vm.NewClient(logger, cfg.Export.InsertURL, cfg.Export.Concurrency, cfg.Export.MetricPrefix, observability.NewMetrics())
			if err != nil {
				return fmt.Errorf("could not create new VM client: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			for _, f := range files {
				if err := exportFile(ctx, logger, vmCli, f, cfg.Export.Concurrency, cfg.Export.RecsPerInsert); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&insertURL, "vmInsertUrl", "", "Victoria Metrics insert API URL (overrides export.insert_url)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent requests to Victoria Metrics (overrides export.concurrency)")
	cmd.Flags().IntVar(&recsPerInsert, "recsPerInsert", 0, "number of records sent to VM in one batch (overrides export.recs_per_insert)")
	cmd.Flags().StringVar(&metricPrefix, "metricPrefix", "", "metric name prefix (overrides export.metric_prefix)")
	return cmd
}

// exportFile streams one file to Victoria Metrics, one timestamp at a time,
// with concurrency inserting workers.
func exportFile(ctx context.Context, logger *slog.Logger, vmCli *vm.Client, path string, concurrency, recsPerInsert int) error {
	s, err := dataset.NewScanner(path)
	if err != nil {
		return fmt.Errorf("could not create a scanner: %w", err)
	}
	defer s.Close()
	logger.Info("File summary", append([]any{"file", filepath.Base(path)}, s.Summary()...)...)

	recsCh := make(chan []solar.Record)
	progressCh := make(chan int)
	var failed sync.Map
	var wg sync.WaitGroup
	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for recs := range recsCh {
				n := len(recs)
				for begin := 0; begin < n; begin += recsPerInsert {
					limit := min(begin+recsPerInsert, n)
					if err := vmCli.Insert(ctx, recs[begin:limit]); err != nil {
						logger.Error("Could not insert records", "file", filepath.Base(path), "err", err)
						failed.Store(err.Error(), struct{}{})
					}
				}
				progressCh <- n
			}
		}()
	}
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		var inserted, total float64
		total = float64(s.TotalRecCount())
		start := time.Now()
		for n := range progressCh {
			inserted += float64(n)
			percent := fmt.Sprintf("%.2f%%", 100*inserted/total)
			duration := time.Since(start).Round(1 * time.Second)
			logger.Info("progress", "file", filepath.Base(path), "inserted", percent, "in", duration)
		}
	}()

	for s.Scan() {
		select {
		case recsCh <- s.Records():
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(recsCh)
	wg.Wait()
	close(progressCh)
	<-progressDone

	if err := s.Err(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var insertErr error
	failed.Range(func(k, _ any) bool {
		insertErr = fmt.Errorf("%s: some inserts failed: %s", path, k)
		return false
	})
	return insertErr
}
