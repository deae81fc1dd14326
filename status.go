package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rtm0/solargrid/internal/dataset"
	"github.com/rtm0/solargrid/internal/manifest"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the next generate run resumes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			start, end, err := cfg.Run.Dates()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			last, ok, err := dataset.LatestCompleted(logger, cfg.Output.Dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Output directory: %s\n", cfg.Output.Dir)
			fmt.Fprintf(out, "Configured range: %s to %s (exclusive)\n", start.Format(time.DateOnly), end.Format(time.DateOnly))
			printResume(cmd, "files", last, ok, start, end)

			if cfg.Manifest.Path == "" {
				return nil
			}
			store, err := manifest.Open(cfg.Manifest.Path)
			if err != nil {
				return err
			}
			defer store.Close()
			ctx := cmd.Context()
			last, ok, err = store.LatestCompleted(ctx)
			if err != nil {
				return err
			}
			count, err := store.Count(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Manifest %s: %d completed days\n", cfg.Manifest.Path, count)
			printResume(cmd, "manifest", last, ok, start, end)
			return nil
		},
	}
}

func printResume(cmd *cobra.Command, source string, last time.Time, ok bool, start, end time.Time) {
	out := cmd.OutOrStdout()
	if !ok {
		fmt.Fprintf(out, "[%s] nothing completed, next run starts at %s\n", source, start.Format(time.DateOnly))
		return
	}
	next := last.AddDate(0, 0, 1)
	remaining := int(end.Sub(next).Hours() / 24)
	if remaining < 0 {
		remaining = 0
	}
	fmt.Fprintf(out, "[%s] latest completed %s, next run starts at %s, %d days left\n",
		source, last.Format(time.DateOnly), next.Format(time.DateOnly), remaining)
}
