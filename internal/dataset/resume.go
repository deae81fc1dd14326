package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// LatestCompleted scans dir for daily files and returns the latest day found.
// The boolean is false when there is none. Files that carry the output prefix
// and extension but do not encode a valid day are logged and skipped.
func LatestCompleted(logger *slog.Logger, dir string) (time.Time, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("list %s: %w", dir, err)
	}
	var latest time.Time
	found := false
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !isCandidate(name) {
			continue
		}
		day, err := ParseFileName(name)
		if err != nil {
			logger.Warn("Skipping malformed output file", "file", name, "err", err)
			continue
		}
		if !found || day.After(latest) {
			latest = day
			found = true
		}
	}
	return latest, found, nil
}

// DirResumer finds the resume point by scanning an output directory.
type DirResumer struct {
	Dir    string
	Logger *slog.Logger
}

// LatestCompleted implements pipeline.Resumer.
func (r DirResumer) LatestCompleted(_ context.Context) (time.Time, bool, error) {
	return LatestCompleted(r.Logger, r.Dir)
}
