// Package catalog maintains a Parquet table of per-day irradiance statistics
// next to the grid files.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"

	"github.com/rtm0/solargrid/internal/pipeline"
)

// FileName is the catalog's name inside the output directory.
const FileName = "solar_summary.parquet"

// Row is the Parquet schema of one day.
type Row struct {
	Day              string  `parquet:"day"` // YYYY-MM-DD
	File             string  `parquet:"file"`
	Samples          int64   `parquet:"samples"`
	MaxIrradiance    float64 `parquet:"max_irradiance"`
	MeanIrradiance   float64 `parquet:"mean_irradiance"`
	DaylightFraction float64 `parquet:"daylight_fraction"`
	GeneratedAt      int64   `parquet:"generated_at,timestamp(millisecond)"` // Unix ms
}

// Rows converts the written days of a run.
func Rows(sum pipeline.Summary) []Row {
	rows := make([]Row, 0, len(sum.Written))
	for _, res := range sum.Written {
		rows = append(rows, Row{
			Day:              res.Day.Format("2006-01-02"),
			File:             filepath.Base(res.Path),
			Samples:          int64(res.Stats.Samples),
			MaxIrradiance:    res.Stats.MaxIrradiance,
			MeanIrradiance:   res.Stats.MeanIrradiance,
			DaylightFraction: res.Stats.DaylightFraction,
			GeneratedAt:      res.Finished.UnixMilli(),
		})
	}
	return rows
}

// Read returns the rows of the catalog at path.
func Read(path string) ([]Row, error) {
	return parquet.ReadFile[Row](path)
}

// Merge adds rows to the catalog at path, creating it if needed. A new row
// replaces an existing one for the same day. Rows are kept sorted by day.
func Merge(path string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	existing, err := Read(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", path, err)
	}
	byDay := make(map[string]Row, len(existing)+len(rows))
	for _, r := range existing {
		byDay[r.Day] = r
	}
	for _, r := range rows {
		byDay[r.Day] = r
	}
	merged := make([]Row, 0, len(byDay))
	for _, r := range byDay {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Day < merged[j].Day })

	tmp := path + ".part"
	if err := parquet.WriteFile(tmp, merged); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}
