// Package dataset reads and writes daily solar grid files in NetCDF format.
package dataset

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	filePrefix = "solar_data_"
	fileExt    = ".nc"
	dayLayout  = "20060102"
)

var dailyName = regexp.MustCompile(`^solar_data_(\d{8})\.nc$`)

// FileName returns the name of the daily file for day.
func FileName(day time.Time) string {
	return filePrefix + day.UTC().Format(dayLayout) + fileExt
}

// SnapshotFileName returns the name of a snapshot file starting at start and
// computed at the given grid resolution.
func SnapshotFileName(start time.Time, resolution float64) string {
	return filePrefix + start.UTC().Format("20060102_150405") +
		"_res" + strconv.FormatFloat(resolution, 'g', 6, 64) + fileExt
}

// ParseFileName returns the day encoded in a daily file name.
func ParseFileName(name string) (time.Time, error) {
	m := dailyName.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, fmt.Errorf("%q is not a daily file name", name)
	}
	day, err := time.Parse(dayLayout, m[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("%q: %w", name, err)
	}
	return day, nil
}

// isCandidate reports whether name looks like an output file at all.
func isCandidate(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileExt)
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
