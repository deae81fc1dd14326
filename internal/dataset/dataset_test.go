package dataset

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtm0/solargrid/internal/ephemeris"
	"github.com/rtm0/solargrid/internal/solar"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
}

func TestFileName_RoundTrip(t *testing.T) {
	day := date(2019, 1, 3)
	name := FileName(day)
	assert.Equal(t, "solar_data_20190103.nc", name)

	got, err := ParseFileName(name)
	require.NoError(t, err)
	assert.Equal(t, day, got)
}

func TestParseFileName_Rejects(t *testing.T) {
	for _, name := range []string{
		"solar_data_2019013.nc",
		"solar_data_20191301.nc",
		"solar_data_20190101_000000_res1.nc",
		"solar_data_20190101.nc.part",
		"other_20190101.nc",
	} {
		_, err := ParseFileName(name)
		assert.Error(t, err, name)
	}
}

func TestSnapshotFileName(t *testing.T) {
	start := time.Date(2019, 1, 1, 6, 30, 0, 0, time.UTC)
	assert.Equal(t, "solar_data_20190101_063000_res0.0833359.nc", SnapshotFileName(start, 0.08333588))
	assert.Equal(t, "solar_data_20190101_063000_res1.nc", SnapshotFileName(start, 1))
}

func TestLatestCompleted(t *testing.T) {
	dir := t.TempDir()
	for d := 1; d <= 5; d++ {
		touch(t, dir, FileName(date(2019, 1, d)))
	}

	latest, ok, err := LatestCompleted(discard, dir)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, date(2019, 1, 5), latest)
	assert.Equal(t, date(2019, 1, 6), latest.AddDate(0, 0, 1))
}

func TestLatestCompleted_Empty(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "notes.txt")

	_, ok, err := LatestCompleted(discard, dir)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLatestCompleted_SkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, FileName(date(2019, 1, 2)))
	touch(t, dir, "solar_data_2019xx01.nc")
	touch(t, dir, "solar_data_20991301.nc")
	touch(t, dir, SnapshotFileName(date(2030, 1, 1), 1))
	touch(t, dir, "solar_data_20300101.nc.part")

	latest, ok, err := LatestCompleted(discard, dir)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, date(2019, 1, 2), latest)
}

func TestLatestCompleted_MissingDir(t *testing.T) {
	_, _, err := LatestCompleted(discard, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func newTestWriter(t *testing.T, dir string, clock clockwork.Clock) *Writer {
	t.Helper()
	grid, err := solar.NewGrid(30)
	require.NoError(t, err)
	// Altitude rises with latitude so the grid holds both night and day.
	eph := ephemeris.Func(func(lat, _ float64, _ time.Time) float64 { return lat })
	computer := solar.NewComputer(grid, solar.DefaultConstants(), eph)
	return NewWriter(dir, computer, solar.DefaultSampling(), WithClock(clock))
}

func TestWriteDay_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))
	w := newTestWriter(t, dir, clock)
	day := date(2019, 1, 3)

	path, stats, err := w.WriteDay(context.Background(), day.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "solar_data_20190103.nc"), path)
	assert.Equal(t, day, stats.Day)
	assert.Equal(t, 8, stats.Samples)
	assert.InDelta(t, 1361*math.Sqrt(3)/2, stats.MaxIrradiance, 1e-9)

	latest, ok, err := LatestCompleted(discard, dir)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, day, latest)

	s, err := NewScanner(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, []float64{-90, -60, -30, 0, 30, 60}, s.Latitudes())
	assert.Len(t, s.Longitudes(), 12)
	times := s.Times()
	require.Len(t, times, 8)
	assert.Equal(t, day, times[0])
	assert.Equal(t, day.Add(21*time.Hour), times[7])

	history, ok := s.Attribute("history")
	require.True(t, ok)
	assert.Equal(t, "Created on 2024-05-06 07:08:09 UTC", history)
	conventions, _ := s.Attribute("Conventions")
	assert.Equal(t, "CF-1.6", conventions)
	start, _ := s.Attribute("time_coverage_start")
	assert.Equal(t, "2019-01-03T00:00:00", start)

	steps := 0
	for s.Scan() {
		recs := s.Records()
		require.Len(t, recs, 6*12)
		for _, r := range recs {
			assert.Equal(t, times[steps].UnixMilli(), r.Timestamp)
			if r.Latitude <= 0 {
				assert.Zero(t, r.Irradiance)
			} else {
				assert.Greater(t, r.Irradiance, 0.0)
			}
			assert.Equal(t, r.Irradiance*93, r.Luminance)
		}
		steps++
	}
	require.NoError(t, s.Err())
	assert.Equal(t, 8, steps)
	assert.Nil(t, s.Records())
}

func TestWriteDay_Overwrite(t *testing.T) {
	dir := t.TempDir()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	w := newTestWriter(t, dir, clock)
	day := date(2019, 1, 1)

	path, _, err := w.WriteDay(context.Background(), day)
	require.NoError(t, err)
	first, err := NewScanner(path)
	require.NoError(t, err)
	lat1, lon1, times1 := first.Latitudes(), first.Longitudes(), first.Times()
	first.Close()

	clock.Advance(time.Hour)
	path2, _, err := w.WriteDay(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, path, path2)

	second, err := NewScanner(path)
	require.NoError(t, err)
	defer second.Close()
	assert.Equal(t, lat1, second.Latitudes())
	assert.Equal(t, lon1, second.Longitudes())
	assert.Equal(t, times1, second.Times())
	history, _ := second.Attribute("history")
	assert.Equal(t, "Created on 2024-01-01 01:00:00 UTC", history)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteDay_Cancelled(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter(t, dir, clockwork.NewFakeClock())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := w.WriteDay(ctx, date(2019, 1, 1))
	require.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteDay_UnwritableDir(t *testing.T) {
	w := newTestWriter(t, filepath.Join(t.TempDir(), "missing"), clockwork.NewFakeClock())

	_, _, err := w.WriteDay(context.Background(), date(2019, 1, 1))
	assert.Error(t, err)
}

func TestWriteSnapshot(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter(t, dir, clockwork.NewFakeClock())
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

	path, err := w.WriteSnapshot(context.Background(), start, 90*time.Minute, 3, 30)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "solar_data_20190101_000000_res30.nc"), path)

	s, err := NewScanner(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, []time.Time{start, start.Add(90 * time.Minute), start.Add(3 * time.Hour)}, s.Times())

	_, ok, err := LatestCompleted(discard, dir)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDataset_TimeCoordinate(t *testing.T) {
	d := &Dataset{Times: []time.Time{date(1950, 1, 2), date(2019, 1, 1).Add(3 * time.Hour)}}

	assert.Equal(t, []float64{24, hoursSinceEpoch(date(2019, 1, 1)) + 3}, d.Hours())
	assert.Equal(t, []string{"1950-01-02T00:00:00", "2019-01-01T03:00:00"}, d.TimeLabels())
}

func hoursSinceEpoch(t time.Time) float64 {
	return t.Sub(timeEpoch).Hours()
}
