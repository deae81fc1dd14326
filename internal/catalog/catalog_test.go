package catalog

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtm0/solargrid/internal/pipeline"
	"github.com/rtm0/solargrid/internal/solar"
)

func TestRows(t *testing.T) {
	day := time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC)
	finished := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	sum := pipeline.Summary{
		Written: []pipeline.DayResult{{
			Day:      day,
			Path:     "/out/solar_data_20190102.nc",
			Stats:    solar.Stats{Samples: 8, MaxIrradiance: 1300, MeanIrradiance: 300, DaylightFraction: 0.5},
			Finished: finished,
		}},
		Failed: []pipeline.DayResult{{Day: day.AddDate(0, 0, 1), Err: errors.New("boom")}},
	}

	rows := Rows(sum)
	require.Len(t, rows, 1)
	assert.Equal(t, Row{
		Day:              "2019-01-02",
		File:             "solar_data_20190102.nc",
		Samples:          8,
		MaxIrradiance:    1300,
		MeanIrradiance:   300,
		DaylightFraction: 0.5,
		GeneratedAt:      finished.UnixMilli(),
	}, rows[0])
}

func TestMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	require.NoError(t, Merge(path, []Row{
		{Day: "2019-01-02", MaxIrradiance: 2},
		{Day: "2019-01-01", MaxIrradiance: 1},
	}))
	require.NoError(t, Merge(path, []Row{
		{Day: "2019-01-03", MaxIrradiance: 3},
		{Day: "2019-01-02", MaxIrradiance: 20},
	}))

	rows, err := Read(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2019-01-01", rows[0].Day)
	assert.Equal(t, 20.0, rows[1].MaxIrradiance)
	assert.Equal(t, "2019-01-03", rows[2].Day)
}

func TestMerge_NothingToAdd(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	require.NoError(t, Merge(path, nil))
	_, err := Read(path)
	assert.Error(t, err)
}
