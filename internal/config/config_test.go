package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "solargrid.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, ".", cfg.Output.Dir)
	assert.Equal(t, "2019-01-01", cfg.Run.Start)
	assert.Equal(t, "2022-01-01", cfg.Run.End)
	assert.Equal(t, 4, cfg.Run.Workers)
	assert.Equal(t, 1.0, cfg.Grid.Resolution)
	assert.Equal(t, 8, cfg.Sampling.Samples)
	assert.Equal(t, 3*time.Hour, cfg.Sampling.Interval)
	assert.Equal(t, 1361.0, cfg.Constants.Solar)
	assert.Equal(t, 93.0, cfg.Constants.Conversion)
	assert.Equal(t, "vsop87", cfg.Ephemeris.Model)
	assert.Equal(t, ResumeFromFiles, cfg.Resume.Source)
	assert.Empty(t, cfg.Manifest.Path)
	assert.False(t, cfg.Catalog.Enabled)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, 10*time.Second, cfg.MQTT.Timeout)
	assert.Empty(t, cfg.Status.Addr)
	assert.Equal(t, "http://localhost:8428/write", cfg.Export.InsertURL)
	assert.Equal(t, 500, cfg.Export.RecsPerInsert)

	start, end, err := cfg.Run.Dates()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
output:
  dir: /data/solar
run:
  start: "2020-03-01"
  end: "2020-04-01"
  workers: 8
grid:
  resolution: 0.5
sampling:
  samples: 24
  interval: 1h
ephemeris:
  model: analytic
resume:
  source: manifest
manifest:
  path: /data/solar/manifest.db
catalog:
  enabled: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/solar", cfg.Output.Dir)
	assert.Equal(t, "2020-03-01", cfg.Run.Start)
	assert.Equal(t, 8, cfg.Run.Workers)
	assert.Equal(t, 0.5, cfg.Grid.Resolution)
	assert.Equal(t, 24, cfg.Sampling.Samples)
	assert.Equal(t, time.Hour, cfg.Sampling.Interval)
	assert.Equal(t, "analytic", cfg.Ephemeris.Model)
	assert.Equal(t, ResumeFromManifest, cfg.Resume.Source)
	assert.True(t, cfg.Catalog.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SOLARGRID_RUN_WORKERS", "2")
	t.Setenv("SOLARGRID_OUTPUT_DIR", "/tmp/out")
	t.Setenv("SOLARGRID_LOG_FORMAT", "json")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Run.Workers)
	assert.Equal(t, "/tmp/out", cfg.Output.Dir)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Invalid(t *testing.T) {
	for name, tc := range map[string]struct {
		body string
		want string
	}{
		"bad start":        {"run:\n  start: 2019/01/01\n", "run.start"},
		"inverted range":   {"run:\n  start: \"2020-01-01\"\n  end: \"2019-01-01\"\n", "before"},
		"no workers":       {"run:\n  workers: 0\n", "run.workers"},
		"bad resolution":   {"grid:\n  resolution: 0\n", "grid.resolution"},
		"no samples":       {"sampling:\n  samples: 0\n", "sampling.samples"},
		"unknown model":    {"ephemeris:\n  model: de421\n", "ephemeris.model"},
		"manifest no path": {"resume:\n  source: manifest\n", "manifest.path"},
		"unknown resume":   {"resume:\n  source: s3\n", "resume.source"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
