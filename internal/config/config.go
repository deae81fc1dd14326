// Package config loads solargrid settings from a YAML file, SOLARGRID_*
// environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rtm0/solargrid/internal/ephemeris"
)

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Output    OutputConfig    `mapstructure:"output"`
	Run       RunConfig       `mapstructure:"run"`
	Grid      GridConfig      `mapstructure:"grid"`
	Sampling  SamplingConfig  `mapstructure:"sampling"`
	Constants ConstantsConfig `mapstructure:"constants"`
	Ephemeris EphemerisConfig `mapstructure:"ephemeris"`
	Metadata  MetadataConfig  `mapstructure:"metadata"`
	Resume    ResumeConfig    `mapstructure:"resume"`
	Manifest  ManifestConfig  `mapstructure:"manifest"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Status    StatusConfig    `mapstructure:"status"`
	Export    ExportConfig    `mapstructure:"export"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

type RunConfig struct {
	Start   string `mapstructure:"start"` // YYYY-MM-DD, first day when nothing is done yet
	End     string `mapstructure:"end"`   // YYYY-MM-DD, exclusive
	Workers int    `mapstructure:"workers"`
}

type GridConfig struct {
	Resolution float64 `mapstructure:"resolution"` // degrees
}

type SamplingConfig struct {
	Samples  int           `mapstructure:"samples"`
	Interval time.Duration `mapstructure:"interval"`
}

type ConstantsConfig struct {
	Solar      float64 `mapstructure:"solar"`
	Conversion float64 `mapstructure:"conversion"`
}

type EphemerisConfig struct {
	Model string `mapstructure:"model"`
	Path  string `mapstructure:"path"` // directory holding VSOP87B.ear
}

type MetadataConfig struct {
	Title  string `mapstructure:"title"`
	MadeBy string `mapstructure:"made_by"`
}

type ResumeConfig struct {
	Source string `mapstructure:"source"` // files or manifest
}

type ManifestConfig struct {
	Path string `mapstructure:"path"`
}

type CatalogConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type MQTTConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Broker      string        `mapstructure:"broker"`
	TopicPrefix string        `mapstructure:"topic_prefix"`
	ClientID    string        `mapstructure:"client_id"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type StatusConfig struct {
	Addr string `mapstructure:"addr"`
}

type ExportConfig struct {
	InsertURL     string `mapstructure:"insert_url"`
	Concurrency   int    `mapstructure:"concurrency"`
	RecsPerInsert int    `mapstructure:"recs_per_insert"`
	MetricPrefix  string `mapstructure:"metric_prefix"`
}

// Resume sources.
const (
	ResumeFromFiles    = "files"
	ResumeFromManifest = "manifest"
)

// Load reads the configuration. An empty configPath looks for solargrid.yaml
// in the working directory; a missing default file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("solargrid")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("solargrid")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("output.dir", ".")
	v.SetDefault("run.start", "2019-01-01")
	v.SetDefault("run.end", "2022-01-01")
	v.SetDefault("run.workers", 4)
	v.SetDefault("grid.resolution", 1.0)
	v.SetDefault("sampling.samples", 8)
	v.SetDefault("sampling.interval", "3h")
	v.SetDefault("constants.solar", 1361.0)
	v.SetDefault("constants.conversion", 93.0)
	v.SetDefault("ephemeris.model", ephemeris.ModelVSOP87)
	v.SetDefault("ephemeris.path", ".")
	v.SetDefault("metadata.title", "Theoretical Solar Irradiance and Luminance Data")
	v.SetDefault("metadata.made_by", "solargrid")
	v.SetDefault("resume.source", ResumeFromFiles)
	v.SetDefault("manifest.path", "")
	v.SetDefault("catalog.enabled", false)
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic_prefix", "solargrid")
	v.SetDefault("mqtt.client_id", "solargrid")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.timeout", "10s")
	v.SetDefault("status.addr", "")
	v.SetDefault("export.insert_url", "http://localhost:8428/write")
	v.SetDefault("export.concurrency", 4)
	v.SetDefault("export.recs_per_insert", 500)
	v.SetDefault("export.metric_prefix", "solar")
}

// Validate checks the settings for consistency.
func (c *Config) Validate() error {
	start, end, err := c.Run.Dates()
	if err != nil {
		return err
	}
	if !start.Before(end) {
		return fmt.Errorf("run.start %s must be before run.end %s", c.Run.Start, c.Run.End)
	}
	if c.Run.Workers < 1 {
		return errors.New("run.workers must be at least 1")
	}
	if !(c.Grid.Resolution > 0) || c.Grid.Resolution > 90 {
		return errors.New("grid.resolution must be in (0, 90]")
	}
	if c.Sampling.Samples < 1 {
		return errors.New("sampling.samples must be at least 1")
	}
	if c.Sampling.Interval <= 0 {
		return errors.New("sampling.interval must be positive")
	}
	if c.Constants.Solar <= 0 || c.Constants.Conversion <= 0 {
		return errors.New("constants must be positive")
	}
	switch c.Ephemeris.Model {
	case ephemeris.ModelVSOP87, ephemeris.ModelAnalytic:
	default:
		return fmt.Errorf("unknown ephemeris.model %q", c.Ephemeris.Model)
	}
	switch c.Resume.Source {
	case ResumeFromFiles:
	case ResumeFromManifest:
		if c.Manifest.Path == "" {
			return errors.New("resume.source is manifest but manifest.path is not set")
		}
	default:
		return fmt.Errorf("unknown resume.source %q", c.Resume.Source)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return errors.New("mqtt.enabled is true but mqtt.broker is not set")
	}
	if c.Export.Concurrency < 1 || c.Export.RecsPerInsert < 1 {
		return errors.New("export.concurrency and export.recs_per_insert must be at least 1")
	}
	return nil
}

// Dates parses the run bounds as UTC days.
func (r RunConfig) Dates() (start, end time.Time, err error) {
	start, err = time.Parse(time.DateOnly, r.Start)
	if err != nil {
		return start, end, fmt.Errorf("invalid run.start: %w", err)
	}
	end, err = time.Parse(time.DateOnly, r.End)
	if err != nil {
		return start, end, fmt.Errorf("invalid run.end: %w", err)
	}
	return start, end, nil
}
