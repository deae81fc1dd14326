package dataset

import (
	"fmt"
	"os"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/rtm0/solargrid/internal/solar"
)

// Variable and dimension names.
const (
	DimTime      = "time"
	DimLatitude  = "latitude"
	DimLongitude = "longitude"

	VarIrradiance = "solar_irradiance"
	VarLuminance  = "luminance"
)

// TimeUnits is the encoding of the time coordinate.
const TimeUnits = "hours since 1950-01-01 00:00:00"

var timeEpoch = time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC)

// isoLayout labels time steps.
const isoLayout = "2006-01-02T15:04:05"

// Metadata are the descriptive global attributes of a file.
type Metadata struct {
	Title  string
	MadeBy string
	Source string
}

// DefaultMetadata returns the attributes used when none are configured.
func DefaultMetadata() Metadata {
	return Metadata{
		Title:  "Theoretical Solar Irradiance and Luminance Data",
		MadeBy: "solargrid",
		Source: "Generated from solar ephemeris calculations",
	}
}

// Dataset is a time series of irradiance and luminance grids, indexed
// [time][latitude][longitude].
type Dataset struct {
	Times      []time.Time
	Latitudes  []float64
	Longitudes []float64
	Irradiance [][][]float64
	Luminance  [][][]float64
	Constants  solar.Constants
	Metadata   Metadata
}

// Assemble stacks fields computed over grid into a dataset.
func Assemble(grid solar.Grid, consts solar.Constants, meta Metadata, fields []solar.Field) *Dataset {
	d := &Dataset{
		Times:      make([]time.Time, len(fields)),
		Latitudes:  grid.Latitudes,
		Longitudes: grid.Longitudes,
		Irradiance: make([][][]float64, len(fields)),
		Luminance:  make([][][]float64, len(fields)),
		Constants:  consts,
		Metadata:   meta,
	}
	for i, f := range fields {
		d.Times[i] = f.Time.UTC()
		d.Irradiance[i] = f.Irradiance
		d.Luminance[i] = f.Luminance
	}
	return d
}

// Hours returns the time coordinate as hours since the epoch in TimeUnits.
func (d *Dataset) Hours() []float64 {
	hours := make([]float64, len(d.Times))
	for i, t := range d.Times {
		hours[i] = t.Sub(timeEpoch).Hours()
	}
	return hours
}

// TimeLabels returns the time steps in ISO 8601 form.
func (d *Dataset) TimeLabels() []string {
	labels := make([]string, len(d.Times))
	for i, t := range d.Times {
		labels[i] = t.UTC().Format(isoLayout)
	}
	return labels
}

// Save writes the dataset to path. The file is first written under a
// temporary name next to path and renamed once complete, replacing any file
// already at path.
func (d *Dataset) Save(path string, created time.Time) (err error) {
	if len(d.Times) == 0 {
		return fmt.Errorf("dataset for %s has no time steps", path)
	}
	tmp := path + ".part"
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return err
	}
	cw, err := cdf.OpenWriter(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	vars, err := d.variables()
	if err != nil {
		cw.Close()
		return err
	}
	for _, v := range vars {
		if err := cw.AddVar(v.name, v.Variable); err != nil {
			cw.Close()
			return fmt.Errorf("add variable %s: %w", v.name, err)
		}
	}
	global, err := d.globalAttributes(created)
	if err != nil {
		cw.Close()
		return err
	}
	if err := cw.AddGlobalAttrs(global); err != nil {
		cw.Close()
		return fmt.Errorf("add global attributes: %w", err)
	}
	if err := cw.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

type namedVariable struct {
	name string
	api.Variable
}

func (d *Dataset) variables() ([]namedVariable, error) {
	timeAttrs, err := attributes("units", TimeUnits, "calendar", "gregorian", "long_name", "time")
	if err != nil {
		return nil, err
	}
	latAttrs, err := attributes("units", "degrees_north", "long_name", "latitude")
	if err != nil {
		return nil, err
	}
	lonAttrs, err := attributes("units", "degrees_east", "long_name", "longitude")
	if err != nil {
		return nil, err
	}
	irrAttrs, err := attributes("units", "W/m²", "long_name", "Solar Irradiance")
	if err != nil {
		return nil, err
	}
	lumAttrs, err := attributes("units", "lux", "long_name", "Luminance")
	if err != nil {
		return nil, err
	}
	grid := []string{DimTime, DimLatitude, DimLongitude}
	return []namedVariable{
		{DimTime, api.Variable{Values: d.Hours(), Dimensions: []string{DimTime}, Attributes: timeAttrs}},
		{DimLatitude, api.Variable{Values: d.Latitudes, Dimensions: []string{DimLatitude}, Attributes: latAttrs}},
		{DimLongitude, api.Variable{Values: d.Longitudes, Dimensions: []string{DimLongitude}, Attributes: lonAttrs}},
		{VarIrradiance, api.Variable{Values: d.Irradiance, Dimensions: grid, Attributes: irrAttrs}},
		{VarLuminance, api.Variable{Values: d.Luminance, Dimensions: grid, Attributes: lumAttrs}},
	}, nil
}

func (d *Dataset) globalAttributes(created time.Time) (api.AttributeMap, error) {
	labels := d.TimeLabels()
	return attributes(
		"Conventions", "CF-1.6",
		"title", d.Metadata.Title,
		"MadeBy", d.Metadata.MadeBy,
		"source", d.Metadata.Source,
		"constants", fmt.Sprintf("%g # lumens/m² per W/m²\n%g # W/m²",
			d.Constants.ConversionFactor, d.Constants.SolarConstant),
		"time_coverage_start", labels[0],
		"time_coverage_end", labels[len(labels)-1],
		"history", "Created on "+created.UTC().Format("2006-01-02 15:04:05 UTC"),
	)
}

// attributes builds an ordered attribute map from key/value pairs.
func attributes(kv ...string) (api.AttributeMap, error) {
	keys := make([]string, 0, len(kv)/2)
	vals := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		keys = append(keys, kv[i])
		vals[kv[i]] = kv[i+1]
	}
	m, err := util.NewOrderedMap(keys, vals)
	if err != nil {
		return nil, err
	}
	return m, nil
}
