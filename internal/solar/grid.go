// Package solar computes theoretical clear-sky solar irradiance and
// luminance over a latitude/longitude grid.
package solar

import (
	"fmt"
	"math"
	"time"
)

// Grid is the latitude/longitude sampling mesh. It is built once and only
// read afterwards.
type Grid struct {
	Latitudes  []float64
	Longitudes []float64
}

// NewGrid builds a grid over [-90, 90) × [-180, 180) with the given step in
// degrees.
func NewGrid(step float64) (Grid, error) {
	if !(step > 0) || step > 90 {
		return Grid{}, fmt.Errorf("grid step %v must be in (0, 90]", step)
	}
	return Grid{
		Latitudes:  axis(-90, 90, step, false),
		Longitudes: axis(-180, 180, step, false),
	}, nil
}

// NewInclusiveGrid is like NewGrid but also keeps the upper bounds +90 and
// +180 when the step lands on them.
func NewInclusiveGrid(step float64) (Grid, error) {
	if !(step > 0) || step > 90 {
		return Grid{}, fmt.Errorf("grid step %v must be in (0, 90]", step)
	}
	return Grid{
		Latitudes:  axis(-90, 90, step, true),
		Longitudes: axis(-180, 180, step, true),
	}, nil
}

// axis returns from, from+step, ... up to to. Values are computed from the
// index rather than accumulated so long axes do not drift.
func axis(from, to, step float64, inclusive bool) []float64 {
	const eps = 1e-9
	n := int(math.Ceil((to-from)/step - eps))
	if inclusive && math.Abs(from+float64(n)*step-to) < eps*step {
		n++
	}
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = from + float64(i)*step
	}
	return vals
}

// Cells returns the number of grid cells.
func (g Grid) Cells() int {
	return len(g.Latitudes) * len(g.Longitudes)
}

// Constants are the physical constants of the irradiance model.
type Constants struct {
	// SolarConstant is the irradiance at normal incidence in W/m².
	SolarConstant float64
	// ConversionFactor converts W/m² into lux (lm/W).
	ConversionFactor float64
}

// DefaultConstants returns 1361 W/m² and 93 lm/W.
func DefaultConstants() Constants {
	return Constants{SolarConstant: 1361, ConversionFactor: 93}
}

// Sampling is the set of instants evaluated for a day.
type Sampling struct {
	Samples  int
	Interval time.Duration
}

// DefaultSampling returns 8 samples 3 hours apart, covering one day.
func DefaultSampling() Sampling {
	return Sampling{Samples: 8, Interval: 3 * time.Hour}
}

// Times returns the sample instants starting at from.
func (s Sampling) Times(from time.Time) []time.Time {
	ts := make([]time.Time, s.Samples)
	for i := range ts {
		ts[i] = from.Add(time.Duration(i) * s.Interval)
	}
	return ts
}
