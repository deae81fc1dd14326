package solar

import (
	"math"
	"time"

	"github.com/rtm0/solargrid/internal/ephemeris"
)

// Field holds both quantities for every grid cell at one instant, indexed
// [latitude][longitude].
type Field struct {
	Time       time.Time
	Irradiance [][]float64
	Luminance  [][]float64
}

// Computer evaluates the irradiance model over a grid. It holds no mutable
// state and may be shared by goroutines.
type Computer struct {
	grid   Grid
	consts Constants
	eph    ephemeris.Ephemeris
}

// NewComputer creates a computer for the grid.
func NewComputer(grid Grid, consts Constants, eph ephemeris.Ephemeris) *Computer {
	return &Computer{grid: grid, consts: consts, eph: eph}
}

// Grid returns the grid the computer evaluates.
func (c *Computer) Grid() Grid { return c.grid }

// Constants returns the physical constants in use.
func (c *Computer) Constants() Constants { return c.consts }

// Compute evaluates every grid cell at t.
func (c *Computer) Compute(t time.Time) Field {
	sky := c.eph.At(t)
	f := Field{
		Time:       t,
		Irradiance: make([][]float64, len(c.grid.Latitudes)),
		Luminance:  make([][]float64, len(c.grid.Latitudes)),
	}
	for i, lat := range c.grid.Latitudes {
		irr := make([]float64, len(c.grid.Longitudes))
		lum := make([]float64, len(c.grid.Longitudes))
		for j, lon := range c.grid.Longitudes {
			irr[j], lum[j] = c.consts.Evaluate(sky.Altitude(lat, lon))
		}
		f.Irradiance[i] = irr
		f.Luminance[i] = lum
	}
	return f
}

// Evaluate returns irradiance and luminance for a sun altitude in degrees.
// Both are zero when the sun is at or below the horizon.
func (c Constants) Evaluate(altitude float64) (irradiance, luminance float64) {
	if !(altitude > 0) {
		return 0, 0
	}
	irradiance = c.SolarConstant * math.Sin(altitude*math.Pi/180)
	return irradiance, irradiance * c.ConversionFactor
}
