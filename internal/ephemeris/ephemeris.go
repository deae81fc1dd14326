// Package ephemeris locates the sun in the sky of an observer on the Earth.
package ephemeris

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/unit"
)

// ErrNoData is returned when the planetary series file cannot be found.
var ErrNoData = errors.New("ephemeris data not found")

// Supported models.
const (
	ModelVSOP87   = "vsop87"
	ModelAnalytic = "analytic"
)

// Sky is the position of the sun at one instant, ready to be observed from
// any point on the Earth.
type Sky interface {
	// Altitude returns the apparent altitude of the sun above the horizon in
	// degrees as seen from the given geodetic latitude and longitude
	// (degrees, east positive). Negative values are below the horizon.
	Altitude(lat, lon float64) float64
}

// Ephemeris resolves the sun's position for an instant.
type Ephemeris interface {
	At(t time.Time) Sky
}

// Load returns the ephemeris for the named model. The VSOP87 model reads the
// Earth series from dir and fails with ErrNoData when it is missing.
func Load(model, dir string) (Ephemeris, error) {
	switch model {
	case ModelVSOP87, "":
		return LoadVSOP87(dir)
	case ModelAnalytic:
		return Analytic{}, nil
	default:
		return nil, fmt.Errorf("unknown ephemeris model %q", model)
	}
}

// Func adapts an ordinary function to the Ephemeris interface.
type Func func(lat, lon float64, t time.Time) float64

// At implements Ephemeris.
func (f Func) At(t time.Time) Sky {
	return funcSky{f: f, t: t}
}

type funcSky struct {
	f Func
	t time.Time
}

func (s funcSky) Altitude(lat, lon float64) float64 {
	return s.f(lat, lon, s.t)
}

// equatorial is the sun's apparent geocentric right ascension and declination
// together with the apparent sidereal time at Greenwich.
type equatorial struct {
	ra     unit.RA
	sinDec float64
	cosDec float64
	gast   unit.Time
}

func newEquatorial(ra unit.RA, dec unit.Angle, gast unit.Time) equatorial {
	sinDec, cosDec := dec.Sincos()
	return equatorial{
		ra:     ra,
		sinDec: sinDec,
		cosDec: cosDec,
		gast:   gast,
	}
}

// Altitude implements Sky. Refraction and topocentric parallax are ignored.
func (e equatorial) Altitude(lat, lon float64) float64 {
	phi := unit.AngleFromDeg(lat)
	hourAngle := e.gast.Rad() + unit.AngleFromDeg(lon).Rad() - e.ra.Rad()
	sinAlt := phi.Sin()*e.sinDec + phi.Cos()*e.cosDec*math.Cos(hourAngle)
	// Rounding can push the product just outside [-1, 1].
	sinAlt = math.Max(-1, math.Min(1, sinAlt))
	return unit.Angle(math.Asin(sinAlt)).Deg()
}
