package ephemeris

import (
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/meeus/v3/solar"
)

// Analytic computes the sun's position from the low accuracy solar theory
// (about 0.01° error). It needs no data files.
type Analytic struct{}

// At implements Ephemeris.
func (Analytic) At(t time.Time) Sky {
	jd := julian.TimeToJD(t.UTC())
	ra, dec := solar.ApparentEquatorial(jd)
	st := sidereal.Apparent(jd)
	return newEquatorial(ra, dec, st)
}
