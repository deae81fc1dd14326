package ephemeris

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	pp "github.com/soniakeys/meeus/v3/planetposition"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/meeus/v3/solar"
)

// EarthFile is the name of the VSOP87 series for the Earth.
const EarthFile = "VSOP87B.ear"

// VSOP87 computes the sun's position from the VSOP87 planetary theory. The
// series are loaded once and only read afterwards, so one value can serve any
// number of goroutines.
type VSOP87 struct {
	earth *pp.V87Planet
}

// LoadVSOP87 loads the Earth series from dir.
func LoadVSOP87(dir string) (*VSOP87, error) {
	path := filepath.Join(dir, EarthFile)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoData, err)
	}
	earth, err := pp.LoadPlanetPath(pp.Earth, dir)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return &VSOP87{earth: earth}, nil
}

// At implements Ephemeris. ΔT is ignored, the instant is used as dynamical
// time directly.
func (v *VSOP87) At(t time.Time) Sky {
	jd := julian.TimeToJD(t.UTC())
	ra, dec, _ := solar.ApparentEquatorialVSOP87(v.earth, jd)
	st := sidereal.Apparent(jd)
	return newEquatorial(ra, dec, st)
}
