package dataset

import (
	"fmt"
	"math"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/rtm0/solargrid/internal/solar"
)

// TZ=UTC date --date="1950-01-01 00:00:00" +%s
const unixSecs1950 = -631152000

// Scanner retrieves metric values from a file one timestamp at a time.
type Scanner struct {
	nc   api.Group
	la   []float64
	lo   []float64
	ts   []int64
	irr  api.VarGetter
	lum  api.VarGetter
	pos  int
	recs []solar.Record
	err  error
}

// NewScanner creates a new solar grid file scanner.
func NewScanner(filePath string) (*Scanner, error) {
	nc, err := netcdf.Open(filePath)
	if err != nil {
		return nil, err
	}
	s := &Scanner{nc: nc}
	if err := s.init(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return s, nil
}

func (s *Scanner) init() error {
	var err error
	s.la, err = dimValues[float64](s.nc, DimLatitude)
	if err != nil {
		return err
	}
	s.lo, err = dimValues[float64](s.nc, DimLongitude)
	if err != nil {
		return err
	}
	hours, err := dimValues[float64](s.nc, DimTime)
	if err != nil {
		return err
	}
	s.ts = make([]int64, len(hours))
	for i, h := range hours {
		s.ts[i] = (int64(math.Round(h*3600)) + unixSecs1950) * 1000
	}
	s.irr, err = s.nc.GetVarGetter(VarIrradiance)
	if err != nil {
		return err
	}
	s.lum, err = s.nc.GetVarGetter(VarLuminance)
	return err
}

func dimValues[T int32 | float32 | float64](nc api.Group, dimName string) ([]T, error) {
	dim, err := nc.GetVarGetter(dimName)
	if err != nil {
		return nil, err
	}
	v, err := dim.Values()
	if err != nil {
		return nil, err
	}
	vals, ok := v.([]T)
	if !ok {
		return nil, fmt.Errorf("%s has unexpected type %T", dimName, v)
	}
	return vals, nil
}

// Close closes the scanner.
func (s *Scanner) Close() {
	s.nc.Close()
}

// Latitudes returns the latitude coordinate.
func (s *Scanner) Latitudes() []float64 { return s.la }

// Longitudes returns the longitude coordinate.
func (s *Scanner) Longitudes() []float64 { return s.lo }

// Times returns the time coordinate.
func (s *Scanner) Times() []time.Time {
	times := make([]time.Time, len(s.ts))
	for i, ms := range s.ts {
		times[i] = time.UnixMilli(ms).UTC()
	}
	return times
}

// Attribute returns a global string attribute.
func (s *Scanner) Attribute(name string) (string, bool) {
	v, ok := s.nc.Attributes().Get(name)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// Summary returns the summary information about the dataset suitable for
// logging.
func (s *Scanner) Summary() []any {
	return []any{
		"dims", []string{"ts", "la", "lo"},
		"metrics", []string{VarIrradiance, VarLuminance},
		"tsCnt", len(s.ts),
		"laCnt", len(s.la),
		"loCnt", len(s.lo),
		"totalRecCnt", s.TotalRecCount(),
	}
}

// TotalRecCount returns the total number of records within the dataset.
func (s *Scanner) TotalRecCount() int {
	return len(s.ts) * len(s.la) * len(s.lo)
}

// Scan reads all records for the next timestamp.
func (s *Scanner) Scan() bool {
	if s.err != nil || s.pos >= len(s.ts) {
		return false
	}

	irr, ok := s.scan(s.irr)
	if !ok {
		return false
	}
	lum, ok := s.scan(s.lum)
	if !ok {
		return false
	}

	s.recs = make([]solar.Record, len(s.la)*len(s.lo))
	k := 0
	for i, la := range s.la {
		for j, lo := range s.lo {
			s.recs[k].Timestamp = s.ts[s.pos]
			s.recs[k].Latitude = la
			s.recs[k].Longitude = lo
			s.recs[k].Irradiance = irr[i][j]
			s.recs[k].Luminance = lum[i][j]
			k++
		}
	}
	s.pos++
	return true
}

func (s *Scanner) scan(vg api.VarGetter) ([][]float64, bool) {
	begin := int64(s.pos)
	limit := begin + 1
	v, err := vg.GetSlice(begin, limit)
	if err != nil {
		s.err = err
		return nil, false
	}
	grid, ok := v.([][][]float64)
	if !ok || len(grid) != 1 {
		s.err = fmt.Errorf("unexpected slice %T", v)
		return nil, false
	}
	return grid[0], true
}

// Records returns the records that have been read by the last Scan() operation.
// The function transfers ownership of records to the caller and the subsequent
// calls to this function without prior invocation of Scan() will return nil.
func (s *Scanner) Records() []solar.Record {
	recs := s.recs
	s.recs = nil
	return recs
}

// Err returns the first error hit by Scan.
func (s *Scanner) Err() error {
	return s.err
}
