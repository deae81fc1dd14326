// Package partition splits a range of days into contiguous per-worker chunks.
package partition

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoWorkers is returned when fewer than one worker is requested.
var ErrNoWorkers = errors.New("worker count must be at least 1")

const day = 24 * time.Hour

// Range is the half-open day range [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of days in the range, zero when Start >= End.
func (r Range) Days() int {
	if !r.Start.Before(r.End) {
		return 0
	}
	return int(r.End.Sub(r.Start) / day)
}

// Each calls fn for every day of the range in ascending order and stops at
// the first error.
func (r Range) Each(fn func(day time.Time) error) error {
	for d := r.Start; d.Before(r.End); d = d.AddDate(0, 0, 1) {
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
}

// Split divides [start, end) among workers. Each worker gets the same number
// of days in ascending order and the last one also takes the remainder. When
// there are fewer days than workers the leading ranges are empty.
func Split(start, end time.Time, workers int) ([]Range, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrNoWorkers, workers)
	}
	total := int(end.Sub(start) / day)
	per := total / workers
	ranges := make([]Range, workers)
	for k := range ranges {
		ranges[k] = Range{
			Start: start.AddDate(0, 0, k*per),
			End:   start.AddDate(0, 0, (k+1)*per),
		}
	}
	ranges[workers-1].End = end
	return ranges, nil
}

// TotalDays sums the days of all ranges.
func TotalDays(ranges []Range) int {
	n := 0
	for _, r := range ranges {
		n += r.Days()
	}
	return n
}
