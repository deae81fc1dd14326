package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rtm0/solargrid/internal/solar"
)

// Writer computes grids and persists them, one file per call.
type Writer struct {
	dir      string
	computer *solar.Computer
	sampling solar.Sampling
	meta     Metadata
	clock    clockwork.Clock
}

// Option configures a Writer.
type Option func(*Writer)

// WithClock sets the clock used for the creation timestamp.
func WithClock(c clockwork.Clock) Option {
	return func(w *Writer) { w.clock = c }
}

// WithMetadata sets the descriptive global attributes.
func WithMetadata(m Metadata) Option {
	return func(w *Writer) { w.meta = m }
}

// NewWriter creates a writer storing files in dir.
func NewWriter(dir string, computer *solar.Computer, sampling solar.Sampling, opts ...Option) *Writer {
	w := &Writer{
		dir:      dir,
		computer: computer,
		sampling: sampling,
		meta:     DefaultMetadata(),
		clock:    clockwork.NewRealClock(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// WriteDay computes the samples of day and writes them to the day's file,
// replacing an existing one. It returns the file path and the day's stats.
func (w *Writer) WriteDay(ctx context.Context, day time.Time) (string, solar.Stats, error) {
	day = Day(day)
	fields, err := w.compute(ctx, w.sampling.Times(day))
	if err != nil {
		return "", solar.Stats{}, err
	}
	path := filepath.Join(w.dir, FileName(day))
	if err := w.save(path, fields); err != nil {
		return "", solar.Stats{}, err
	}
	return path, solar.Summarize(day, fields), nil
}

// WriteSnapshot computes count samples interval apart from start and writes
// them into a single file named after start and resolution.
func (w *Writer) WriteSnapshot(ctx context.Context, start time.Time, interval time.Duration, count int, resolution float64) (string, error) {
	if count < 1 {
		return "", fmt.Errorf("snapshot needs at least one sample, got %d", count)
	}
	times := solar.Sampling{Samples: count, Interval: interval}.Times(start.UTC())
	fields, err := w.compute(ctx, times)
	if err != nil {
		return "", err
	}
	path := filepath.Join(w.dir, SnapshotFileName(start, resolution))
	if err := w.save(path, fields); err != nil {
		return "", err
	}
	return path, nil
}

func (w *Writer) compute(ctx context.Context, times []time.Time) ([]solar.Field, error) {
	fields := make([]solar.Field, 0, len(times))
	for _, t := range times {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields = append(fields, w.computer.Compute(t))
	}
	return fields, nil
}

func (w *Writer) save(path string, fields []solar.Field) error {
	ds := Assemble(w.computer.Grid(), w.computer.Constants(), w.meta, fields)
	if err := ds.Save(path, w.clock.Now()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
