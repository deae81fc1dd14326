// Package pipeline runs daily grid generation over a date range with a fixed
// pool of workers.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rtm0/solargrid/internal/observability"
	"github.com/rtm0/solargrid/internal/partition"
	"github.com/rtm0/solargrid/internal/solar"
)

// DayWriter computes and persists the grid of one day.
type DayWriter interface {
	WriteDay(ctx context.Context, day time.Time) (string, solar.Stats, error)
}

// Resumer reports the latest day already completed by a previous run.
type Resumer interface {
	LatestCompleted(ctx context.Context) (time.Time, bool, error)
}

// Observer is told about every day written successfully.
type Observer interface {
	Observe(ctx context.Context, res DayResult) error
}

// DayResult is the outcome of one day.
type DayResult struct {
	Worker   int
	Day      time.Time
	Path     string
	Stats    solar.Stats
	Elapsed  time.Duration
	Finished time.Time
	Err      error
}

// Options configure a run.
type Options struct {
	// Start is the first day to compute when nothing was completed before.
	Start time.Time
	// End is the exclusive last day.
	End     time.Time
	Workers int
	// Clock stamps results. Defaults to the real clock.
	Clock clockwork.Clock
}

// Runner drives one generation run.
type Runner struct {
	writer    DayWriter
	resumer   Resumer
	observers []Observer
	opts      Options
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu     sync.Mutex
	status Status
}

// New creates a Runner.
func New(w DayWriter, r Resumer, opts Options, logger *slog.Logger, metrics *observability.Metrics, observers ...Observer) *Runner {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Runner{
		writer:    w,
		resumer:   r,
		observers: observers,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
		status:    Status{Phase: PhaseIdle, Workers: opts.Workers},
	}
}

// Run detects the resume point, partitions the remaining days, runs one
// worker per partition and waits for all of them. A failed day stops its
// worker; the days it did not reach are reported in Summary.Unprocessed.
// The returned error is only set when the run could not start.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	r.setPhase(PhasePartitioning)
	start := r.opts.Start
	last, ok, err := r.resumer.LatestCompleted(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("detect resume point: %w", err)
	}
	if ok {
		start = last.AddDate(0, 0, 1)
		r.logger.Info("Resuming", "from", start.Format(time.DateOnly), "lastCompleted", last.Format(time.DateOnly))
	} else {
		r.logger.Info("Starting", "from", start.Format(time.DateOnly))
	}

	ranges, err := partition.Split(start, r.opts.End, r.opts.Workers)
	if err != nil {
		return Summary{}, err
	}
	total := partition.TotalDays(ranges)
	r.mu.Lock()
	r.status.Start = start
	r.status.End = r.opts.End
	r.status.Ranges = ranges
	r.status.TotalDays = total
	r.status.Phase = PhaseRunning
	r.mu.Unlock()
	r.logger.Info("Partitioned", "days", total, "workers", len(ranges), "ranges", rangeStrings(ranges))

	results := make(chan DayResult)
	var wg sync.WaitGroup
	for id, rg := range ranges {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.work(ctx, id, rg, results)
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	sum := Summary{Start: start, End: r.opts.End, Ranges: ranges}
	observeCtx := context.WithoutCancel(ctx)
	begin := time.Now()
	for res := range results {
		r.collect(observeCtx, &sum, res)
		done := len(sum.Written) + len(sum.Failed)
		percent := fmt.Sprintf("%.2f%%", 100*float64(done)/float64(total))
		r.logger.Info("progress", "done", percent, "in", time.Since(begin).Round(time.Second))
	}
	sum.finish()
	r.setPhase(PhaseDone)
	r.report(sum)
	return sum, nil
}

func (r *Runner) work(ctx context.Context, id int, rg partition.Range, results chan<- DayResult) {
	if rg.Days() == 0 {
		return
	}
	r.metrics.WorkersActive.Inc()
	defer r.metrics.WorkersActive.Dec()
	r.logger.Debug("Worker started", "worker", id, "range", rg.String())

	err := rg.Each(func(day time.Time) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		began := time.Now()
		path, stats, err := r.writer.WriteDay(ctx, day)
		results <- DayResult{
			Worker:   id,
			Day:      day,
			Path:     path,
			Stats:    stats,
			Elapsed:  time.Since(began),
			Finished: r.opts.Clock.Now(),
			Err:      err,
		}
		return err
	})
	if err != nil {
		r.logger.Warn("Worker stopped early", "worker", id, "range", rg.String(), "err", err)
	}
}

func (r *Runner) collect(ctx context.Context, sum *Summary, res DayResult) {
	if res.Err != nil {
		sum.Failed = append(sum.Failed, res)
		r.metrics.DaysFailed.Inc()
		r.logger.Error("Could not create day", "day", res.Day.Format(time.DateOnly), "worker", res.Worker, "err", res.Err)
		r.mu.Lock()
		r.status.Failed++
		r.mu.Unlock()
		return
	}
	sum.Written = append(sum.Written, res)
	r.metrics.DaysWritten.Inc()
	r.metrics.DayDuration.Observe(res.Elapsed.Seconds())
	r.logger.Info("Created", "file", res.Path, "worker", res.Worker, "in", res.Elapsed.Round(time.Millisecond))
	r.mu.Lock()
	r.status.Written++
	r.mu.Unlock()
	for _, o := range r.observers {
		if err := o.Observe(ctx, res); err != nil {
			r.logger.Warn("Observer failed", "day", res.Day.Format(time.DateOnly), "err", err)
		}
	}
}

func (r *Runner) report(sum Summary) {
	r.logger.Info("Run complete",
		"written", len(sum.Written),
		"failed", len(sum.Failed),
		"unprocessed", len(sum.Unprocessed))
	for _, f := range sum.Failed {
		r.logger.Error("Missing day", "day", f.Day.Format(time.DateOnly), "reason", f.Err)
	}
	if len(sum.Unprocessed) > 0 {
		r.logger.Warn("Days not attempted", "days", dayStrings(sum.Unprocessed))
	}
}

func (r *Runner) setPhase(p Phase) {
	r.mu.Lock()
	r.status.Phase = p
	r.mu.Unlock()
}

// Status returns a snapshot of the run's progress.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.status
	s.Ranges = append([]partition.Range(nil), r.status.Ranges...)
	return s
}

// Summary is the outcome of a run.
type Summary struct {
	Start       time.Time
	End         time.Time
	Ranges      []partition.Range
	Written     []DayResult
	Failed      []DayResult
	Unprocessed []time.Time
}

// finish sorts results by day and lists the days nobody attempted.
func (s *Summary) finish() {
	byDay := func(rs []DayResult) {
		sort.Slice(rs, func(i, j int) bool { return rs[i].Day.Before(rs[j].Day) })
	}
	byDay(s.Written)
	byDay(s.Failed)

	attempted := make(map[time.Time]bool, len(s.Written)+len(s.Failed))
	for _, res := range s.Written {
		attempted[res.Day] = true
	}
	for _, res := range s.Failed {
		attempted[res.Day] = true
	}
	s.Unprocessed = nil
	for _, rg := range s.Ranges {
		rg.Each(func(day time.Time) error {
			if !attempted[day] {
				s.Unprocessed = append(s.Unprocessed, day)
			}
			return nil
		})
	}
}

// Err returns an error when some days are missing after the run.
func (s Summary) Err() error {
	if len(s.Failed) == 0 && len(s.Unprocessed) == 0 {
		return nil
	}
	return fmt.Errorf("%d days failed and %d were not attempted", len(s.Failed), len(s.Unprocessed))
}

func rangeStrings(ranges []partition.Range) []string {
	out := make([]string, len(ranges))
	for i, r := range ranges {
		out[i] = r.String()
	}
	return out
}

func dayStrings(days []time.Time) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.Format(time.DateOnly)
	}
	return out
}
