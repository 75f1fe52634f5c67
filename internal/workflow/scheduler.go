package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RunFunc executes one scheduled run.
type RunFunc func(ctx context.Context, runID string, trigger time.Time) error

// Scheduler triggers a run every Interval, aligned to Start. Missed triggers
// are never replayed: after a long run or a restart the next trigger is the
// first one still in the future.
type Scheduler struct {
	Start    time.Time
	Interval time.Duration
	Run      RunFunc

	now   func() time.Time
	after func(d time.Duration) <-chan time.Time
}

// NewScheduler creates a Scheduler.
func NewScheduler(start time.Time, interval time.Duration, run RunFunc) *Scheduler {
	return &Scheduler{
		Start:    start,
		Interval: interval,
		Run:      run,
		now:      time.Now,
		after:    time.After,
	}
}

// RunID builds the id of a scheduled run from its trigger time.
func RunID(trigger time.Time) string {
	return "scheduled__" + trigger.UTC().Format(time.RFC3339) + "__" + uuid.NewString()
}

// Next returns the first trigger at or after t. Without a positive Interval
// Start is the only trigger, and Next returns the zero time once it has passed.
func (s *Scheduler) Next(t time.Time) time.Time {
	if !t.After(s.Start) {
		return s.Start
	}
	if s.Interval <= 0 {
		return time.Time{}
	}
	elapsed := t.Sub(s.Start)
	n := elapsed / s.Interval
	next := s.Start.Add(n * s.Interval)
	if next.Before(t) {
		next = next.Add(s.Interval)
	}
	return next
}

// Loop waits for each trigger and runs it, until ctx is cancelled. A failed
// run is logged and does not stop the loop.
func (s *Scheduler) Loop(ctx context.Context) error {
	if s.Interval <= 0 {
		return errors.New("workflow: schedule interval must be positive")
	}

	var last time.Time
	for {
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "scheduler stopped")
			return nil
		}
		next := s.Next(s.now())
		if !last.IsZero() && !next.After(last) {
			next = last.Add(s.Interval)
		}
		wait := next.Sub(s.now())
		slog.InfoContext(ctx, "next run scheduled", "at", next, "in", wait)

		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "scheduler stopped")
			return nil
		case <-s.after(wait):
		}

		last = next
		runID := RunID(next)
		if err := s.Run(ctx, runID, next); err != nil {
			slog.ErrorContext(ctx, "scheduled run failed", "run_id", runID, "trigger", next, "err", err)
			continue
		}
		slog.InfoContext(ctx, "scheduled run succeeded", "run_id", runID, "trigger", next)
	}
}
