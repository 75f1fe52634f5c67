package studentetl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Pipeline orchestrates the ETL process.
type Pipeline[D, T, R any] struct {
	job Job[D, T, R]

	// Configuration overrides (nil means use interface value or default)
	retryCount *int
	retryDelay *time.Duration

	// Optional capabilities (detected from job interfaces)
	validator       Validator[D]
	errHandler      ErrorHandler
	reporter        StageReporter
	starter         Starter
	stopper         Stopper
	retriesIface    Retries
	retryDelayIface RetryDelay

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a new Pipeline for the given job.
// The job must implement Job[D, T, R]. Optional interfaces are auto-detected.
func New[D, T, R any](job Job[D, T, R]) *Pipeline[D, T, R] {
	p := &Pipeline[D, T, R]{
		job:   job,
		sleep: sleepContext,
	}

	if v, ok := any(job).(Validator[D]); ok {
		p.validator = v
	}
	if h, ok := any(job).(ErrorHandler); ok {
		p.errHandler = h
	}
	if r, ok := any(job).(StageReporter); ok {
		p.reporter = r
	}
	if s, ok := any(job).(Starter); ok {
		p.starter = s
	}
	if s, ok := any(job).(Stopper); ok {
		p.stopper = s
	}
	if r, ok := any(job).(Retries); ok {
		p.retriesIface = r
	}
	if r, ok := any(job).(RetryDelay); ok {
		p.retryDelayIface = r
	}

	return p
}

// WithRetries overrides how many times a failed run is started again.
// Priority: this method > Retries interface > DefaultRetries.
// Negative values are ignored.
func (p *Pipeline[D, T, R]) WithRetries(n int) *Pipeline[D, T, R] {
	if n >= 0 {
		p.retryCount = &n
	}
	return p
}

// WithRetryDelay overrides the wait between attempts.
// Priority: this method > RetryDelay interface > DefaultRetryDelay.
// Negative values are ignored.
func (p *Pipeline[D, T, R]) WithRetryDelay(d time.Duration) *Pipeline[D, T, R] {
	if d >= 0 {
		p.retryDelay = &d
	}
	return p
}

// Run executes the pipeline, retrying the whole run on failure. It returns the
// result of the first successful attempt, or the error of the last one.
func (p *Pipeline[D, T, R]) Run(ctx context.Context) (R, error) {
	stats := &Stats{}

	if p.starter != nil {
		ctx = p.starter.Start(ctx)
	}

	result, err := p.execute(ctx, stats)

	if p.stopper != nil {
		p.stopper.Stop(context.WithoutCancel(ctx), stats, err)
	}

	return result, err
}

// execute runs attempts until one succeeds, the error handler gives up, or
// the retry budget is spent.
func (p *Pipeline[D, T, R]) execute(ctx context.Context, stats *Stats) (R, error) {
	var zero R
	retries := p.resolveRetries()
	delay := p.resolveRetryDelay()

	for attempt := 1; ; attempt++ {
		stats.incAttempts()
		stats.resetAttempt()

		result, err := p.attempt(ctx, stats)
		if err == nil {
			return result, nil
		}
		stats.incErrors()

		if ctx.Err() != nil {
			return zero, err
		}
		if p.onError(ctx, err) == ActionFail {
			return zero, err
		}
		if attempt > retries {
			slog.ErrorContext(ctx, "etl: retries exhausted", "attempts", attempt, "err", err)
			return zero, err
		}

		slog.WarnContext(ctx, "etl: attempt failed, retrying",
			"attempt", attempt,
			"delay", delay,
			"err", err,
		)
		if waitErr := p.sleep(ctx, delay); waitErr != nil {
			return zero, errors.Join(err, waitErr)
		}
	}
}

// attempt runs each stage once, in order.
func (p *Pipeline[D, T, R]) attempt(ctx context.Context, stats *Stats) (R, error) {
	var zero R

	data, err := p.job.Extract(ctx)
	if err != nil {
		return zero, &StageError{Stage: StageExtract, Err: err}
	}
	stats.extracted.Store(size(data))
	p.report(ctx, StageExtract, stats)

	if p.validator != nil {
		if err := p.validator.Validate(ctx, data); err != nil {
			return zero, &StageError{Stage: StageValidate, Err: err}
		}
		p.report(ctx, StageValidate, stats)
	}

	out, err := p.job.Transform(ctx, data)
	if err != nil {
		return zero, &StageError{Stage: StageTransform, Err: err}
	}
	stats.transformed.Store(size(out))
	p.report(ctx, StageTransform, stats)

	result, err := p.job.Load(ctx, out)
	if err != nil {
		return zero, &StageError{Stage: StageLoad, Err: err}
	}
	stats.loaded.Store(size(result))
	p.report(ctx, StageLoad, stats)

	return result, nil
}

func (p *Pipeline[D, T, R]) onError(ctx context.Context, err error) Action {
	if p.errHandler == nil {
		return ActionRetry
	}
	var se *StageError
	if errors.As(err, &se) {
		return p.errHandler.OnError(ctx, se.Stage, se.Err)
	}
	return p.errHandler.OnError(ctx, "", err)
}

func (p *Pipeline[D, T, R]) report(ctx context.Context, stage Stage, stats *Stats) {
	if p.reporter != nil {
		p.reporter.OnStage(ctx, stage, stats)
	}
}

// size counts values that expose Len (datasets, slices wrapped in a type);
// anything else counts as one.
func size(v any) int64 {
	if l, ok := v.(interface{ Len() int }); ok {
		return int64(l.Len())
	}
	return 1
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("retry wait aborted: %w", context.Cause(ctx))
	}
}
