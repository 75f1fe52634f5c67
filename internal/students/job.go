// Package students runs the student performance ETL in a single process:
// extract, validate, transform and load composed as typed stages of a
// studentetl.Pipeline, with the dataset passed directly between them.
package students

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bjaus/studentetl"
	"github.com/bjaus/studentetl/internal/dataset"
	"github.com/bjaus/studentetl/internal/extract"
	"github.com/bjaus/studentetl/internal/load"
	"github.com/bjaus/studentetl/internal/metrics"
	"github.com/bjaus/studentetl/internal/objectstore"
	"github.com/bjaus/studentetl/internal/transform"
	"github.com/bjaus/studentetl/internal/validation"
)

// Options configures one run.
type Options struct {
	// Source is the input CSV file.
	Source string

	// Output is the local output CSV file.
	Output string

	// Remote, when non-nil, is uploaded through Store as well.
	Remote *load.Target
	Store  objectstore.Store

	Retries    int
	RetryDelay time.Duration

	// MetricsFile, when set, receives a Prometheus textfile after the run.
	MetricsFile string
}

// Job implements studentetl.Job for the student performance dataset.
type Job struct {
	opts Options

	runID     string
	startedAt time.Time
	report    *validation.Report
	now       func() time.Time
}

var (
	_ studentetl.Job[*dataset.Dataset, *dataset.Dataset, load.Destination] = (*Job)(nil)
	_ studentetl.Validator[*dataset.Dataset]                               = (*Job)(nil)
	_ studentetl.ErrorHandler                                              = (*Job)(nil)
	_ studentetl.StageReporter                                             = (*Job)(nil)
	_ studentetl.Starter                                                   = (*Job)(nil)
	_ studentetl.Stopper                                                   = (*Job)(nil)
	_ studentetl.Retries                                                   = (*Job)(nil)
	_ studentetl.RetryDelay                                                = (*Job)(nil)
)

// New creates a Job.
func New(opts Options) *Job {
	return &Job{opts: opts, now: time.Now}
}

// Run executes a Job for opts and returns where the output was written.
func Run(ctx context.Context, opts Options) (load.Destination, error) {
	return studentetl.New[*dataset.Dataset, *dataset.Dataset, load.Destination](New(opts)).Run(ctx)
}

// Report returns the validation report of the latest attempt, if validation ran.
func (j *Job) Report() (validation.Report, bool) {
	if j.report == nil {
		return validation.Report{}, false
	}
	return *j.report, true
}

func (j *Job) Extract(ctx context.Context) (*dataset.Dataset, error) {
	return extract.File(ctx, j.opts.Source)
}

// Validate runs the quality gate. A failed report is returned as
// *validation.FailedError.
func (j *Job) Validate(ctx context.Context, ds *dataset.Dataset) error {
	slog.InfoContext(ctx, "validating data", "records", ds.Len())

	report := validation.Validate(ds)
	j.report = &report

	if !report.Passed {
		slog.ErrorContext(ctx, "validation failed", "report", report)
		return &validation.FailedError{Report: report}
	}
	slog.InfoContext(ctx, "validation passed", "report", report)
	return nil
}

func (j *Job) Transform(ctx context.Context, ds *dataset.Dataset) (*dataset.Dataset, error) {
	slog.InfoContext(ctx, "transforming data", "records", ds.Len())

	out, err := transform.Transform(ds)
	if err != nil {
		slog.ErrorContext(ctx, "transform failed", "err", err)
		return nil, err
	}

	slog.InfoContext(ctx, "transform completed", "records", out.Len(), "columns", len(out.Columns))
	return out, nil
}

func (j *Job) Load(ctx context.Context, ds *dataset.Dataset) (load.Destination, error) {
	return load.Load(ctx, ds, load.Options{
		LocalPath: j.opts.Output,
		Remote:    j.opts.Remote,
		Store:     j.opts.Store,
	})
}

// OnError fails fast on bad input and retries everything else.
// A missing or malformed source and a failed quality gate give the same
// result on every attempt.
func (j *Job) OnError(ctx context.Context, stage studentetl.Stage, err error) studentetl.Action {
	if permanent(err) {
		return studentetl.ActionFail
	}
	slog.WarnContext(ctx, "stage failed", "run_id", j.runID, "stage", stage, "err", err)
	return studentetl.ActionRetry
}

func (j *Job) OnStage(ctx context.Context, stage studentetl.Stage, stats *studentetl.Stats) {
	slog.DebugContext(ctx, "stage complete", "run_id", j.runID, "stage", stage, "stats", stats)
}

func (j *Job) Start(ctx context.Context) context.Context {
	j.runID = "manual__" + uuid.NewString()
	j.startedAt = j.now()
	j.report = nil
	slog.InfoContext(ctx, "pipeline starting",
		"run_id", j.runID,
		"source", j.opts.Source,
		"output", j.opts.Output,
	)
	return ctx
}

func (j *Job) Stop(ctx context.Context, stats *studentetl.Stats, err error) {
	elapsed := j.now().Sub(j.startedAt)
	if err != nil {
		slog.ErrorContext(ctx, "pipeline failed", "run_id", j.runID, "err", err, "stats", stats, "elapsed", elapsed)
	} else {
		slog.InfoContext(ctx, "pipeline complete", "run_id", j.runID, "stats", stats, "elapsed", elapsed)
	}

	if j.opts.MetricsFile == "" {
		return
	}
	run := metrics.Run{
		Mode:        "run",
		Success:     err == nil,
		Attempts:    stats.Attempts(),
		Errors:      stats.Errors(),
		Extracted:   stats.Extracted(),
		Transformed: stats.Transformed(),
		Duration:    elapsed,
		FinishedAt:  j.now(),
	}
	if report, ok := j.Report(); ok {
		run.Checks = report.Counts()
	}
	if mErr := metrics.WriteFile(j.opts.MetricsFile, run); mErr != nil {
		slog.ErrorContext(ctx, "write metrics failed", "path", j.opts.MetricsFile, "err", mErr)
	}
}

func (j *Job) Retries() int { return j.opts.Retries }

func (j *Job) RetryDelay() time.Duration { return j.opts.RetryDelay }

// permanent reports whether err comes from the input itself.
func permanent(err error) bool {
	var (
		notFound *dataset.SourceNotFoundError
		parse    *dataset.ParseError
		failed   *validation.FailedError
	)
	return errors.As(err, &notFound) || errors.As(err, &parse) || errors.As(err, &failed)
}
