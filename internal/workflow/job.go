package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bjaus/studentetl"
	"github.com/bjaus/studentetl/internal/dataset"
	"github.com/bjaus/studentetl/internal/load"
	"github.com/bjaus/studentetl/internal/metrics"
	"github.com/bjaus/studentetl/internal/validation"
)

// Ref points at a step payload of a run. It is what flows between the stages
// of a workflow Job in place of the dataset itself.
type Ref struct {
	RunID string
	Rows  int
}

// Len reports the number of rows behind the reference.
func (r Ref) Len() int { return r.Rows }

// RunOptions configures one scheduled run.
type RunOptions struct {
	Options

	Retries    int
	RetryDelay time.Duration

	// MetricsFile, when set, receives a Prometheus textfile after the run.
	MetricsFile string
}

// Job drives the workflow steps of one run through a studentetl.Pipeline,
// so a failed run is retried as a whole under the shared retry policy.
type Job struct {
	steps *Steps
	opts  RunOptions
	runID string

	startedAt time.Time
	now       func() time.Time
}

var (
	_ studentetl.Job[Ref, Ref, load.Destination] = (*Job)(nil)
	_ studentetl.Validator[Ref]                  = (*Job)(nil)
	_ studentetl.ErrorHandler                    = (*Job)(nil)
	_ studentetl.StageReporter                   = (*Job)(nil)
	_ studentetl.Starter                         = (*Job)(nil)
	_ studentetl.Stopper                         = (*Job)(nil)
	_ studentetl.Retries                         = (*Job)(nil)
	_ studentetl.RetryDelay                      = (*Job)(nil)
)

// NewJob creates a Job for runID.
func NewJob(runID string, opts RunOptions) *Job {
	return &Job{
		steps: NewSteps(opts.Options),
		opts:  opts,
		runID: runID,
		now:   time.Now,
	}
}

// Run executes every step of runID in DAG order.
func Run(ctx context.Context, runID string, opts RunOptions) (load.Destination, error) {
	return studentetl.New[Ref, Ref, load.Destination](NewJob(runID, opts)).Run(ctx)
}

func (j *Job) Extract(ctx context.Context) (Ref, error) {
	n, err := j.steps.Extract(ctx, j.runID)
	if err != nil {
		return Ref{}, err
	}
	return Ref{RunID: j.runID, Rows: n}, nil
}

func (j *Job) Validate(ctx context.Context, _ Ref) error {
	_, err := j.steps.Validate(ctx, j.runID)
	return err
}

func (j *Job) Transform(ctx context.Context, _ Ref) (Ref, error) {
	n, err := j.steps.Transform(ctx, j.runID)
	if err != nil {
		return Ref{}, err
	}
	return Ref{RunID: j.runID, Rows: n}, nil
}

// Load fans out load_local and load_remote. Both always run to completion and
// each failure is reported.
func (j *Job) Load(ctx context.Context, _ Ref) (load.Destination, error) {
	var (
		localPath, location string
		localErr, remoteErr error
		group               errgroup.Group
	)

	group.Go(func() error {
		localPath, localErr = j.steps.LoadLocal(ctx, j.runID)
		return localErr
	})
	group.Go(func() error {
		location, remoteErr = j.steps.LoadRemote(ctx, j.runID)
		return remoteErr
	})
	_ = group.Wait()

	dest := load.Destination{LocalPath: localPath, Location: location}
	if location != "" {
		dest.Bucket, dest.Key = j.opts.Remote.Bucket, j.opts.Remote.Key
	}
	return dest, errors.Join(localErr, remoteErr)
}

// OnError fails fast on bad input and retries everything else.
// A missing or malformed source and a failed quality gate give the same
// result on every attempt.
func (j *Job) OnError(ctx context.Context, stage studentetl.Stage, err error) studentetl.Action {
	if permanent(err) {
		return studentetl.ActionFail
	}
	slog.WarnContext(ctx, "step failed", "run_id", j.runID, "stage", stage, "err", err)
	return studentetl.ActionRetry
}

func (j *Job) OnStage(ctx context.Context, stage studentetl.Stage, stats *studentetl.Stats) {
	slog.InfoContext(ctx, "stage complete", "run_id", j.runID, "stage", stage, "stats", stats)
}

func (j *Job) Start(ctx context.Context) context.Context {
	j.startedAt = j.now()
	slog.InfoContext(ctx, "workflow run starting", "run_id", j.runID, "source", j.opts.Source)
	return ctx
}

// Stop logs the outcome, writes metrics and drops the run's payloads after a
// success. Payloads of failed runs stay for inspection.
func (j *Job) Stop(ctx context.Context, stats *studentetl.Stats, err error) {
	elapsed := j.now().Sub(j.startedAt)
	if err != nil {
		slog.ErrorContext(ctx, "workflow run failed", "run_id", j.runID, "err", err, "stats", stats, "elapsed", elapsed)
	} else {
		slog.InfoContext(ctx, "workflow run complete", "run_id", j.runID, "stats", stats, "elapsed", elapsed)
	}

	if j.opts.MetricsFile != "" {
		run := metrics.Run{
			Mode:        "scheduled",
			Success:     err == nil,
			Attempts:    stats.Attempts(),
			Errors:      stats.Errors(),
			Extracted:   stats.Extracted(),
			Transformed: stats.Transformed(),
			Duration:    elapsed,
			FinishedAt:  j.now(),
		}
		if report, rErr := j.steps.Report(ctx, j.runID); rErr == nil {
			run.Checks = report.Counts()
		}
		if mErr := metrics.WriteFile(j.opts.MetricsFile, run); mErr != nil {
			slog.ErrorContext(ctx, "write metrics failed", "path", j.opts.MetricsFile, "err", mErr)
		}
	}

	if err == nil {
		if cErr := j.opts.Handoff.Clear(ctx, j.runID); cErr != nil {
			slog.WarnContext(ctx, "clear handoff failed", "run_id", j.runID, "err", cErr)
		}
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
