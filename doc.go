// Package studentetl provides a batch Extract-Validate-Transform-Load pipeline
// for whole-dataset jobs, and hosts the student performance ETL built on it.
//
// The package uses an interface-based API where your job type implements only
// the interfaces it needs. The pipeline auto-detects implemented interfaces and
// configures itself accordingly. Runtime configuration overrides are also
// available via method chaining.
//
// # Quick Start
//
// Implement the required Job interface:
//
//	type MyJob struct {
//	    source, output string
//	}
//
//	func (j *MyJob) Extract(ctx context.Context) (*dataset.Dataset, error) {
//	    return extract.File(ctx, j.source)
//	}
//
//	func (j *MyJob) Transform(ctx context.Context, ds *dataset.Dataset) (*dataset.Dataset, error) {
//	    return transform.Transform(ds)
//	}
//
//	func (j *MyJob) Load(ctx context.Context, ds *dataset.Dataset) (load.Destination, error) {
//	    return load.Load(ctx, ds, load.Options{LocalPath: j.output})
//	}
//
//	// Run the pipeline
//	dest, err := studentetl.New[*dataset.Dataset, *dataset.Dataset, load.Destination](&MyJob{...}).Run(ctx)
//
// # Interface-Based Design
//
// The pipeline auto-detects optional interfaces. Just implement what you need:
//
//	// Gate the transform stage on data quality by implementing Validator[D]
//	func (j *MyJob) Validate(ctx context.Context, ds *dataset.Dataset) error {
//	    if r := validation.Validate(ds); !r.Passed {
//	        return &validation.FailedError{Report: r}
//	    }
//	    return nil
//	}
//
//	// Decide which failures are worth another attempt by implementing ErrorHandler
//	func (j *MyJob) OnError(ctx context.Context, stage studentetl.Stage, err error) studentetl.Action {
//	    if stage == studentetl.StageValidate {
//	        return studentetl.ActionFail
//	    }
//	    return studentetl.ActionRetry
//	}
//
//	// Observe progress by implementing StageReporter
//	func (j *MyJob) OnStage(ctx context.Context, stage studentetl.Stage, stats *studentetl.Stats) {
//	    slog.InfoContext(ctx, "stage complete", "stage", stage, "stats", stats)
//	}
//
// # Retries
//
// A failed attempt restarts the whole run from Extract; a single stage is
// never retried in isolation. The retry count and delay resolve in this order:
//
//  1. WithRetries / WithRetryDelay on the pipeline
//  2. The Retries / RetryDelay interfaces on the job
//  3. DefaultRetries (1) and DefaultRetryDelay (5 minutes)
//
// Context cancellation ends the run without another attempt, including while
// waiting out the retry delay.
//
// # Lifecycle Hooks
//
// Starter runs once before the first attempt and may replace the context.
// Stopper runs once after the last attempt with the final Stats and the error
// returned by Run.
//
// # Statistics
//
// Stats counts attempts and failed attempts across the run, and the extracted,
// transformed and loaded sizes of the latest attempt. A stage value that has a
// Len() int method contributes its length; any other value counts as one.
// Stats implements slog.LogValuer and json.Marshaler.
//
// # Packages
//
// The student performance job lives under internal/: dataset (CSV model),
// extract, validation, transform, load, objectstore (S3), handoff (cross-step
// payloads), students (in-process job), workflow (scheduled five-step DAG),
// config, metrics and cli. The binary is cmd/studentetl.
package studentetl
