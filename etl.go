package studentetl

import (
	"context"
	"fmt"
)

// Stage identifies where in the pipeline an event occurred.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageValidate  Stage = "validate"
	StageTransform Stage = "transform"
	StageLoad      Stage = "load"
)

// Action tells the pipeline what to do after a failed run.
type Action string

const (
	ActionRetry Action = "retry" // Run the whole pipeline again if attempts remain
	ActionFail  Action = "fail"  // Stop and return the error
)

// Job defines the core ETL operations. This is the only required interface to
// implement.
//
// The type parameters are:
//   - D: extracted dataset type
//   - T: transformed dataset type
//   - R: load result type (for example, where the data ended up)
//
// Each stage runs once per attempt, strictly in order, and receives the whole
// output of the previous stage.
type Job[D, T, R any] interface {
	// Extract reads the input dataset.
	Extract(ctx context.Context) (D, error)

	// Transform derives the output dataset. It must not mutate data.
	Transform(ctx context.Context, data D) (T, error)

	// Load writes the output dataset to its destinations.
	// Should be idempotent (overwrite) since a retried run loads again.
	Load(ctx context.Context, data T) (R, error)
}

// Validator checks the extracted dataset before transformation. Implement this
// interface to gate the transform stage on data quality.
//
// A non-nil error stops the attempt with a StageError for StageValidate. Since
// the same input always produces the same verdict, jobs usually pair Validator
// with an ErrorHandler that returns ActionFail for validation errors.
//
// Example:
//
//	func (j *MyJob) Validate(ctx context.Context, ds *Dataset) error {
//	    if ds.Len() == 0 {
//	        return errors.New("empty input")
//	    }
//	    return nil
//	}
type Validator[D any] interface {
	Validate(ctx context.Context, data D) error
}

// StageError records the stage in which an attempt failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
