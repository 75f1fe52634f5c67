package studentetl

import "context"

// ErrorHandler decides whether a failed run is retried. Without an
// ErrorHandler, every failure is retried while attempts remain.
//
// OnError receives the stage that failed and the unwrapped stage error.
// Context cancellation is never retried, whatever OnError returns.
//
// Common pattern:
//
//	// Bad input fails fast, everything else gets another attempt
//	func (j *MyJob) OnError(ctx context.Context, stage studentetl.Stage, err error) studentetl.Action {
//	    if stage == studentetl.StageValidate {
//	        return studentetl.ActionFail
//	    }
//	    return studentetl.ActionRetry
//	}
//
// Every failed attempt increments Stats.Errors, whether or not it is retried.
type ErrorHandler interface {
	// OnError is called once per failed attempt.
	OnError(ctx context.Context, stage Stage, err error) Action
}

// Starter is called before the first attempt. Implement this interface to
// enrich the context (run ids, logger fields) or record a start time.
//
// The context returned by Start is used for every attempt and passed to
// Stopper.Stop.
//
// Example:
//
//	func (j *MyJob) Start(ctx context.Context) context.Context {
//	    j.startedAt = time.Now()
//	    slog.InfoContext(ctx, "pipeline starting")
//	    return ctx
//	}
type Starter interface {
	Start(ctx context.Context) context.Context
}

// Stopper is called once after the last attempt, whether the run succeeded or
// not. Implement this interface for final logging or metrics reporting.
//
// The ctx passed to Stop is detached from cancellation of the run context, so
// Stop can still write files or call out after a shutdown signal.
//
// The err parameter is the same error value returned by Run.
//
// Example:
//
//	func (j *MyJob) Stop(ctx context.Context, stats *studentetl.Stats, err error) {
//	    if err != nil {
//	        slog.ErrorContext(ctx, "pipeline failed", "err", err, "stats", stats)
//	        return
//	    }
//	    slog.InfoContext(ctx, "pipeline complete", "stats", stats)
//	}
type Stopper interface {
	Stop(ctx context.Context, stats *Stats, err error)
}
