package studentetl

import "context"

// StageReporter receives a callback after each stage completes successfully.
// Implement this interface to log per-stage progress or emit timing metrics.
//
// The Stats snapshot reflects the current attempt: after StageExtract the
// extracted count is set, after StageTransform the transformed count, and so
// on. StageValidate is reported only when the job implements Validator.
//
// Example:
//
//	func (j *MyJob) OnStage(ctx context.Context, stage studentetl.Stage, stats *studentetl.Stats) {
//	    slog.InfoContext(ctx, "stage complete", "stage", stage, "stats", stats)
//	}
type StageReporter interface {
	OnStage(ctx context.Context, stage Stage, stats *Stats)
}
