// Package workflow runs the student performance ETL as a scheduled five-step
// workflow: extract, validate, transform, then load_local and load_remote in
// parallel. Steps never share memory. Each one pulls its inputs from a
// handoff.Store and pushes its outputs back, keyed by run id, so any step can
// run in a separate invocation.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bjaus/studentetl/internal/dataset"
	"github.com/bjaus/studentetl/internal/extract"
	"github.com/bjaus/studentetl/internal/handoff"
	"github.com/bjaus/studentetl/internal/load"
	"github.com/bjaus/studentetl/internal/objectstore"
	"github.com/bjaus/studentetl/internal/transform"
	"github.com/bjaus/studentetl/internal/validation"
)

// Step names.
const (
	StepExtract    = "extract"
	StepValidate   = "validate"
	StepTransform  = "transform"
	StepLoadLocal  = "load_local"
	StepLoadRemote = "load_remote"
)

// Data keys of the payloads exchanged between steps.
const (
	KeyRawData     = "raw_data"
	KeyReport      = "report"
	KeyTransformed = "transformed_data"
)

// DAG lists each step with the steps it depends on, in execution order.
var DAG = []struct {
	Step      string
	DependsOn []string
}{
	{StepExtract, nil},
	{StepValidate, []string{StepExtract}},
	{StepTransform, []string{StepValidate}},
	{StepLoadLocal, []string{StepTransform}},
	{StepLoadRemote, []string{StepTransform}},
}

// Options configures the steps of a run.
type Options struct {
	// Source is the input CSV file.
	Source string

	// Output is the local output CSV file. load_remote re-reads it when the
	// transformed payload is missing from the handoff.
	Output string

	// Remote, when non-nil, is uploaded through Store by load_remote.
	Remote *load.Target
	Store  objectstore.Store

	// Handoff carries payloads between steps.
	Handoff handoff.Store
}

// Steps executes individual workflow steps for a run.
type Steps struct {
	opts Options
}

// NewSteps creates Steps for opts.
func NewSteps(opts Options) *Steps {
	return &Steps{opts: opts}
}

// Extract reads the source file and pushes it as raw_data. It returns the
// number of rows read.
func (s *Steps) Extract(ctx context.Context, runID string) (int, error) {
	ds, err := extract.File(ctx, s.opts.Source)
	if err != nil {
		return 0, err
	}
	if err := s.pushDataset(ctx, runID, StepExtract, KeyRawData, ds); err != nil {
		return 0, err
	}
	return ds.Len(), nil
}

// Validate checks raw_data and pushes the report. A failed report is pushed
// too, then returned as *validation.FailedError.
func (s *Steps) Validate(ctx context.Context, runID string) (validation.Report, error) {
	ds, err := s.pullDataset(ctx, runID, StepExtract, KeyRawData)
	if err != nil {
		return validation.Report{}, err
	}

	report := validation.Validate(ds)
	data, err := json.Marshal(report)
	if err != nil {
		return report, fmt.Errorf("encode report: %w", err)
	}
	if err := s.push(ctx, handoff.Key{RunID: runID, Step: StepValidate, DataKey: KeyReport}, data); err != nil {
		return report, err
	}

	if !report.Passed {
		slog.ErrorContext(ctx, "validation failed", "run_id", runID, "report", report)
		return report, &validation.FailedError{Report: report}
	}
	slog.InfoContext(ctx, "validation passed", "run_id", runID, "report", report)
	return report, nil
}

// Transform derives the summary columns from raw_data and pushes the result
// as transformed_data. It returns the number of rows transformed.
func (s *Steps) Transform(ctx context.Context, runID string) (int, error) {
	ds, err := s.pullDataset(ctx, runID, StepExtract, KeyRawData)
	if err != nil {
		return 0, err
	}

	out, err := transform.Transform(ds)
	if err != nil {
		slog.ErrorContext(ctx, "transform failed", "run_id", runID, "err", err)
		return 0, err
	}
	slog.InfoContext(ctx, "transform completed", "run_id", runID, "records", out.Len(), "columns", len(out.Columns))

	if err := s.pushDataset(ctx, runID, StepTransform, KeyTransformed, out); err != nil {
		return 0, err
	}
	return out.Len(), nil
}

// LoadLocal writes transformed_data to the output file.
func (s *Steps) LoadLocal(ctx context.Context, runID string) (string, error) {
	ds, err := s.pullDataset(ctx, runID, StepTransform, KeyTransformed)
	if err != nil {
		return "", err
	}
	if err := load.Local(ctx, ds, s.opts.Output); err != nil {
		return "", err
	}
	return s.opts.Output, nil
}

// LoadRemote uploads transformed_data to object storage. When the payload is
// missing it falls back to the local output file, which may still hold the
// result of an earlier run.
func (s *Steps) LoadRemote(ctx context.Context, runID string) (string, error) {
	if s.opts.Remote == nil {
		slog.InfoContext(ctx, "no remote target configured, skipping upload", "run_id", runID)
		return "", nil
	}
	if s.opts.Store == nil {
		return "", errors.New("remote target given without an object store")
	}

	data, err := s.pull(ctx, handoff.Key{RunID: runID, Step: StepTransform, DataKey: KeyTransformed})
	if err != nil && !errors.Is(err, handoff.ErrNotFound) {
		return "", err
	}

	ds, err := load.Source(ctx, data, s.opts.Output)
	if err != nil {
		return "", err
	}
	return load.Remote(ctx, ds, s.opts.Store, *s.opts.Remote)
}

// Report returns the validation report pushed for runID.
func (s *Steps) Report(ctx context.Context, runID string) (validation.Report, error) {
	var report validation.Report
	data, err := s.pull(ctx, handoff.Key{RunID: runID, Step: StepValidate, DataKey: KeyReport})
	if err != nil {
		return report, err
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return report, fmt.Errorf("decode report: %w", err)
	}
	return report, nil
}

func (s *Steps) pushDataset(ctx context.Context, runID, step, key string, ds *dataset.Dataset) error {
	data, err := ds.Bytes()
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.push(ctx, handoff.Key{RunID: runID, Step: step, DataKey: key}, data)
}

func (s *Steps) pullDataset(ctx context.Context, runID, step, key string) (*dataset.Dataset, error) {
	k := handoff.Key{RunID: runID, Step: step, DataKey: key}
	data, err := s.pull(ctx, k)
	if err != nil {
		return nil, err
	}
	return dataset.Read(bytes.NewReader(data), k.String())
}

func (s *Steps) push(ctx context.Context, key handoff.Key, data []byte) error {
	if err := s.opts.Handoff.Push(ctx, key, data); err != nil {
		slog.ErrorContext(ctx, "handoff push failed", "key", key.String(), "err", err)
		return fmt.Errorf("push %s: %w", key, err)
	}
	slog.DebugContext(ctx, "handoff pushed", "key", key.String(), "bytes", len(data))
	return nil
}

func (s *Steps) pull(ctx context.Context, key handoff.Key) ([]byte, error) {
	data, err := s.opts.Handoff.Pull(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("pull %s: %w", key, err)
	}
	return data, nil
}
