package students_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bjaus/studentetl"
	"github.com/bjaus/studentetl/internal/dataset"
	"github.com/bjaus/studentetl/internal/load"
	"github.com/bjaus/studentetl/internal/objectstore"
	"github.com/bjaus/studentetl/internal/students"
	"github.com/bjaus/studentetl/internal/validation"
)

// flakyStore fails the first n uploads.
type flakyStore struct {
	*objectstore.Memory
	failures int
	puts     int
}

func (f *flakyStore) Put(ctx context.Context, bucket, key string, data []byte) (string, error) {
	f.puts++
	if f.puts <= f.failures {
		return "", errors.New("service unavailable")
	}
	return f.Memory.Put(ctx, bucket, key, data)
}

func TestRun_EndToEndScenario(t *testing.T) {
	ctx := context.Background()
	output := filepath.Join(t.TempDir(), "out", "processed_student_performance.csv")
	store := objectstore.NewMemory()
	target := &load.Target{Bucket: "studentperformance", Key: "data/student_performance.csv"}

	job := students.New(students.Options{
		Source: "testdata/scenario.csv",
		Output: output,
		Remote: target,
		Store:  store,
	})
	dest, err := studentetl.New[*dataset.Dataset, *dataset.Dataset, load.Destination](job).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, load.Destination{
		LocalPath: output,
		Bucket:    target.Bucket,
		Key:       target.Key,
		Location:  "s3://studentperformance/data/student_performance.csv",
	}, dest)

	report, ok := job.Report()
	require.True(t, ok)
	require.True(t, report.Passed)
	missing, _ := report.Count(validation.CheckMissingValues)
	dups, _ := report.Count(validation.CheckDuplicates)
	require.Zero(t, missing)
	require.Zero(t, dups)

	out, err := dataset.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t, []string{"75.0", "95.0", "35.0"}, out.Column("average_score"))
	require.Equal(t, []string{"Good", "Excellent", "Failing"}, out.Column("performance_category"))

	local, err := os.ReadFile(output)
	require.NoError(t, err)
	remote, err := store.Get(ctx, target.Bucket, target.Key)
	require.NoError(t, err)
	require.Equal(t, local, remote)
}

func TestRun_ValidationFailureIsFatal(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.csv")
	store := objectstore.NewMemory()

	_, err := students.Run(context.Background(), students.Options{
		Source:  "testdata/invalid.csv",
		Output:  output,
		Remote:  &load.Target{Bucket: "b", Key: "k"},
		Store:   store,
		Retries: 3,
	})

	var failed *validation.FailedError
	require.True(t, errors.As(err, &failed))
	count, ok := failed.Report.Count("invalid_math_score")
	require.True(t, ok)
	require.Equal(t, 1, count)

	var se *studentetl.StageError
	require.True(t, errors.As(err, &se))
	require.Equal(t, studentetl.StageValidate, se.Stage)

	_, statErr := os.Stat(output)
	require.True(t, errors.Is(statErr, os.ErrNotExist))
	require.Zero(t, store.Len())
}

func TestRun_BadSourceFailsWithoutRetry(t *testing.T) {
	malformed := filepath.Join(t.TempDir(), "malformed.csv")
	require.NoError(t, os.WriteFile(malformed, []byte("math score,reading score\n70,80\n95\n"), 0o600))

	tests := []struct {
		name   string
		source string
		target any
	}{
		{"missing file", filepath.Join(t.TempDir(), "missing.csv"), new(*dataset.SourceNotFoundError)},
		{"malformed file", malformed, new(*dataset.ParseError)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// A retry would block on the delay until the deadline.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metricsFile := filepath.Join(t.TempDir(), "studentetl.prom")

			_, err := students.Run(ctx, students.Options{
				Source:      tt.source,
				Output:      filepath.Join(t.TempDir(), "out.csv"),
				Retries:     1,
				RetryDelay:  time.Hour,
				MetricsFile: metricsFile,
			})
			require.ErrorAs(t, err, tt.target)
			require.NotErrorIs(t, err, context.DeadlineExceeded)

			data, readErr := os.ReadFile(metricsFile)
			require.NoError(t, readErr)
			require.Contains(t, string(data), `studentetl_last_run_success{mode="run"} 0`)
			require.Contains(t, string(data), `studentetl_last_run_attempts{mode="run"} 1`)
			require.NotContains(t, string(data), "validation_check")
		})
	}
}

func TestRun_TransientUploadFailureRetried(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Memory: objectstore.NewMemory(), failures: 1}
	metricsFile := filepath.Join(t.TempDir(), "studentetl.prom")

	dest, err := students.Run(ctx, students.Options{
		Source:      "testdata/scenario.csv",
		Output:      filepath.Join(t.TempDir(), "out.csv"),
		Remote:      &load.Target{Bucket: "b", Key: "k"},
		Store:       store,
		Retries:     1,
		MetricsFile: metricsFile,
	})
	require.NoError(t, err)
	require.Equal(t, "s3://b/k", dest.Location)
	require.Equal(t, 2, store.puts)

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	require.Contains(t, string(data), `studentetl_last_run_success{mode="run"} 1`)
	require.Contains(t, string(data), `check="missing_values"`)
}

func TestRun_UploadFailureExhaustsRetries(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.csv")
	store := &flakyStore{Memory: objectstore.NewMemory(), failures: 10}

	_, err := students.Run(context.Background(), students.Options{
		Source: "testdata/scenario.csv",
		Output: output,
		Remote: &load.Target{Bucket: "b", Key: "k"},
		Store:  store,
	})

	var swe *load.StorageWriteError
	require.True(t, errors.As(err, &swe))
	require.Equal(t, "s3://b/k", swe.Destination)
	require.Equal(t, 1, store.puts)

	// The local write is independent of the failed upload.
	_, statErr := os.Stat(output)
	require.NoError(t, statErr)
}
