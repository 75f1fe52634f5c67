// Package load persists a transformed dataset to its destinations: a local
// CSV file and, optionally, one object in object storage.
//
// The two destinations are independent. Load writes them concurrently and
// reports each failure separately as a *StorageWriteError, so a failed
// upload never hides a failed local write or the other way round.
package load

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/bjaus/studentetl/internal/dataset"
	"github.com/bjaus/studentetl/internal/objectstore"
)

// LocalDestination names the local file destination in errors.
const LocalDestination = "local"

// Target identifies one object in object storage.
type Target struct {
	Bucket string
	Key    string
}

// Location returns the s3:// URI of the target.
func (t Target) Location() string { return objectstore.Location(t.Bucket, t.Key) }

// Options selects the destinations of one Load call.
type Options struct {
	// LocalPath is the output file. Missing parent directories are created.
	LocalPath string

	// Remote, when non-nil, is uploaded through Store.
	Remote *Target
	Store  objectstore.Store
}

// Destination records where a dataset was persisted. Fields of a
// destination that was not requested or that failed are empty.
type Destination struct {
	LocalPath string
	Bucket    string
	Key       string
	Location  string
}

// StorageWriteError reports a failed write to one destination.
type StorageWriteError struct {
	Destination string
	Err         error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("storage write %s: %v", e.Destination, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

// Load writes ds to every destination in opts. The returned Destination lists
// the writes that succeeded; the error joins one *StorageWriteError per
// failed destination.
func Load(ctx context.Context, ds *dataset.Dataset, opts Options) (Destination, error) {
	if opts.Remote != nil && opts.Store == nil {
		return Destination{}, errors.New("load: remote target given without an object store")
	}

	var (
		dest                Destination
		localErr, remoteErr error
		group               errgroup.Group
	)

	group.Go(func() error {
		localErr = Local(ctx, ds, opts.LocalPath)
		if localErr == nil {
			dest.LocalPath = opts.LocalPath
		}
		return localErr
	})

	if opts.Remote != nil {
		target := *opts.Remote
		group.Go(func() error {
			var loc string
			loc, remoteErr = Remote(ctx, ds, opts.Store, target)
			if remoteErr == nil {
				dest.Bucket, dest.Key, dest.Location = target.Bucket, target.Key, loc
			}
			return remoteErr
		})
	}

	// Both goroutines always run to completion; their errors are collected
	// individually below.
	_ = group.Wait()

	return dest, errors.Join(localErr, remoteErr)
}

// Local writes ds as CSV to path.
func Local(ctx context.Context, ds *dataset.Dataset, path string) error {
	slog.InfoContext(ctx, "loading data to local file", "path", path, "records", ds.Len())

	if err := ds.WriteFile(path); err != nil {
		slog.ErrorContext(ctx, "local write failed", "path", path, "err", err)
		return &StorageWriteError{Destination: LocalDestination + ":" + path, Err: err}
	}

	slog.InfoContext(ctx, "data saved", "path", path)
	return nil
}

// Remote serializes ds to CSV in memory and uploads it as a single object,
// replacing any existing object at the key.
func Remote(ctx context.Context, ds *dataset.Dataset, store objectstore.Store, target Target) (string, error) {
	slog.InfoContext(ctx, "uploading data to object storage",
		"bucket", target.Bucket, "key", target.Key, "records", ds.Len(), "columns", len(ds.Columns))

	data, err := ds.Bytes()
	if err != nil {
		slog.ErrorContext(ctx, "serialize for upload failed", "location", target.Location(), "err", err)
		return "", &StorageWriteError{Destination: target.Location(), Err: err}
	}

	loc, err := store.Put(ctx, target.Bucket, target.Key, data)
	if err != nil {
		slog.ErrorContext(ctx, "upload failed", "location", target.Location(), "err", err)
		return "", &StorageWriteError{Destination: target.Location(), Err: err}
	}

	slog.InfoContext(ctx, "upload completed", "location", loc, "bytes", len(data))
	return loc, nil
}

// Source returns the dataset to upload when the transformed data reaches the
// upload step through a lossy handoff. When data is nil the step falls back
// to re-reading the local output at localPath.
func Source(ctx context.Context, data []byte, localPath string) (*dataset.Dataset, error) {
	if data == nil {
		slog.WarnContext(ctx, "no transformed data received from handoff, falling back to local file",
			"path", localPath)
		return dataset.ReadFile(localPath)
	}
	return dataset.Read(bytes.NewReader(data), "handoff")
}
