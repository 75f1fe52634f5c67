// Package extract loads raw score data into a dataset.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/bjaus/studentetl/internal/dataset"
	"github.com/bjaus/studentetl/internal/objectstore"
)

// File reads the comma-separated file at path. It fails with
// *dataset.SourceNotFoundError when the path does not resolve and with
// *dataset.ParseError when the content is malformed.
func File(ctx context.Context, path string) (*dataset.Dataset, error) {
	slog.InfoContext(ctx, "extracting data", "source", path)

	ds, err := dataset.ReadFile(path)
	if err != nil {
		slog.ErrorContext(ctx, "extract failed", "source", path, "err", err)
		return nil, err
	}

	slog.InfoContext(ctx, "extracted records", "source", path, "records", ds.Len(), "columns", len(ds.Columns))
	return ds, nil
}

// Object reads a comma-separated object from bucket/key.
func Object(ctx context.Context, store objectstore.Store, bucket, key string) (*dataset.Dataset, error) {
	location := objectstore.Location(bucket, key)
	slog.InfoContext(ctx, "extracting data", "source", location)

	data, err := store.Get(ctx, bucket, key)
	if err != nil {
		slog.ErrorContext(ctx, "extract failed", "source", location, "err", err)
		return nil, fmt.Errorf("read %s: %w", location, err)
	}

	ds, err := dataset.Read(bytes.NewReader(data), location)
	if err != nil {
		slog.ErrorContext(ctx, "extract failed", "source", location, "err", err)
		return nil, err
	}

	slog.InfoContext(ctx, "extracted records", "source", location, "records", ds.Len(), "columns", len(ds.Columns))
	return ds, nil
}
