// Package objectstore is the object-storage collaborator used to publish the
// processed dataset and to read datasets back.
//
// Implementations:
//   - S3: Amazon S3 or any S3-compatible endpoint, using ambient AWS
//     credentials and a fixed region
//   - Memory: process-local buckets for tests and dry runs
package objectstore

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get when no object exists at bucket/key.
var ErrNotFound = errors.New("object not found")

// Store puts and gets whole objects.
type Store interface {
	// Put stores data at bucket/key, replacing any existing object, and
	// returns the object's location URI.
	Put(ctx context.Context, bucket, key string, data []byte) (string, error)

	// Get returns the content stored at bucket/key.
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// Location returns the s3:// URI of bucket/key.
func Location(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}

// Memory is a thread-safe in-memory Store.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

// Put stores a copy of data.
func (m *Memory) Put(_ context.Context, bucket, key string, data []byte) (string, error) {
	loc := Location(bucket, key)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[loc] = append([]byte(nil), data...)
	return loc, nil
}

// Get returns a copy of the stored object.
func (m *Memory) Get(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[Location(bucket, key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
