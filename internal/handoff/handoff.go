// Package handoff passes step outputs between independently invoked workflow
// steps. Values are opaque byte payloads addressed by (run id, step, data key),
// so a dataset is serialized once by the step that produced it and referenced
// by run id from then on.
//
// Implementations:
//   - Memory: in-process, with background TTL eviction
//   - Dir: one file per key under a directory, shared across processes
package handoff

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Pull when no value exists for a key.
var ErrNotFound = errors.New("handoff: not found")

// Key addresses one payload.
type Key struct {
	RunID   string
	Step    string
	DataKey string
}

func (k Key) String() string {
	return k.RunID + "/" + k.Step + "/" + k.DataKey
}

// validate rejects keys that cannot be used as path segments.
func (k Key) validate() error {
	for _, part := range []string{k.RunID, k.Step, k.DataKey} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return fmt.Errorf("handoff: invalid key %q", k.String())
		}
	}
	return nil
}

// Store holds step payloads.
type Store interface {
	// Push stores data under key, replacing any previous value.
	Push(ctx context.Context, key Key, data []byte) error

	// Pull returns the value stored under key, or ErrNotFound.
	Pull(ctx context.Context, key Key) ([]byte, error)

	// Clear removes every value of a run.
	Clear(ctx context.Context, runID string) error
}
