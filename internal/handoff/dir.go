package handoff

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Dir is a Store that keeps each value in its own file at
// <root>/<run id>/<step>/<data key>. Writes are atomic (temp file + rename),
// so a reader in another process never sees a partial payload.
type Dir struct {
	root string
}

// NewDir creates a Dir store rooted at root, creating the directory if needed.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("handoff: create %s: %w", root, err)
	}
	return &Dir{root: root}, nil
}

func (d *Dir) path(key Key) string {
	return filepath.Join(d.root, key.RunID, key.Step, key.DataKey)
}

// Push writes data to the key's file.
func (d *Dir) Push(_ context.Context, key Key, data []byte) error {
	if err := key.validate(); err != nil {
		return err
	}
	path := d.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("handoff: push %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+key.DataKey+".*")
	if err != nil {
		return fmt.Errorf("handoff: push %s: %w", key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("handoff: push %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("handoff: push %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("handoff: push %s: %w", key, err)
	}
	return nil
}

// Pull reads the key's file.
func (d *Dir) Pull(_ context.Context, key Key) ([]byte, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("handoff: pull %s: %w", key, err)
	}
	return data, nil
}

// Clear removes the run's directory.
func (d *Dir) Clear(_ context.Context, runID string) error {
	if err := (Key{RunID: runID, Step: "_", DataKey: "_"}).validate(); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(d.root, runID)); err != nil {
		return fmt.Errorf("handoff: clear %s: %w", runID, err)
	}
	return nil
}
