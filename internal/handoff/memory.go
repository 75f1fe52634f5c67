package handoff

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type entry struct {
	data      []byte
	updatedAt time.Time
}

// Memory is a thread-safe in-memory Store. A background goroutine (Run)
// periodically evicts values that have not been written within the TTL.
type Memory struct {
	mu   sync.RWMutex
	data map[Key]*entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// NewMemory creates a Memory store with the given TTL.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		data: make(map[Key]*entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Push stores a copy of data under key.
func (m *Memory) Push(_ context.Context, key Key, data []byte) error {
	if err := key.validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = &entry{
		data:      append([]byte(nil), data...),
		updatedAt: m.now(),
	}
	return nil
}

// Pull returns a copy of the value stored under key.
func (m *Memory) Pull(_ context.Context, key Key) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.data...), nil
}

// Clear removes every value of runID.
func (m *Memory) Clear(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if k.RunID == runID {
			delete(m.data, k)
		}
	}
	return nil
}

// Count returns the number of values currently held, including stale ones.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Evict removes values whose last write is older than now minus TTL.
// It returns the number of values removed.
func (m *Memory) Evict(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := now.Add(-m.ttl)
	removed := 0
	for k, e := range m.data {
		if !e.updatedAt.After(cutoff) {
			delete(m.data, k)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// interval (minimum 1 second) and blocks until ctx is cancelled.
func (m *Memory) Run(ctx context.Context) {
	interval := m.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := m.Evict(now); n > 0 {
				slog.Debug("handoff: evicted stale values", "count", n)
			}
		}
	}
}
