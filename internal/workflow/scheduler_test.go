package workflow

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func TestScheduler_Next(t *testing.T) {
	s := NewScheduler(start, 24*time.Hour, nil)

	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{"before start", start.Add(-48 * time.Hour), start},
		{"at start", start, start},
		{"just after start", start.Add(time.Nanosecond), start.Add(24 * time.Hour)},
		{"on a later trigger", start.Add(72 * time.Hour), start.Add(72 * time.Hour)},
		{"between triggers", start.Add(73 * time.Hour), start.Add(96 * time.Hour)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, s.Next(tc.at))
		})
	}
}

func TestScheduler_NextWithoutInterval(t *testing.T) {
	s := NewScheduler(start, 0, nil)

	require.Equal(t, start, s.Next(start.Add(-time.Hour)))
	require.Equal(t, start, s.Next(start))
	require.True(t, s.Next(start.Add(time.Hour)).IsZero())
}

// fakeClock advances only when the scheduler waits or a run takes time.
type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(d)
}

func (c *fakeClock) after(d time.Duration) <-chan time.Time {
	c.advance(d)
	ch := make(chan time.Time, 1)
	ch <- c.now()
	return ch
}

func TestScheduler_LoopSkipsMissedTriggers(t *testing.T) {
	clock := &fakeClock{cur: start.Add(12 * time.Hour)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		triggers []time.Time
		runIDs   []string
	)
	// Each run takes a different amount of time; the second one fails and
	// overruns two triggers.
	durations := []time.Duration{time.Hour, 50 * time.Hour, 0}

	s := NewScheduler(start, 24*time.Hour, func(_ context.Context, runID string, trigger time.Time) error {
		i := len(triggers)
		triggers = append(triggers, trigger)
		runIDs = append(runIDs, runID)
		clock.advance(durations[i])
		switch i {
		case 1:
			return errors.New("upload failed")
		case 2:
			cancel()
		}
		return nil
	})
	s.now = clock.now
	s.after = clock.after

	require.NoError(t, s.Loop(ctx))

	require.Equal(t, []time.Time{
		start.Add(24 * time.Hour),
		start.Add(48 * time.Hour),
		start.Add(120 * time.Hour),
	}, triggers)
	require.Regexp(t, regexp.MustCompile(`^scheduled__2025-03-11T00:00:00Z__[0-9a-f-]{36}$`), runIDs[0])
	require.NotEqual(t, runIDs[0][len(runIDs[0])-36:], runIDs[1][len(runIDs[1])-36:])
}

func TestScheduler_LoopRejectsZeroInterval(t *testing.T) {
	s := NewScheduler(start, 0, nil)
	require.Error(t, s.Loop(context.Background()))
}

func TestScheduler_LoopStopsWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(time.Now().Add(time.Hour), time.Hour, func(context.Context, string, time.Time) error {
		t.Error("run should not be triggered")
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- s.Loop(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Loop did not return after cancel")
	}
}
