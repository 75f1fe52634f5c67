package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Valid(t *testing.T) {
	yaml := `
pipeline:
  source: /data/StudentsPerformance.csv
  output: /out/processed.csv
storage:
  bucket: studentperformance-gerard
  key: data/student_performance.csv
  endpoint: http://localhost:9000
schedule:
  interval: 1h
  start: 2025-03-10T06:00:00Z
  retries: 3
  retry_delay: 30s
handoff:
  dir: /var/lib/studentetl/handoff
metrics:
  textfile: /var/lib/node_exporter/studentetl.prom
log:
  level: debug
  format: text
`
	cfg := loadFromString(t, yaml)

	require.Equal(t, "/data/StudentsPerformance.csv", cfg.Pipeline.Source)
	require.Equal(t, "/out/processed.csv", cfg.Pipeline.Output)
	require.True(t, cfg.Storage.Enabled())
	require.Equal(t, "studentperformance-gerard", cfg.Storage.Bucket)
	require.Equal(t, "data/student_performance.csv", cfg.Storage.Key)
	require.Equal(t, DefaultRegion, cfg.Storage.Region)
	require.Equal(t, "http://localhost:9000", cfg.Storage.Endpoint)
	require.Equal(t, time.Hour, cfg.Schedule.Interval)
	require.True(t, cfg.Schedule.Start.Equal(time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)))
	require.Equal(t, 3, cfg.Schedule.Retries)
	require.Equal(t, 30*time.Second, cfg.Schedule.RetryDelay)
	require.Equal(t, "/var/lib/studentetl/handoff", cfg.Handoff.Dir)
	require.Equal(t, "/var/lib/node_exporter/studentetl.prom", cfg.Metrics.Textfile)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadFromString(t, "pipeline:\n  source: in.csv\n")

	require.Equal(t, "in.csv", cfg.Pipeline.Source)
	require.Equal(t, DefaultOutput, cfg.Pipeline.Output)
	require.False(t, cfg.Storage.Enabled())
	require.Equal(t, DefaultRegion, cfg.Storage.Region)
	require.Equal(t, DefaultInterval, cfg.Schedule.Interval)
	require.True(t, cfg.Schedule.Start.Equal(DefaultStart))
	require.Equal(t, DefaultRetries, cfg.Schedule.Retries)
	require.Equal(t, DefaultRetryDelay, cfg.Schedule.RetryDelay)
	require.Equal(t, DefaultHandoffTTL, cfg.Handoff.TTL)
	require.Empty(t, cfg.Handoff.Dir)
	require.Equal(t, DefaultLogLevel, cfg.Log.Level)
	require.Equal(t, DefaultLogFormat, cfg.Log.Format)
}

func TestLoad_ZeroRetriesAllowed(t *testing.T) {
	cfg := loadFromString(t, "schedule:\n  retries: 0\n  retry_delay: 0s\n")
	require.Equal(t, 0, cfg.Schedule.Retries)
	require.Equal(t, time.Duration(0), cfg.Schedule.RetryDelay)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty source", "pipeline:\n  source: \"\"\n"},
		{"empty output", "pipeline:\n  output: \"\"\n"},
		{"bucket without key", "storage:\n  bucket: b\n"},
		{"bucket without region", "storage:\n  bucket: b\n  key: k\n  region: \"\"\n"},
		{"zero interval", "schedule:\n  interval: 0s\n"},
		{"negative retries", "schedule:\n  retries: -1\n"},
		{"negative retry delay", "schedule:\n  retry_delay: -1s\n"},
		{"zero ttl", "handoff:\n  ttl: 0s\n"},
		{"unknown level", "log:\n  level: loud\n"},
		{"unknown format", "log:\n  format: xml\n"},
		{"bad yaml", "pipeline: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadStringErr(t, tc.yaml)
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLogConfig_Handler(t *testing.T) {
	var buf bytes.Buffer
	h, err := LogConfig{Level: "warn", Format: "json"}.Handler(&buf)
	require.NoError(t, err)

	require.False(t, h.Enabled(context.Background(), -4))
	require.True(t, h.Enabled(context.Background(), 4))
}

func TestWatch_Reloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  source: a.csv\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) {
			select {
			case changed <- c:
			default:
			}
		})
	}()

	// The watcher registers asynchronously, so keep writing until it notices.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case c := <-changed:
			// A truncating write can surface an empty file first.
			if c.Pipeline.Source != "b.csv" {
				continue
			}
			cancel()
			require.NoError(t, <-done)
			return
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  source: b.csv\n"), 0o600))
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}

func TestWatch_SurvivesRenameSaves(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  source: a.csv\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) {
			select {
			case changed <- c:
			default:
			}
		})
	}()

	// Save the way editors do: write a sibling file, then rename it over path.
	save := func(source string) {
		tmp := filepath.Join(dir, ".config.yaml.tmp")
		require.NoError(t, os.WriteFile(tmp, []byte("pipeline:\n  source: "+source+"\n"), 0o600))
		require.NoError(t, os.Rename(tmp, path))
	}

	// Every save after the first must still be seen, so the watch outlives
	// the replaced file.
	for _, source := range []string{"b.csv", "c.csv", "d.csv"} {
		deadline := time.After(5 * time.Second)
		tick := time.NewTicker(50 * time.Millisecond)
	wait:
		for {
			select {
			case c := <-changed:
				if c.Pipeline.Source == source {
					break wait
				}
			case <-tick.C:
				save(source)
			case <-deadline:
				tick.Stop()
				t.Fatalf("no reload observed for %s", source)
			}
		}
		tick.Stop()
	}

	cancel()
	require.NoError(t, <-done)
}

// loadFromString writes yaml to a temp file and calls Load, failing on error.
func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, content)
	require.NoError(t, err)
	return cfg
}

// loadStringErr writes yaml to a temp file and calls Load, returning any error.
func loadStringErr(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return Load(path)
}
