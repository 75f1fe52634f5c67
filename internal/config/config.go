package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultSource     = "data/StudentsPerformance.csv"
	DefaultOutput     = "output/processed_student_performance.csv"
	DefaultRegion     = "ap-southeast-2"
	DefaultInterval   = 24 * time.Hour
	DefaultRetries    = 1
	DefaultRetryDelay = 5 * time.Minute
	DefaultHandoffTTL = 24 * time.Hour
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
)

// DefaultStart is the first scheduled run.
var DefaultStart = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

// Config is the top-level configuration.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Storage  StorageConfig  `yaml:"storage"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Handoff  HandoffConfig  `yaml:"handoff"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// PipelineConfig locates the input and output CSV files.
type PipelineConfig struct {
	// Source is the CSV file read by the extract stage.
	Source string `yaml:"source"`

	// Output is the local CSV file written by the load stage. Parent
	// directories are created as needed.
	Output string `yaml:"output"`
}

// StorageConfig configures the remote object-storage destination.
type StorageConfig struct {
	// Bucket is the target bucket. Leave empty to skip the remote load.
	Bucket string `yaml:"bucket"`

	// Key is the object key within Bucket.
	Key string `yaml:"key"`

	// Region is the fixed AWS region used for the client.
	Region string `yaml:"region"`

	// Endpoint overrides the S3 endpoint, for S3-compatible stores.
	Endpoint string `yaml:"endpoint"`
}

// Enabled reports whether a remote destination is configured.
func (s StorageConfig) Enabled() bool { return s.Bucket != "" }

// ScheduleConfig drives the scheduled workflow and the retry policy of every run.
type ScheduleConfig struct {
	// Interval between scheduled runs.
	Interval time.Duration `yaml:"interval"`

	// Start is the first trigger time. Triggers before now are not replayed.
	Start time.Time `yaml:"start"`

	// Retries is how many times a failed run is started again.
	Retries int `yaml:"retries"`

	// RetryDelay is the wait before each retry.
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// HandoffConfig selects the cross-step handoff store.
type HandoffConfig struct {
	// Dir holds step payloads on disk. Empty selects the in-memory store.
	Dir string `yaml:"dir"`

	// TTL bounds how long in-memory payloads outlive their run.
	TTL time.Duration `yaml:"ttl"`
}

// MetricsConfig configures the Prometheus textfile written after each run.
type MetricsConfig struct {
	// Textfile is the output path. Empty disables metrics.
	Textfile string `yaml:"textfile"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is one of: json | text.
	Format string `yaml:"format"`
}

// SlogLevel maps Level onto a slog.Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", l.Level)
	}
}

// Handler builds a slog.Handler writing to w.
func (l LogConfig) Handler(w io.Writer) (slog.Handler, error) {
	level, err := l.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(l.Format) {
	case "json", "":
		return slog.NewJSONHandler(w, opts), nil
	case "text":
		return slog.NewTextHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", l.Format)
	}
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaults()
}

// Validate checks a Config assembled in code, for example after CLI flag
// overrides.
func (c *Config) Validate() error {
	if err := validate(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Source: DefaultSource,
			Output: DefaultOutput,
		},
		Storage: StorageConfig{
			Region: DefaultRegion,
		},
		Schedule: ScheduleConfig{
			Interval:   DefaultInterval,
			Start:      DefaultStart,
			Retries:    DefaultRetries,
			RetryDelay: DefaultRetryDelay,
		},
		Handoff: HandoffConfig{
			TTL: DefaultHandoffTTL,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Pipeline.Source == "" {
		return fmt.Errorf("pipeline.source is required")
	}
	if cfg.Pipeline.Output == "" {
		return fmt.Errorf("pipeline.output is required")
	}
	if cfg.Storage.Enabled() && cfg.Storage.Key == "" {
		return fmt.Errorf("storage.key is required when storage.bucket is set")
	}
	if cfg.Storage.Enabled() && cfg.Storage.Region == "" {
		return fmt.Errorf("storage.region is required when storage.bucket is set")
	}
	if cfg.Schedule.Interval <= 0 {
		return fmt.Errorf("schedule.interval must be positive")
	}
	if cfg.Schedule.Retries < 0 {
		return fmt.Errorf("schedule.retries must not be negative")
	}
	if cfg.Schedule.RetryDelay < 0 {
		return fmt.Errorf("schedule.retry_delay must not be negative")
	}
	if cfg.Handoff.TTL <= 0 {
		return fmt.Errorf("handoff.ttl must be positive")
	}
	if _, err := cfg.Log.Handler(io.Discard); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}
