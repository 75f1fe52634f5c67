// Package config loads and watches the ETL configuration file (config.yaml).
//
// Top-level types:
//   - Config{Pipeline, Storage, Schedule, Handoff, Metrics, Log}: full tree parsed from YAML
//   - PipelineConfig: source and output CSV paths
//   - StorageConfig: bucket, key, region, endpoint; an empty bucket disables the remote load
//   - ScheduleConfig: interval, start, retries, retry_delay
//   - HandoffConfig: dir (empty selects the in-memory store), ttl
//   - MetricsConfig: textfile path for the Prometheus textfile exporter
//   - LogConfig: level (debug|info|warn|error), format (json|text)
//
// Load(path) reads the YAML file, applies defaults (daily schedule from
// 2025-03-10, one retry after 5m, region ap-southeast-2, JSON logs at info),
// then validates required fields and enums. Default() returns the same
// defaults without a file.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config.
package config
