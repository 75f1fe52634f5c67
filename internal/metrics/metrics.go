// Package metrics renders the outcome of a pipeline run as a Prometheus text
// exposition, for pickup by node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

const namespace = "studentetl"

// Run summarizes one finished pipeline run.
type Run struct {
	// Mode is "run" for the in-process job and "scheduled" for the workflow.
	Mode string

	Success     bool
	Attempts    int64
	Errors      int64
	Extracted   int64
	Transformed int64
	Duration    time.Duration
	FinishedAt  time.Time

	// Checks maps validation check names to their counts. Nil when the run
	// did not get as far as validation.
	Checks map[string]int
}

// Families builds the metric families for r, sorted by name.
func Families(r Run) []*dto.MetricFamily {
	mode := label("mode", r.Mode)

	success := 0.0
	if r.Success {
		success = 1
	}

	fams := []*dto.MetricFamily{
		gauge("last_run_success", "Whether the last run succeeded (1) or failed (0).", success, mode),
		gauge("last_run_timestamp_seconds", "Unix time the last run finished.", float64(r.FinishedAt.UnixNano())/1e9, mode),
		gauge("last_run_duration_seconds", "Wall time of the last run, retries included.", r.Duration.Seconds(), mode),
		gauge("last_run_attempts", "Attempts made by the last run.", float64(r.Attempts), mode),
		gauge("last_run_errors", "Failed attempts in the last run.", float64(r.Errors), mode),
		{
			Name: proto.String(namespace + "_last_run_rows"),
			Help: proto.String("Rows handled by the last attempt, by stage."),
			Type: dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{
				gaugeMetric(float64(r.Extracted), mode, label("stage", "extract")),
				gaugeMetric(float64(r.Transformed), mode, label("stage", "transform")),
			},
		},
	}

	if len(r.Checks) > 0 {
		names := make([]string, 0, len(r.Checks))
		for name := range r.Checks {
			names = append(names, name)
		}
		sort.Strings(names)

		checks := &dto.MetricFamily{
			Name: proto.String(namespace + "_last_run_validation_check"),
			Help: proto.String("Validation check counts from the last run."),
			Type: dto.MetricType_GAUGE.Enum(),
		}
		for _, name := range names {
			checks.Metric = append(checks.Metric, gaugeMetric(float64(r.Checks[name]), mode, label("check", name)))
		}
		fams = append(fams, checks)
	}

	sort.Slice(fams, func(i, j int) bool { return fams[i].GetName() < fams[j].GetName() })
	return fams
}

// Write renders r in the Prometheus text format.
func Write(w io.Writer, r Run) error {
	for _, mf := range Families(r) {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteFile renders r to path atomically, so the collector never reads a
// partial file.
func WriteFile(path string, r Run) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("metrics: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

func gauge(name, help string, v float64, labels ...*dto.LabelPair) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(namespace + "_" + name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{gaugeMetric(v, labels...)},
	}
}

func gaugeMetric(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{
		Label: labels,
		Gauge: &dto.Gauge{Value: proto.Float64(v)},
	}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}
