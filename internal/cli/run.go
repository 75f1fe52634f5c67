package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bjaus/studentetl/internal/load"
	"github.com/bjaus/studentetl/internal/students"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		source, output, bucket, key string
		metricsFile                 string
		retries                     int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once, in-process",
		Long: `Run extract, validate, transform and load once for a single CSV file.

A failed validation stops the run immediately. Any other failure restarts the
whole run, up to the configured number of retries.

Example:
  studentetl run --source data/StudentsPerformance.csv --output output/processed.csv
  studentetl run --config config.yaml --bucket studentperformance --key data/student_performance.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if source != "" {
				cfg.Pipeline.Source = source
			}
			if output != "" {
				cfg.Pipeline.Output = output
			}
			if bucket != "" {
				cfg.Storage.Bucket = bucket
			}
			if key != "" {
				cfg.Storage.Key = key
			}
			if metricsFile != "" {
				cfg.Metrics.Textfile = metricsFile
			}
			if cmd.Flags().Changed("retries") {
				cfg.Schedule.Retries = retries
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			opts := students.Options{
				Source:      cfg.Pipeline.Source,
				Output:      cfg.Pipeline.Output,
				Retries:     cfg.Schedule.Retries,
				RetryDelay:  cfg.Schedule.RetryDelay,
				MetricsFile: cfg.Metrics.Textfile,
			}
			if cfg.Storage.Enabled() {
				store, err := a.newStore(cmd.Context(), cfg.Storage)
				if err != nil {
					return err
				}
				opts.Remote = &load.Target{Bucket: cfg.Storage.Bucket, Key: cfg.Storage.Key}
				opts.Store = store
			}

			dest, err := students.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}

			slog.InfoContext(cmd.Context(), "run finished", "local_path", dest.LocalPath, "location", dest.Location)
			fmt.Fprintln(cmd.OutOrStdout(), dest.LocalPath)
			if dest.Location != "" {
				fmt.Fprintln(cmd.OutOrStdout(), dest.Location)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Input CSV file (overrides pipeline.source)")
	cmd.Flags().StringVar(&output, "output", "", "Output CSV file (overrides pipeline.output)")
	cmd.Flags().StringVar(&bucket, "bucket", "", "S3 bucket to upload to (overrides storage.bucket)")
	cmd.Flags().StringVar(&key, "key", "", "S3 object key (overrides storage.key)")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Prometheus textfile to write after the run")
	cmd.Flags().IntVar(&retries, "retries", 0, "Retries after a failed run (overrides schedule.retries)")
	return cmd
}
