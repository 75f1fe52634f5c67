package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bjaus/studentetl/internal/extract"
	"github.com/bjaus/studentetl/internal/validation"
)

func newValidateCmd(a *app) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run the quality checks on a CSV file and print the report",
		Long: `Run the quality checks on a CSV file without transforming or loading it.

The report is printed as JSON. The command exits non-zero when any check fails.

Example:
  studentetl validate --source data/StudentsPerformance.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if source == "" {
				source = a.cfg.Pipeline.Source
			}

			ds, err := extract.File(cmd.Context(), source)
			if err != nil {
				return err
			}

			report := validation.Validate(ds)
			data, err := json.Marshal(report)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))

			if !report.Passed {
				return &validation.FailedError{Report: report}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Input CSV file (overrides pipeline.source)")
	return cmd
}
