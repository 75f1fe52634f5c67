package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bjaus/studentetl/internal/extract"
)

func newFetchCmd(a *app) *cobra.Command {
	var bucket, key, output string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download a dataset from S3",
		Long: `Download a CSV object from S3, check that it parses, and write it locally.

Bucket and key default to the storage section of the config file.

Example:
  studentetl fetch --bucket studentperformance --key data/student_performance.csv --output downloaded.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			storage := a.cfg.Storage
			if bucket != "" {
				storage.Bucket = bucket
			}
			if key != "" {
				storage.Key = key
			}
			if storage.Bucket == "" || storage.Key == "" {
				return errors.New("fetch: --bucket and --key are required")
			}
			if output == "" {
				return errors.New("fetch: --output is required")
			}

			store, err := a.newStore(cmd.Context(), storage)
			if err != nil {
				return err
			}
			ds, err := extract.Object(cmd.Context(), store, storage.Bucket, storage.Key)
			if err != nil {
				return err
			}
			if err := ds.WriteFile(output); err != nil {
				return fmt.Errorf("fetch: write %s: %w", output, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d records)\n", output, ds.Len())
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "S3 bucket (overrides storage.bucket)")
	cmd.Flags().StringVar(&key, "key", "", "S3 object key (overrides storage.key)")
	cmd.Flags().StringVar(&output, "output", "", "Local file to write")
	return cmd
}
