// Package cli implements the studentetl command tree.
package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bjaus/studentetl/internal/config"
	"github.com/bjaus/studentetl/internal/objectstore"
)

// app carries state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config

	// newStore builds the object store for a storage section.
	newStore func(ctx context.Context, cfg config.StorageConfig) (objectstore.Store, error)
}

func newS3Store(ctx context.Context, cfg config.StorageConfig) (objectstore.Store, error) {
	return objectstore.NewS3(ctx, objectstore.S3Options{Region: cfg.Region, Endpoint: cfg.Endpoint})
}

// NewRootCmd builds the studentetl command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{newStore: newS3Store})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "studentetl",
		Short: "Student performance ETL",
		Long: `Student performance ETL - extract exam scores from CSV, validate them,
derive total/average/category columns, and load the result to a local file
and an S3 bucket.

Configuration is read from --config (YAML) when given; flags override file values.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to config file (YAML)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: json|text (overrides config)")

	root.AddCommand(newRunCmd(a))
	root.AddCommand(newValidateCmd(a))
	root.AddCommand(newScheduleCmd(a))
	root.AddCommand(newFetchCmd(a))
	return root
}

// setup loads the configuration and installs the process logger on logOut.
// Command output goes to stdout, so logs belong on stderr.
func (a *app) setup(logOut io.Writer) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}

	handler, err := cfg.Log.Handler(logOut)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(handler))

	a.cfg = cfg
	return nil
}
