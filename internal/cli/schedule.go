package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bjaus/studentetl/internal/config"
	"github.com/bjaus/studentetl/internal/handoff"
	"github.com/bjaus/studentetl/internal/load"
	"github.com/bjaus/studentetl/internal/workflow"
)

func newScheduleCmd(a *app) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the five-step workflow on a schedule",
		Long: `Run extract, validate, transform, load_local and load_remote as a workflow,
once per schedule.interval starting at schedule.start. Missed runs are not
replayed. Steps exchange data through the handoff store (handoff.dir, or
memory when unset).

The config file is watched; changes apply from the next run.

Example:
  studentetl schedule --config config.yaml
  studentetl schedule --config config.yaml --once`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.configPath == "" {
				return errors.New("schedule: --config is required")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hand, err := newHandoff(ctx, a.cfg.Handoff)
			if err != nil {
				return err
			}

			var current atomic.Pointer[config.Config]
			current.Store(a.cfg)

			run := func(ctx context.Context, runID string, _ time.Time) error {
				opts, err := a.workflowOptions(ctx, current.Load(), hand)
				if err != nil {
					return err
				}
				_, err = workflow.Run(ctx, runID, opts)
				return err
			}

			if once {
				now := time.Now()
				return run(ctx, workflow.RunID(now), now)
			}

			go func() {
				if err := config.Watch(ctx, a.configPath, func(updated *config.Config) {
					current.Store(updated)
					slog.Info("config hot-reloaded, applies from the next run",
						"source", updated.Pipeline.Source,
						"bucket", updated.Storage.Bucket,
					)
				}); err != nil {
					slog.Error("config watcher stopped", "err", err)
				}
			}()

			cfg := current.Load()
			slog.InfoContext(ctx, "scheduler starting",
				"start", cfg.Schedule.Start,
				"interval", cfg.Schedule.Interval,
				"retries", cfg.Schedule.Retries,
				"retry_delay", cfg.Schedule.RetryDelay,
			)
			return workflow.NewScheduler(cfg.Schedule.Start, cfg.Schedule.Interval, run).Loop(ctx)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Trigger a single run now and exit")
	return cmd
}

// newHandoff selects the handoff store. The in-memory store evicts stale
// payloads in the background until ctx is cancelled.
func newHandoff(ctx context.Context, cfg config.HandoffConfig) (handoff.Store, error) {
	if cfg.Dir != "" {
		return handoff.NewDir(cfg.Dir)
	}
	mem := handoff.NewMemory(cfg.TTL)
	go mem.Run(ctx)
	return mem, nil
}

// workflowOptions builds the options of one scheduled run from cfg.
func (a *app) workflowOptions(ctx context.Context, cfg *config.Config, hand handoff.Store) (workflow.RunOptions, error) {
	opts := workflow.RunOptions{
		Options: workflow.Options{
			Source:  cfg.Pipeline.Source,
			Output:  cfg.Pipeline.Output,
			Handoff: hand,
		},
		Retries:     cfg.Schedule.Retries,
		RetryDelay:  cfg.Schedule.RetryDelay,
		MetricsFile: cfg.Metrics.Textfile,
	}
	if cfg.Storage.Enabled() {
		store, err := a.newStore(ctx, cfg.Storage)
		if err != nil {
			return opts, err
		}
		opts.Remote = &load.Target{Bucket: cfg.Storage.Bucket, Key: cfg.Storage.Key}
		opts.Store = store
	}
	return opts, nil
}
