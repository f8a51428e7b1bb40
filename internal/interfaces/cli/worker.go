package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/1128026Go/Arconte-sub000/internal/application/tracking"
	"github.com/1128026Go/Arconte-sub000/internal/config"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
)

// newWorkerCmd runs the background sync loop until SIGINT/SIGTERM.
func newWorkerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the background case-synchronization loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.Metrics.Enabled {
				startMetricsServer(a)
			}

			watchLogLevel(a, opts.configPath)

			worker := tracking.NewWorker(
				a.caseRepo,
				a.pipeline,
				a.lockFactory(),
				tracking.WorkerConfig{
					Interval:    a.cfg.Sync.Interval,
					Concurrency: a.cfg.Sync.Concurrency,
					BatchSize:   a.cfg.Sync.BatchSize,
				},
				a.logger,
			)

			a.logger.Info("worker starting",
				logging.Duration("interval", a.cfg.Sync.Interval),
				logging.Int("concurrency", a.cfg.Sync.Concurrency),
			)
			if err := worker.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			a.logger.Info("worker stopped")
			return nil
		},
	}
}

// watchLogLevel hot-reloads the log level from the config file so a running
// worker can be switched to debug without a restart.  Other settings require
// a restart and are left untouched.
func watchLogLevel(a *app, configPath string) {
	setter, ok := a.logger.(logging.LevelSetter)
	if !ok {
		return
	}
	level := a.cfg.Log.Level
	config.Watch(configPath, func(cfg *config.Config) {
		if cfg.Log.Level == level {
			return
		}
		level = cfg.Log.Level
		setter.SetLevel(level)
		a.logger.Info("log level changed", logging.String("level", level))
	})
}

func startMetricsServer(a *app) {
	srv := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: a.metrics.Handler()}
	go func() {
		a.logger.Info("metrics server listening", logging.String("addr", a.cfg.Metrics.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", logging.Err(err))
		}
	}()
}
