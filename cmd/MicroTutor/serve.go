package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BTreeMap/MicroTutor/internal/api"
	"github.com/BTreeMap/MicroTutor/internal/lockfile"
	"github.com/BTreeMap/MicroTutor/internal/simulator"
	"github.com/spf13/cobra"
)

func newServeCmd(config *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve learner sessions over a JSON API.

Generation receipts are written to $DATABASE_URL, or to a SQLite file in the
state directory when it is not set. The state directory is locked so only
one server uses it at a time. Idle sessions are swept on a cron schedule.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *config)
		},
	}
	cmd.Flags().StringVar(&config.APIAddr, "addr", config.APIAddr, "API server address (overrides $API_ADDR)")
	cmd.Flags().DurationVar(&config.SessionIdleTTL, "session-ttl", config.SessionIdleTTL, "drop sessions idle for this long (overrides $SESSION_IDLE_TTL)")
	cmd.Flags().StringVar(&config.SweepCron, "sweep-cron", config.SweepCron, "cron schedule of the idle session sweep (overrides $SESSION_SWEEP_CRON)")
	return cmd
}

func runServe(ctx context.Context, config Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lock, err := lockfile.Acquire(config.StateDir, config.APIAddr)
	if err != nil {
		return err
	}
	defer lock.Release()

	svc, err := buildServices(config, true)
	if err != nil {
		slog.Error("Failed to initialize services", "error", err)
		return err
	}
	defer svc.Close()

	slog.Info("Bootstrapping MicroTutor API", "addr", config.APIAddr, "modules", len(svc.catalog.Modules), "model", config.Model)
	server := api.NewServer(svc.generator, svc.catalog, simulator.Load(), svc.receipts, buildAPIOptions(config)...)
	if err := server.Run(ctx); err != nil {
		slog.Error("MicroTutor failed to run", "error", err)
		return err
	}
	slog.Info("MicroTutor exited successfully")
	return nil
}
