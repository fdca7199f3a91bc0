package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/airq-etl/internal/adapter/http"
	"github.com/couchcryptid/airq-etl/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch the spool directory and adapt new files on a schedule",
	Long: `Scan $INPUT_DIR/<network>/ for every network in $WATCH_NETWORKS on the cron
schedule $WATCH_SCHEDULE, adapting files that are new or modified. Health,
readiness, metrics and the network list are served on $HTTP_ADDR.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	for _, n := range a.cfg.WatchNetworks {
		if _, err := a.registry.Resolve(n); err != nil {
			return err
		}
	}

	p, err := a.pipeline(ctx, "")
	if err != nil {
		return err
	}

	logger := a.logger
	srv := httpadapter.NewServer(a.cfg.HTTPAddr, p, a.registry, logger)
	sched := scheduler.New(p, scheduler.Options{
		Networks:  a.cfg.WatchNetworks,
		InputDir:  a.cfg.InputDir,
		OutputDir: a.cfg.OutputDir,
		Workers:   a.cfg.Workers,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if err := sched.Start(ctx, a.cfg.WatchSchedule); err != nil {
		return err
	}
	a.metrics.PipelineRunning.Set(1)

	<-ctx.Done()
	logger.Info("shutting down")
	a.metrics.PipelineRunning.Set(0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("scan still running at shutdown deadline")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
