package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivghost/ragtool/internal/api"
	"github.com/ivghost/ragtool/internal/api/handlers"
	"github.com/ivghost/ragtool/internal/server"
)

// shutdownTimeout bounds the stop request plus the HTTP drain.
const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP control surface",
		Long: `Start the HTTP control surface.

SIGINT or SIGTERM requests a stop of all running work, unloads local models
and drains in-flight requests before exiting.

Examples:
  ragtool serve
  ragtool serve --port 8080
  RAGTOOL_AUTH_SECRET=... ragtool serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			if cmd.Flags().Changed("host") {
				a.cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Port = port
			}
			return runServe(cmd.Context(), a)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides RAGTOOL_HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides RAGTOOL_PORT)")
	return cmd
}

func runServe(parent context.Context, a *app) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.openHistory(ctx); err != nil {
		return err
	}
	recCtx, stopRecorder := context.WithCancel(context.Background())
	defer stopRecorder()
	go a.recorder.Start(recCtx)

	router := api.NewRouter(api.Deps{
		Analyzer:     a.analyzer,
		Planner:      a.planner,
		Switch:       a.sw,
		Engine:       a.engine,
		Runs:         a.runs,
		Defaults:     a.defaults,
		FullAnalysis: a.cfg.FullAnalysis,
		Uploads:      handlers.Uploads{},
		AuthSecret:   []byte(a.cfg.AuthSecret),
		Logger:       a.logger,
	})

	srvCfg := server.DefaultConfig()
	srvCfg.Host = a.cfg.Host
	srvCfg.Port = a.cfg.Port
	srv := server.NewServer(router, srvCfg, a.logger)

	if a.cfg.AuthSecret == "" {
		a.logger.Warn("RAGTOOL_AUTH_SECRET not set, API is unauthenticated")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	report := a.sw.RequestStop(shutdownCtx)
	a.logger.Info("stop requested", "pending", report.Pending, "joined", report.Joined, "hook_errors", report.HookErrors)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
