package main

import (
	"context"
	"fmt"
	"os/signal"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/seird/internal/api"
	"github.com/nvandessel/seird/internal/checkpoint"
	"github.com/nvandessel/seird/internal/logging"
	"github.com/nvandessel/seird/internal/store"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulation HTTP API",
		Long: `Serve the simulation over HTTP for a polling or stepping client.

Routes:
  GET  /api/graph, /api/graph/default, /api/graph/random?topology=modular
  POST /api/graph/upload
  POST /api/simulation/{init,start,step,pause,rewind,reset}
  GET  /api/simulation/state?includeGraph=true
  GET  /api/simulation/history

When storage.path is set, run history and scheduled graph checkpoints are
written to that SQLite database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Server.Addr = addr
			}
			if db, _ := cmd.Flags().GetString("db"); db != "" {
				cfg.Storage.Path = db
			}

			history, err := store.Open(cfg.Storage.Path)
			if err != nil {
				return fmt.Errorf("failed to open history store: %w", err)
			}
			ctrl, logger, cleanup := newController(cfg, history, cmd.ErrOrStderr())
			defer cleanup()

			if logging.ParseLevel(cfg.Logging.Level) >= logging.ParseLevel("info") {
				gin.SetMode(gin.ReleaseMode)
			}
			router := api.NewRouter(ctrl, api.Options{
				AllowedOrigins: cfg.Server.AllowedOrigins,
				Logger:         logger,
			})
			srv := api.NewServer(cfg.Server.Addr, router, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals...)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.ListenAndServe(gctx) })

			if cfg.Storage.Path != "" && cfg.Storage.CheckpointSchedule != "" {
				sched, err := checkpoint.New(cfg.Storage.CheckpointSchedule, ctrl, history, logger)
				if err != nil {
					return err
				}
				g.Go(func() error { return sched.Run(gctx) })
			}

			err = g.Wait()
			logger.Info("shutting down")
			if shutdownErr := ctrl.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
				logger.Warn("stopping simulation", "error", shutdownErr)
			}
			return err
		},
	}

	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().String("db", "", "SQLite history database (overrides storage.path)")
	return cmd
}
