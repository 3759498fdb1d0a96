package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mgcam/npg-porch/internal/api"
	"github.com/mgcam/npg-porch/internal/api/handler"
	"github.com/mgcam/npg-porch/internal/config"
	"github.com/mgcam/npg-porch/internal/porch"
	"github.com/mgcam/npg-porch/internal/worker"
	"github.com/mgcam/npg-porch/pkg/logger"
)

func setupServer(ctx context.Context, cfg *config.Config, deps api.Deps) func(ctx context.Context) {
	server := api.NewServer(deps, api.NewOptions(cfg))

	go func() {
		logger.Info(ctx, "starting webserver...")
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "could not start webserver", zap.Error(err))
			}
		}
	}()

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping webserver...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop webserver", zap.Error(err))
		}
	}
}

// serveCommand constructs the 'serve' subcommand that starts the API server
// and the background claim sweeper.
func serveCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts API server and background workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

			strg, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()

			service := porch.New(strg, porch.NewOptions(cfg))

			stopWebserver := setupServer(ctx, cfg, api.Deps{
				Deps: handler.Deps{Service: service, Store: strg},
			})

			sweepInterval := cfg.Porch.SweepInterval
			if cfg.Porch.ClaimTTL <= 0 {
				// claims never expire, nothing to sweep
				sweepInterval = 0
			}
			riverClient, err := worker.Start(ctx, strg.Pool, service, worker.Options{
				SweepInterval: sweepInterval,
			})
			if err != nil {
				logger.Fatal(ctx, "could not start background workers", zap.Error(err))
			}

			// wait for interrupt
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
			defer cancel()

			stopWebserver(shutdownCtx)

			logger.Info(ctx, "stopping background workers...")
			if err := riverClient.Stop(shutdownCtx); err != nil {
				logger.Error(ctx, "could not stop background workers", zap.Error(err))
			}
		},
	}

	return cmd
}
