package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"datahunt/internal/agent"
	"datahunt/internal/api"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			logger := buildLogger(cfg.Logging, nil)
			a, err := buildApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pool, err := agent.NewWorkerPool(ctx, cfg.Server.MaxConcurrency, cfg.Server.QueueSize)
			if err != nil {
				return err
			}
			defer pool.Close()

			opts := []api.Option{
				api.WithMetrics(a.metrics.Handler()),
				api.WithRequestTimeout(cfg.Server.RequestTimeout.Duration),
				api.WithLogger(logger),
			}
			if a.store != nil {
				opts = append(opts, api.WithRunStore(a.store))
			}
			httpServer := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           api.NewServer(a.agent, pool, opts...),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					logger.Error("http shutdown error", "error", err)
				}
			}()

			logger.Info("api server listening",
				"addr", cfg.Server.Addr,
				"max_concurrency", cfg.Server.MaxConcurrency,
				"queue_size", cfg.Server.QueueSize,
			)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("api server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides server.addr)")
	return cmd
}
