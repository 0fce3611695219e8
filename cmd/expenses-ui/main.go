package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"expenses/internal/cli"
	apphttp "expenses/internal/http"
	"expenses/internal/log"
	"expenses/internal/txnclient"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(os.Stdout)
	logger := cli.SetupLogger(cfg, log.ComponentHTTP, os.Stdout)

	backend := txnclient.New(cfg.BackendURL)
	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.UIPort,
		PageLimit:          cfg.PageLimit,
		SessionTTL:         cfg.SessionTTL,
		SessionLimit:       cfg.SessionLimit,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, backend, logger)

	// Configure server timeouts and limits. Tag edits may wait on the
	// backend, so writes get more room than reads.
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 40 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
	})

	logger.Info("Starting expenses UI", "port", cfg.UIPort, "backend", cfg.BackendURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.UIPort)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
