package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/api"
	"expenses/internal/cli"
	"expenses/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(os.Stdout)
	logger := cli.SetupLogger(cfg, log.ComponentAPI, os.Stdout)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Tag edits still work without a broker; the exported overview then
	// only refreshes on the worker's periodic export.
	var publisher api.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, tag change events disabled", log.FieldError, err.Error())
		} else {
			defer client.Close()
			publisher = client
		}
	}

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        api.NewServer(repo, api.NewTagService(repo, publisher, logger), logger).Routes(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16, // 64KB
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
	})

	logger.Info("Starting transactions API", "port", cfg.Port, "db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
