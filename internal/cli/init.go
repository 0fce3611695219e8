// Package cli provides the startup steps shared by the binaries under
// cmd/: env loading, config, logging, storage and signal handling.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expenses/internal/config"
	"expenses/internal/log"
	"expenses/internal/storage"

	"github.com/joho/godotenv"
)

// LoadEnvFile reads .env from the working directory when present.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from the config and installs it
// as the slog default. out defaults to stdout.
func SetupLogger(cfg *config.Config, component string, out io.Writer) *log.Logger {
	logCfg := log.DefaultConfig()
	logCfg.Component = component
	if out != nil {
		logCfg.Output = out
	}
	if cfg != nil {
		logCfg.Level = log.ParseLevel(cfg.LogLevel)
		logCfg.JSON = cfg.LogJSON
	}
	logger := log.New(logCfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Exits the process on failure, logging to out.
func LoadAndValidateConfig(out io.Writer) *config.Config {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		SetupLogger(nil, log.ComponentApp, out).Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the repository, applying pending migrations.
// Exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err.Error(), "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. After
// the signal, cleanup gets a context bounded by timeout; the returned
// channel closes when it returns.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-ctx.Done()
		stop()
		logger.Info("Shutdown signal received")
		if cleanup == nil {
			return
		}

		cleanupCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		cleanup(cleanupCtx)
		if errors.Is(cleanupCtx.Err(), context.DeadlineExceeded) {
			logger.Warn("Shutdown timeout reached", "timeout", timeout.String())
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the signal arrived and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
