package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/usertrace/internal/infrastructure/config"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/logging"
	"github.com/GriffinCanCode/usertrace/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags override env vars
	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	flags.StringVar(&cfg.Server.Address, "addr", cfg.Server.Address, "gRPC listen address")
	flags.StringVar(&cfg.Server.AdminAddress, "admin-addr", cfg.Server.AdminAddress, "admin HTTP listen address (/health, /metrics)")
	flags.StringVar(&cfg.Store.Kind, "store", cfg.Store.Kind, "user store backend: memory, sqlite, etcd or consul")
	flags.StringVar(&cfg.Store.DSN, "store-dsn", cfg.Store.DSN, "sqlite data source name")
	flags.StringSliceVar(&cfg.Store.Endpoints, "store-endpoints", cfg.Store.Endpoints, "etcd endpoints or consul address")
	flags.StringVar(&cfg.Store.Seed, "seed", cfg.Store.Seed, "users to preload as id=number,id=number")
	flags.StringVar(&cfg.Tracing.Exporter, "trace-exporter", cfg.Tracing.Exporter, "span exporter: log, otlp, stdout or none")
	flags.StringVar(&cfg.Tracing.Endpoint, "otlp-endpoint", cfg.Tracing.Endpoint, "OTLP/HTTP collector host:port")
	flags.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "log level")
	flags.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "development logging")
	_ = flags.Parse(os.Args[1:])

	if _, err := config.ParseSeed(cfg.Store.Seed); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --seed: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	runErr := srv.Run(ctx)
	if runErr != nil {
		logger.Error("Server error", zap.Error(runErr))
	} else {
		logger.Info("Shutting down gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Close(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	if runErr != nil {
		os.Exit(1)
	}
}
