package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/usertrace/internal/app"
	usergrpc "github.com/GriffinCanCode/usertrace/internal/grpc/user"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/config"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/logging"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/tracing"
)

// serviceName is the service.name reported by the client's spans
const serviceName = "grpc-client-app"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	flags := pflag.NewFlagSet("client", pflag.ExitOnError)
	flags.StringVar(&cfg.Client.Target, "target", cfg.Client.Target, "user service address")
	flags.DurationVar(&cfg.Client.CallTimeout, "timeout", cfg.Client.CallTimeout, "per-call timeout")
	flags.StringVar(&cfg.Tracing.Exporter, "trace-exporter", cfg.Tracing.Exporter, "span exporter: log, otlp, stdout or none")
	flags.StringVar(&cfg.Tracing.Endpoint, "otlp-endpoint", cfg.Tracing.Endpoint, "OTLP/HTTP collector host:port")
	flags.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "log level")
	flags.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "development logging")
	callSpecs := flags.StringArray("call", nil, "call to issue, get:<id> or create:<id>:<mobile> (repeatable; default is the demo sequence)")
	_ = flags.Parse(os.Args[1:])

	calls := app.DefaultCalls()
	if len(*callSpecs) > 0 {
		if calls, err = app.ParseCalls(*callSpecs); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --call: %v\n", err)
			os.Exit(2)
		}
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, calls, logger); err != nil {
		logger.Error("Client run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, calls []app.Call, logger *logging.Logger) error {
	provider, err := tracing.NewProviderFromConfig(ctx, cfg.Tracing, serviceName, logger.Logger, os.Stdout)
	if err != nil {
		return err
	}
	// Spans are flushed on every exit path, failed calls included.
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Tracing.ExportTimeout+time.Second)
		defer cancel()
		if err := provider.Shutdown(flushCtx); err != nil {
			logger.Warn("Failed to flush spans", zap.Error(err))
			return
		}
		logger.Info("Client ops finished, spans flushed")
	}()

	reg := prometheus.NewRegistry()
	client, err := usergrpc.NewClient(cfg.Client.Target, usergrpc.ClientOptions{
		CallTimeout: cfg.Client.CallTimeout,
		Breaker:     usergrpc.NewBreaker(cfg.Client.BreakerMaxFail, cfg.Client.BreakerTimeout),
		Observer:    monitoring.NewMetrics(reg),
	})
	if err != nil {
		return err
	}
	defer client.Close()
	defer logCallTotals(reg, logger)

	logger.Info("Calling user service", zap.String("target", cfg.Client.Target), zap.Int("calls", len(calls)))

	results, err := app.NewWorkflow(client, provider.Tracer(), logger).Run(ctx, calls)
	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Printf("%s: error: %v\n", r.Call, r.Err)
		case r.Call.Op == app.OpGetUserData:
			fmt.Printf("%s: mobile number %q\n", r.Call, r.MobileNumber)
		default:
			fmt.Printf("%s: is new user %t\n", r.Call, r.IsNewUser)
		}
	}
	return err
}

// logCallTotals logs the client's RPC counts by method and status code
func logCallTotals(reg prometheus.Gatherer, logger *logging.Logger) {
	totals, err := monitoring.CounterTotals(reg, "usertrace_grpc_calls_total")
	if err != nil {
		logger.Warn("Failed to gather call metrics", zap.Error(err))
		return
	}
	fields := make([]zap.Field, 0, len(totals))
	for labels, n := range totals {
		fields = append(fields, zap.Float64(labels, n))
	}
	logger.Info("Client call totals", fields...)
}
