package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/usertrace/internal/infrastructure/config"
)

// Exporter kinds accepted by NewProviderFromConfig
const (
	ExporterLog    = "log"
	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
	ExporterNone   = "none"
)

// NewProviderFromConfig builds a provider whose exporter and pipeline
// settings come from cfg. service overrides cfg.ServiceName when the latter
// is empty. stdout receives the stdout exporter's output; nil means
// os.Stdout.
func NewProviderFromConfig(ctx context.Context, cfg config.TracingConfig, service string, logger *zap.Logger, stdout io.Writer) (*Provider, error) {
	if cfg.ServiceName != "" {
		service = cfg.ServiceName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if stdout == nil {
		stdout = os.Stdout
	}

	var (
		exporter Exporter
		err      error
	)
	switch cfg.Exporter {
	case ExporterLog, "":
		exporter = NewLogExporter(logger.Named("spans"))
	case ExporterOTLP:
		exporter, err = NewOTLPExporter(ctx, cfg.Endpoint, cfg.Insecure, service)
	case ExporterStdout:
		exporter, err = NewStdoutExporter(stdout, service)
	case ExporterNone:
		exporter = discardExporter{}
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", cfg.Exporter)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("tracing initialized",
		zap.String("service", service),
		zap.String("exporter", cfg.Exporter),
	)

	return NewProvider(service, logger, exporter,
		WithQueueSize(cfg.QueueSize),
		WithBatchSize(cfg.BatchSize),
		WithFlushInterval(cfg.FlushInterval),
		WithExportTimeout(cfg.ExportTimeout),
		WithSampled(cfg.Sampled),
	), nil
}
