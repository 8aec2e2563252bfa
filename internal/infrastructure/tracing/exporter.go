package tracing

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Exporter ships finished spans out of process. Implementations must be safe
// for concurrent use; batching and retry are their own concern.
type Exporter interface {
	ExportSpans(ctx context.Context, spans []SpanData) error
	Shutdown(ctx context.Context) error
}

type discardExporter struct{}

func (discardExporter) ExportSpans(context.Context, []SpanData) error { return nil }
func (discardExporter) Shutdown(context.Context) error                { return nil }

// LogExporter writes finished spans as structured log lines
type LogExporter struct {
	logger *zap.Logger
}

// NewLogExporter creates a LogExporter
func NewLogExporter(logger *zap.Logger) *LogExporter {
	return &LogExporter{logger: logger}
}

// ExportSpans logs each span
func (e *LogExporter) ExportSpans(_ context.Context, spans []SpanData) error {
	for _, span := range spans {
		fields := []zap.Field{
			zap.String("trace_id", span.Context.TraceID.String()),
			zap.String("span_id", span.Context.SpanID.String()),
			zap.String("operation", span.Name),
			zap.Duration("duration", span.Duration()),
			zap.String("service", span.Service),
		}

		if span.HasParent() {
			fields = append(fields, zap.String("parent_id", span.Parent.SpanID.String()))
		}
		for _, a := range span.Attributes {
			fields = append(fields, zap.Any(string(a.Key), a.Value.AsInterface()))
		}

		if span.Status.Code == codes.Error {
			if span.Exception != nil {
				fields = append(fields, zap.String("exception", span.Exception.Message))
			}
			e.logger.Error("span completed with error", append(fields, zap.String("status", span.Status.Description))...)
		} else {
			e.logger.Info("span completed", fields...)
		}
	}
	return nil
}

// Shutdown flushes the logger
func (e *LogExporter) Shutdown(context.Context) error {
	_ = e.logger.Sync()
	return nil
}

// MultiExporter fans spans out to several exporters
type MultiExporter []Exporter

// ExportSpans exports to every exporter and joins their errors
func (m MultiExporter) ExportSpans(ctx context.Context, spans []SpanData) error {
	var errs []error
	for _, e := range m {
		if err := e.ExportSpans(ctx, spans); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Shutdown shuts every exporter down
func (m MultiExporter) Shutdown(ctx context.Context) error {
	var errs []error
	for _, e := range m {
		if err := e.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
