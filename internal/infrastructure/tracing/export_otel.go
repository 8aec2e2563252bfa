package tracing

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// OTelExporter adapts an OpenTelemetry SDK exporter so spans reach any
// OTLP-compatible collector
type OTelExporter struct {
	exporter sdktrace.SpanExporter
	resource *resource.Resource
}

// NewOTelExporter wraps exp; service becomes the service.name resource
// attribute
func NewOTelExporter(exp sdktrace.SpanExporter, service string) *OTelExporter {
	return &OTelExporter{
		exporter: exp,
		resource: resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		),
	}
}

// NewOTLPExporter exports over OTLP/HTTP to endpoint (host:port)
func NewOTLPExporter(ctx context.Context, endpoint string, insecure bool, service string) (*OTelExporter, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return NewOTelExporter(exp, service), nil
}

// NewStdoutExporter pretty-prints spans to w
func NewStdoutExporter(w io.Writer, service string) (*OTelExporter, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}
	return NewOTelExporter(exp, service), nil
}

// ExportSpans converts spans to SDK snapshots and exports them
func (e *OTelExporter) ExportSpans(ctx context.Context, spans []SpanData) error {
	stubs := make(tracetest.SpanStubs, 0, len(spans))
	for _, span := range spans {
		stubs = append(stubs, e.toStub(span))
	}
	return e.exporter.ExportSpans(ctx, stubs.Snapshots())
}

// Shutdown shuts the wrapped exporter down
func (e *OTelExporter) Shutdown(ctx context.Context) error {
	return e.exporter.Shutdown(ctx)
}

func (e *OTelExporter) toStub(span SpanData) tracetest.SpanStub {
	events := make([]sdktrace.Event, 0, len(span.Events))
	for _, ev := range span.Events {
		events = append(events, sdktrace.Event{
			Name:       ev.Name,
			Time:       ev.Time,
			Attributes: ev.Attributes,
		})
	}

	var parent oteltrace.SpanContext
	if span.HasParent() {
		parent = toOTelSpanContext(span.Parent)
	}

	return tracetest.SpanStub{
		Name:        span.Name,
		SpanContext: toOTelSpanContext(span.Context),
		Parent:      parent,
		SpanKind:    span.Kind,
		StartTime:   span.StartTime,
		EndTime:     span.EndTime,
		Attributes:  span.Attributes,
		Events:      events,
		Status: sdktrace.Status{
			Code:        span.Status.Code,
			Description: span.Status.Description,
		},
		Resource: e.resource,
	}
}

func toOTelSpanContext(sc SpanContext) oteltrace.SpanContext {
	return oteltrace.NewSpanContext(oteltrace.SpanContextConfig{
		TraceID:    oteltrace.TraceID(sc.TraceID),
		SpanID:     oteltrace.SpanID(sc.SpanID),
		TraceFlags: oteltrace.TraceFlags(sc.Flags),
		Remote:     sc.Remote,
	})
}
