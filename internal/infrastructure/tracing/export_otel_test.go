package tracing_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/usertrace/internal/infrastructure/tracing"
)

func TestOTelExporterConvertsSpans(t *testing.T) {
	mem := tracetest.NewInMemoryExporter()
	tracer := tracing.New("grpc-server-instrumentation", zap.NewNop(),
		tracing.WithExporter(tracing.NewOTelExporter(mem, "grpc-server-instrumentation")),
		tracing.WithSyncExport(),
	)

	root, ctx := tracer.StartSpan(context.Background(), "root")
	child, _ := tracer.StartSpan(ctx, "child")
	child.SetAttributes(attribute.String("db.table", "users"))
	child.RecordError(errors.New("connection refused"))
	child.SetStatus(codes.Error, "SQL error")
	child.End()
	root.End()

	stubs := mem.GetSpans()
	require.Len(t, stubs, 2)

	c, r := stubs[0], stubs[1]
	assert.Equal(t, "child", c.Name)
	assert.Equal(t, r.SpanContext.TraceID(), c.SpanContext.TraceID())
	assert.Equal(t, r.SpanContext.SpanID(), c.Parent.SpanID())
	assert.False(t, r.Parent.IsValid())
	assert.Equal(t, codes.Error, c.Status.Code)
	assert.Equal(t, "SQL error", c.Status.Description)
	require.Len(t, c.Events, 1)
	assert.Equal(t, "exception", c.Events[0].Name)
	assert.Contains(t, c.Attributes, attribute.String("db.table", "users"))

	service, ok := c.Resource.Set().Value("service.name")
	require.True(t, ok)
	assert.Equal(t, "grpc-server-instrumentation", service.AsString())
}

func TestStdoutExporter(t *testing.T) {
	var buf bytes.Buffer
	exp, err := tracing.NewStdoutExporter(&buf, "grpc-client-app")
	require.NoError(t, err)

	tracer := tracing.New("grpc-client-app", zap.NewNop(), tracing.WithExporter(exp), tracing.WithSyncExport())
	span, _ := tracer.StartSpan(context.Background(), "client-root-ops")
	span.End()

	assert.Contains(t, buf.String(), "client-root-ops")
	assert.Contains(t, buf.String(), span.SpanContext().TraceID.String())
}

func TestLogExporter(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	tracer := tracing.New("test", zap.NewNop(),
		tracing.WithExporter(tracing.NewLogExporter(zap.New(core))),
		tracing.WithSyncExport(),
	)

	ok, _ := tracer.StartSpan(context.Background(), "ok")
	ok.End()
	failed, _ := tracer.StartSpan(context.Background(), "failed")
	failed.SetStatus(codes.Error, "boom")
	failed.End()

	assert.Equal(t, 1, logs.FilterMessage("span completed").Len())
	assert.Equal(t, 1, logs.FilterMessage("span completed with error").Len())
}

func TestMultiExporter(t *testing.T) {
	a, b := tracetest.NewInMemoryExporter(), tracetest.NewInMemoryExporter()
	multi := tracing.MultiExporter{
		tracing.NewOTelExporter(a, "test"),
		tracing.NewOTelExporter(b, "test"),
	}
	tracer := tracing.New("test", zap.NewNop(), tracing.WithExporter(multi), tracing.WithSyncExport())

	span, _ := tracer.StartSpan(context.Background(), "op")
	span.End()

	assert.Len(t, a.GetSpans(), 1)
	assert.Len(t, b.GetSpans(), 1)
	assert.NoError(t, multi.Shutdown(context.Background()))
}
