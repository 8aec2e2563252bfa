package tracing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/usertrace/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/tracing/tracingtest"
)

func TestStartSpanRoot(t *testing.T) {
	tracer, exporter := tracingtest.Setup(t, "test")

	span, ctx := tracer.StartSpan(context.Background(), "root")
	assert.Same(t, span, tracing.SpanFromContext(ctx))
	span.End()

	got := exporter.Named(t, "root")
	assert.True(t, got.Context.TraceID.IsValid())
	assert.True(t, got.Context.SpanID.IsValid())
	assert.False(t, got.HasParent())
	assert.True(t, got.Context.IsSampled())
	assert.Equal(t, "test", got.Service)
}

func TestSpanNesting(t *testing.T) {
	tracer, exporter := tracingtest.Setup(t, "test")

	root, ctx := tracer.StartSpan(context.Background(), "root")
	child, childCtx := tracer.StartSpan(ctx, "child")
	grandchild, _ := tracer.StartSpan(childCtx, "grandchild")
	grandchild.End()
	child.End()

	// Going back to ctx restores root as the current span.
	sibling, _ := tracer.StartSpan(ctx, "sibling")
	sibling.End()
	root.End()

	r := exporter.Named(t, "root")
	c := exporter.Named(t, "child")
	g := exporter.Named(t, "grandchild")
	s := exporter.Named(t, "sibling")

	tracingtest.RequireChildOf(t, r, c)
	tracingtest.RequireChildOf(t, c, g)
	tracingtest.RequireChildOf(t, r, s)

	// Spans close in LIFO order.
	names := []string{}
	for _, span := range exporter.Spans() {
		names = append(names, span.Name)
	}
	assert.Equal(t, []string{"grandchild", "child", "sibling", "root"}, names)
}

func TestStartSpanFromRemoteParent(t *testing.T) {
	tracer, exporter := tracingtest.Setup(t, "test")

	remote := tracing.SpanContext{
		TraceID: tracing.TraceID{0x4b, 0xf9, 0x2f, 0x35, 0x77, 0xb3, 0x4d, 0xa6, 0xa3, 0xce, 0x92, 0x9d, 0x0e, 0x0e, 0x47, 0x36},
		SpanID:  tracing.SpanID{0x00, 0xf0, 0x67, 0xaa, 0x0b, 0xa9, 0x02, 0xb7},
		Flags:   tracing.FlagsSampled,
	}
	ctx := tracing.ContextWithRemoteSpanContext(context.Background(), remote)

	span, _ := tracer.StartSpan(ctx, "server")
	span.End()

	got := exporter.Named(t, "server")
	assert.Equal(t, remote.TraceID, got.Context.TraceID)
	assert.Equal(t, remote.SpanID, got.Parent.SpanID)
	assert.True(t, got.Parent.Remote)
	assert.NotEqual(t, remote.SpanID, got.Context.SpanID)
}

func TestSampledFlagInherited(t *testing.T) {
	exporter := tracingtest.NewExporter()
	tracer := tracing.New("test", zap.NewNop(),
		tracing.WithExporter(exporter),
		tracing.WithSyncExport(),
		tracing.WithSampled(false),
	)

	root, ctx := tracer.StartSpan(context.Background(), "root")
	child, _ := tracer.StartSpan(ctx, "child")
	assert.False(t, child.SpanContext().IsSampled())
	child.End()
	root.End()

	assert.Empty(t, exporter.Spans(), "unsampled spans must not be exported")
}

func TestSpanAttributesStatusAndError(t *testing.T) {
	tracer, exporter := tracingtest.Setup(t, "test")

	span, _ := tracer.StartSpan(context.Background(), "op",
		tracing.WithAttributes(attribute.Int64("user.id", 5)),
	)
	span.SetAttributes(attribute.String("db.result", "FOUND"), attribute.String("db.result", "NOT_FOUND"))
	span.RecordError(errors.New("boom"))
	span.SetStatus(codes.Ok, "")
	span.SetStatus(codes.Error, "failed")
	span.End()

	got := exporter.Named(t, "op")
	assert.Equal(t, int64(5), tracingtest.Attr(got, "user.id"))
	assert.Equal(t, "NOT_FOUND", tracingtest.Attr(got, "db.result"))
	assert.Equal(t, tracing.Status{Code: codes.Error, Description: "failed"}, got.Status)
	require.NotNil(t, got.Exception)
	assert.Equal(t, "boom", got.Exception.Message)
	require.Len(t, got.Events, 1)
	assert.Equal(t, "exception", got.Events[0].Name)
}

func TestEndedSpanIsImmutable(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	exporter := tracingtest.NewExporter()
	tracer := tracing.New("test", zap.New(core), tracing.WithExporter(exporter), tracing.WithSyncExport())

	span, _ := tracer.StartSpan(context.Background(), "op")
	span.End()

	assert.NotPanics(t, func() {
		span.SetAttributes(attribute.String("late", "value"))
		span.SetStatus(codes.Error, "late")
		span.RecordError(errors.New("late"))
		span.End()
	})

	spans := exporter.Spans()
	require.Len(t, spans, 1, "a span is exported exactly once")
	assert.Nil(t, tracingtest.Attr(spans[0], "late"))
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assert.Equal(t, 4, logs.Len())
	assert.Equal(t, 1, logs.FilterMessage("span ended twice").Len())
}

func TestQueuedExportAndForceFlush(t *testing.T) {
	exporter := tracingtest.NewExporter()
	tracer := tracing.New("test", zap.NewNop(),
		tracing.WithExporter(exporter),
		tracing.WithFlushInterval(time.Hour),
		tracing.WithBatchSize(100),
	)

	for i := 0; i < 10; i++ {
		span, _ := tracer.StartSpan(context.Background(), "op")
		span.End()
	}

	require.NoError(t, tracer.ForceFlush(context.Background()))
	assert.Len(t, exporter.Spans(), 10)
	assert.Equal(t, uint64(10), tracer.Stats().Exported)

	require.NoError(t, tracer.Shutdown(context.Background()))
	assert.True(t, exporter.IsShutdown())
	assert.ErrorIs(t, tracer.ForceFlush(context.Background()), tracing.ErrTracerStopped)
}

func TestShutdownExportsPendingSpans(t *testing.T) {
	exporter := tracingtest.NewExporter()
	tracer := tracing.New("test", zap.NewNop(),
		tracing.WithExporter(exporter),
		tracing.WithFlushInterval(time.Hour),
	)

	span, _ := tracer.StartSpan(context.Background(), "op")
	span.End()

	require.NoError(t, tracer.Shutdown(context.Background()))
	require.NoError(t, tracer.Shutdown(context.Background()))
	assert.Len(t, exporter.Spans(), 1)

	// Spans ended after shutdown are dropped silently.
	late, _ := tracer.StartSpan(context.Background(), "late")
	late.End()
	assert.Len(t, exporter.Spans(), 1)
	assert.Equal(t, uint64(1), tracer.Stats().Dropped)
}

// blockingExporter holds every export until released
type blockingExporter struct {
	release chan struct{}
}

func (b *blockingExporter) ExportSpans(ctx context.Context, _ []tracing.SpanData) error {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}

func (b *blockingExporter) Shutdown(context.Context) error { return nil }

func TestFullQueueDropsSpans(t *testing.T) {
	exp := &blockingExporter{release: make(chan struct{})}
	tracer := tracing.New("test", zap.NewNop(),
		tracing.WithExporter(exp),
		tracing.WithQueueSize(1),
		tracing.WithBatchSize(1),
	)
	defer func() {
		close(exp.release)
		_ = tracer.Shutdown(context.Background())
	}()

	for i := 0; i < 20; i++ {
		span, _ := tracer.StartSpan(context.Background(), "op")
		span.End()
	}

	assert.Greater(t, tracer.Stats().Dropped, uint64(0))
}

type failingExporter struct{}

func (failingExporter) ExportSpans(context.Context, []tracing.SpanData) error {
	return errors.New("collector unreachable")
}

func (failingExporter) Shutdown(context.Context) error { return nil }

type panickingExporter struct{}

func (panickingExporter) ExportSpans(context.Context, []tracing.SpanData) error {
	panic("exporter bug")
}

func (panickingExporter) Shutdown(context.Context) error { return nil }

func TestExporterFailuresAreSwallowed(t *testing.T) {
	tests := []struct {
		name     string
		exporter tracing.Exporter
	}{
		{name: "error", exporter: failingExporter{}},
		{name: "panic", exporter: panickingExporter{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer := tracing.New("test", zap.NewNop(), tracing.WithExporter(tt.exporter), tracing.WithSyncExport())

			assert.NotPanics(t, func() {
				span, _ := tracer.StartSpan(context.Background(), "op")
				span.End()
			})
			assert.Equal(t, uint64(1), tracer.Stats().Failed)
		})
	}
}

func TestConcurrentRequestsKeepSeparateStacks(t *testing.T) {
	tracer, exporter := tracingtest.Setup(t, "test")

	const requests = 20
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			root, ctx := tracer.StartSpan(context.Background(), "request")
			child, _ := tracer.StartSpan(ctx, "store")
			child.End()
			root.End()
		}()
	}
	wg.Wait()

	byID := map[tracing.SpanID]tracing.SpanData{}
	for _, s := range exporter.Spans() {
		byID[s.Context.SpanID] = s
	}
	require.Len(t, byID, 2*requests)

	for _, s := range byID {
		if s.Name != "store" {
			continue
		}
		parent, ok := byID[s.Parent.SpanID]
		require.True(t, ok)
		tracingtest.RequireChildOf(t, parent, s)
	}
}

func TestNoopTracer(t *testing.T) {
	tracer := tracing.NewNoop()

	span, ctx := tracer.StartSpan(context.Background(), "op")
	assert.True(t, tracing.SpanContextFromContext(ctx).IsValid())
	span.End()

	assert.Equal(t, uint64(0), tracer.Stats().Exported)
}

func TestProviderLifecycle(t *testing.T) {
	exporter := tracingtest.NewExporter()
	provider := tracing.NewProvider("test", zap.NewNop(), exporter, tracing.WithFlushInterval(time.Hour))

	tracer := provider.Tracer()
	assert.Same(t, tracer, provider.Tracer())

	span, _ := tracer.StartSpan(context.Background(), "op")
	span.End()

	require.NoError(t, provider.ForceFlush(context.Background()))
	assert.Len(t, exporter.Spans(), 1)

	require.NoError(t, provider.Shutdown(context.Background()))
	require.NoError(t, provider.Shutdown(context.Background()))
	assert.True(t, exporter.IsShutdown())
}
