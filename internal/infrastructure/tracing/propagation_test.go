package tracing_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/metadata"

	"github.com/GriffinCanCode/usertrace/internal/infrastructure/tracing"
)

var sampleContext = tracing.SpanContext{
	TraceID: tracing.TraceID{0x4b, 0xf9, 0x2f, 0x35, 0x77, 0xb3, 0x4d, 0xa6, 0xa3, 0xce, 0x92, 0x9d, 0x0e, 0x0e, 0x47, 0x36},
	SpanID:  tracing.SpanID{0x00, 0xf0, 0x67, 0xaa, 0x0b, 0xa9, 0x02, 0xb7},
	Flags:   tracing.FlagsSampled,
}

func TestInjectFormat(t *testing.T) {
	assert.Equal(t,
		"00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
		tracing.Inject(sampleContext),
	)

	unsampled := sampleContext
	unsampled.Flags = 0
	assert.Equal(t,
		"00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-00",
		tracing.Inject(unsampled),
	)

	assert.Empty(t, tracing.Inject(tracing.SpanContext{}))
}

func TestInjectExtractRoundTrip(t *testing.T) {
	for _, flags := range []tracing.TraceFlags{0, tracing.FlagsSampled} {
		sc := sampleContext
		sc.Flags = flags

		got, ok := tracing.Extract(tracing.Inject(sc))
		require.True(t, ok)
		assert.Equal(t, sc.TraceID, got.TraceID)
		assert.Equal(t, sc.SpanID, got.SpanID)
		assert.Equal(t, sc.IsSampled(), got.IsSampled())
		assert.True(t, got.Remote)
	}
}

func TestExtractMalformed(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "garbage", header: "garbage"},
		{name: "empty", header: ""},
		{name: "too short", header: "00-tooshort-1-1"},
		{name: "too few segments", header: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7"},
		{name: "too many segments", header: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01-extra"},
		{name: "unknown version", header: "01-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"},
		{name: "forbidden version", header: "ff-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"},
		{name: "uppercase hex", header: "00-4BF92F3577B34DA6A3CE929D0E0E4736-00f067aa0ba902b7-01"},
		{name: "non hex trace id", header: "00-4bf92f3577b34da6a3ce929d0e0e473z-00f067aa0ba902b7-01"},
		{name: "zero trace id", header: "00-00000000000000000000000000000000-00f067aa0ba902b7-01"},
		{name: "zero span id", header: "00-4bf92f3577b34da6a3ce929d0e0e4736-0000000000000000-01"},
		{name: "wide flags", header: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				sc, ok := tracing.Extract(tt.header)
				assert.False(t, ok)
				assert.False(t, sc.IsValid())
			})
		})
	}
}

// The header must be readable by the standard W3C propagator and vice versa.
func TestInteroperableWithW3CPropagator(t *testing.T) {
	w3c := propagation.TraceContext{}

	carrier := propagation.MapCarrier{tracing.TraceparentHeader: tracing.Inject(sampleContext)}
	otelSC := oteltrace.SpanContextFromContext(w3c.Extract(context.Background(), carrier))
	require.True(t, otelSC.IsValid())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", otelSC.TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", otelSC.SpanID().String())
	assert.True(t, otelSC.IsSampled())

	out := propagation.MapCarrier{}
	w3c.Inject(oteltrace.ContextWithSpanContext(context.Background(), otelSC), out)
	got, ok := tracing.Extract(out.Get(tracing.TraceparentHeader))
	require.True(t, ok)
	assert.Equal(t, sampleContext.TraceID, got.TraceID)
	assert.Equal(t, sampleContext.SpanID, got.SpanID)
}

func TestMetadataPropagation(t *testing.T) {
	tracer := tracing.NewNoop()
	span, ctx := tracer.StartSpan(context.Background(), "client-req1")
	defer span.End()

	ctx = metadata.AppendToOutgoingContext(ctx, "x-request", "1")
	out := tracing.InjectOutgoing(ctx)

	md, ok := metadata.FromOutgoingContext(out)
	require.True(t, ok)
	assert.Equal(t, []string{"1"}, md.Get("x-request"))
	require.Len(t, md.Get(tracing.TraceparentHeader), 1)

	in := metadata.NewIncomingContext(context.Background(), md)
	extracted, ok := tracing.ExtractIncoming(in)
	require.True(t, ok)

	sc := tracing.SpanContextFromContext(extracted)
	assert.Equal(t, span.SpanContext().TraceID, sc.TraceID)
	assert.Equal(t, span.SpanContext().SpanID, sc.SpanID)
	assert.True(t, sc.Remote)
}

func TestMetadataPropagationWithoutSpan(t *testing.T) {
	out := tracing.InjectOutgoing(context.Background())
	_, ok := metadata.FromOutgoingContext(out)
	assert.False(t, ok)

	in := metadata.NewIncomingContext(context.Background(), metadata.Pairs(tracing.TraceparentHeader, "garbage"))
	ctx, ok := tracing.ExtractIncoming(in)
	assert.False(t, ok)
	assert.False(t, tracing.SpanContextFromContext(ctx).IsValid())
}

func TestTraceIDString(t *testing.T) {
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", sampleContext.TraceID.String())
	assert.Len(t, strings.Split(tracing.Inject(sampleContext), "-"), 4)
}
