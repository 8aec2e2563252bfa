// Package tracingtest provides an in-memory exporter and helpers for
// asserting on spans in unit tests.
package tracingtest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/usertrace/internal/infrastructure/tracing"
)

// Setup returns a synchronous tracer whose spans are recorded in memory.
// The tracer is shut down when the test ends.
func Setup(t testing.TB, service string) (*tracing.Tracer, *Exporter) {
	t.Helper()

	exporter := NewExporter()
	tracer := tracing.New(service, zap.NewNop(),
		tracing.WithExporter(exporter),
		tracing.WithSyncExport(),
	)

	t.Cleanup(func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			t.Errorf("Error shutting down tracer: %v", err)
		}
	})

	return tracer, exporter
}

// Exporter records exported spans in memory
type Exporter struct {
	mu       sync.Mutex
	spans    []tracing.SpanData
	shutdown bool
}

// NewExporter creates an empty in-memory exporter
func NewExporter() *Exporter {
	return &Exporter{}
}

// ExportSpans appends spans in export order
func (e *Exporter) ExportSpans(_ context.Context, spans []tracing.SpanData) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spans = append(e.spans, spans...)
	return nil
}

// Shutdown marks the exporter as shut down
func (e *Exporter) Shutdown(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shutdown = true
	return nil
}

// IsShutdown reports whether Shutdown was called
func (e *Exporter) IsShutdown() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shutdown
}

// Spans returns a copy of the recorded spans
func (e *Exporter) Spans() []tracing.SpanData {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]tracing.SpanData, len(e.spans))
	copy(out, e.spans)
	return out
}

// Reset forgets recorded spans
func (e *Exporter) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spans = nil
}

// Named returns the single recorded span called name and fails the test if
// there is not exactly one
func (e *Exporter) Named(t testing.TB, name string) tracing.SpanData {
	t.Helper()
	var found []tracing.SpanData
	for _, s := range e.Spans() {
		if s.Name == name {
			found = append(found, s)
		}
	}
	require.Len(t, found, 1, "expected exactly one span named %q", name)
	return found[0]
}

// Attr returns the value of attribute key on span, or nil
func Attr(span tracing.SpanData, key string) interface{} {
	for _, a := range span.Attributes {
		if string(a.Key) == key {
			return a.Value.AsInterface()
		}
	}
	return nil
}

// RequireChildOf asserts child descends directly from parent and closed no
// later than it
func RequireChildOf(t testing.TB, parent, child tracing.SpanData) {
	t.Helper()
	require.Equal(t, parent.Context.TraceID, child.Context.TraceID, "%s and %s are in different traces", parent.Name, child.Name)
	require.Equal(t, parent.Context.SpanID, child.Parent.SpanID, "%s is not a child of %s", child.Name, parent.Name)
	require.False(t, child.StartTime.Before(parent.StartTime), "%s started before its parent %s", child.Name, parent.Name)
	require.False(t, child.EndTime.After(parent.EndTime), "%s ended after its parent %s", child.Name, parent.Name)
}
