package tracing

import (
	"context"
	"encoding/hex"
)

// TraceID is the 128-bit identifier shared by every span of one trace
type TraceID [16]byte

// SpanID is the 64-bit identifier of a single span
type SpanID [8]byte

// TraceFlags carries the W3C trace flags byte
type TraceFlags byte

// FlagsSampled marks a trace whose spans are exported
const FlagsSampled TraceFlags = 0x01

// IsValid reports whether the trace ID is non-zero
func (t TraceID) IsValid() bool {
	return t != TraceID{}
}

// String returns the lowercase hex form
func (t TraceID) String() string {
	return hex.EncodeToString(t[:])
}

// IsValid reports whether the span ID is non-zero
func (s SpanID) IsValid() bool {
	return s != SpanID{}
}

// String returns the lowercase hex form
func (s SpanID) String() string {
	return hex.EncodeToString(s[:])
}

// IsSampled reports whether the sampled bit is set
func (f TraceFlags) IsSampled() bool {
	return f&FlagsSampled == FlagsSampled
}

// SpanContext is the immutable causal identity of a span. It is the part of
// a span that crosses process boundaries.
type SpanContext struct {
	TraceID TraceID
	SpanID  SpanID
	Flags   TraceFlags
	// Remote is set on contexts decoded from the wire
	Remote bool
}

// IsValid reports whether both identifiers are set
func (sc SpanContext) IsValid() bool {
	return sc.TraceID.IsValid() && sc.SpanID.IsValid()
}

// IsSampled reports whether spans of this trace are exported
func (sc SpanContext) IsSampled() bool {
	return sc.Flags.IsSampled()
}

// Context keys for the active span and a propagated parent
type contextKey string

const (
	activeSpanKey    contextKey = "active_span"
	remoteContextKey contextKey = "remote_span_context"
)

// ContextWithSpan returns a copy of ctx in which span is the current span.
// The previous current span is restored by going back to the parent ctx.
func ContextWithSpan(ctx context.Context, span *Span) context.Context {
	return context.WithValue(ctx, activeSpanKey, span)
}

// SpanFromContext returns the current span, or nil
func SpanFromContext(ctx context.Context) *Span {
	if span, ok := ctx.Value(activeSpanKey).(*Span); ok {
		return span
	}
	return nil
}

// ContextWithRemoteSpanContext records a parent received from another
// process. Spans started from the returned context become its children.
func ContextWithRemoteSpanContext(ctx context.Context, sc SpanContext) context.Context {
	sc.Remote = true
	return context.WithValue(ctx, remoteContextKey, sc)
}

// SpanContextFromContext returns the identity new spans should descend
// from: the current span if any, otherwise a remote parent if any.
func SpanContextFromContext(ctx context.Context) SpanContext {
	if span := SpanFromContext(ctx); span != nil {
		return span.SpanContext()
	}
	if sc, ok := ctx.Value(remoteContextKey).(SpanContext); ok {
		return sc
	}
	return SpanContext{}
}
