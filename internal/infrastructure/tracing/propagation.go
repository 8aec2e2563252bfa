package tracing

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"google.golang.org/grpc/metadata"
)

// TraceparentHeader is the W3C trace-context header, lowercase as gRPC
// metadata requires
const TraceparentHeader = "traceparent"

const (
	traceparentVersion = "00"
	traceIDHexLen      = 32
	spanIDHexLen       = 16
	flagsHexLen        = 2
)

// Inject encodes sc as version-traceId-spanId-flags. An invalid context
// encodes to the empty string.
func Inject(sc SpanContext) string {
	if !sc.IsValid() {
		return ""
	}
	return fmt.Sprintf("%s-%s-%s-%02x", traceparentVersion, sc.TraceID, sc.SpanID, byte(sc.Flags))
}

// Extract decodes a traceparent value. Any malformed input yields ok=false
// so the receiver starts a new root trace instead of failing.
func Extract(header string) (sc SpanContext, ok bool) {
	parts := strings.Split(strings.TrimSpace(header), "-")
	if len(parts) != 4 {
		return SpanContext{}, false
	}
	version, traceHex, spanHex, flagsHex := parts[0], parts[1], parts[2], parts[3]

	if version != traceparentVersion {
		return SpanContext{}, false
	}
	if !isLowerHex(traceHex, traceIDHexLen) || !isLowerHex(spanHex, spanIDHexLen) || !isLowerHex(flagsHex, flagsHexLen) {
		return SpanContext{}, false
	}

	if _, err := hex.Decode(sc.TraceID[:], []byte(traceHex)); err != nil {
		return SpanContext{}, false
	}
	if _, err := hex.Decode(sc.SpanID[:], []byte(spanHex)); err != nil {
		return SpanContext{}, false
	}
	var flags [1]byte
	if _, err := hex.Decode(flags[:], []byte(flagsHex)); err != nil {
		return SpanContext{}, false
	}

	sc.Flags = TraceFlags(flags[0]) & FlagsSampled
	sc.Remote = true
	if !sc.IsValid() {
		return SpanContext{}, false
	}
	return sc, true
}

func isLowerHex(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// InjectOutgoing adds the current span context of ctx to the outgoing gRPC
// metadata. Without a valid span the context is returned unchanged.
func InjectOutgoing(ctx context.Context) context.Context {
	header := Inject(SpanContextFromContext(ctx))
	if header == "" {
		return ctx
	}
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(TraceparentHeader, header)
	return metadata.NewOutgoingContext(ctx, md)
}

// ExtractIncoming reads a propagated parent from incoming gRPC metadata and
// stores it in ctx. Missing or malformed headers leave ctx unchanged.
func ExtractIncoming(ctx context.Context) (context.Context, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx, false
	}
	vals := md.Get(TraceparentHeader)
	if len(vals) == 0 {
		return ctx, false
	}
	sc, ok := Extract(vals[0])
	if !ok {
		return ctx, false
	}
	return ContextWithRemoteSpanContext(ctx, sc), true
}
