/*
Package tracing provides distributed tracing across the user service client
and server.

# Overview

A Tracer creates spans that form one tree per client operation sequence.
Each span carries a SpanContext (128-bit trace id, 64-bit span id, sampled
flag) and a reference to its parent. The current span travels in
context.Context, so every request goroutine has its own span stack: starting
a span pushes it onto the returned context and going back to the parent
context pops it.

# Propagation

Span contexts cross the RPC boundary as a W3C traceparent value in gRPC
metadata:

	00-{32 hex trace id}-{16 hex span id}-{2 hex flags}

Malformed or missing headers never fail a request; the server starts a new
root trace instead.

# Usage

	tracer := tracing.New("grpc-server", logger, tracing.WithExporter(exp))

	// gRPC server interceptor
	server := grpc.NewServer(
		grpc.UnaryInterceptor(tracing.GRPCUnaryInterceptor(logger, metrics)),
	)

	// gRPC client interceptor
	conn, err := grpc.NewClient(addr,
		grpc.WithUnaryInterceptor(tracing.GRPCClientInterceptor(metrics)),
	)

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "operation")
	defer span.End()

	span.SetAttributes(attribute.String("key", "value"))

# Export

Ended spans are queued and exported in batches by a background goroutine.
A full queue drops spans with a warning; exporter errors are logged. Neither
is ever returned to the operation being traced.
*/
package tracing
