// Package main runs the user service.
//
// The server answers GetUserData and GetOrCreateUser over gRPC, joins the
// caller's trace through the traceparent header and exports its spans as
// service grpc-server-instrumentation.
//
// Configuration:
//   - Environment variables (GRPC_ADDR, STORE_KIND, TRACE_EXPORTER, ...)
//   - CLI flags (override env vars)
//
// Usage:
//
//	./server --addr 0.0.0.0:50051 --store sqlite --store-dsn file:users.db
//	./server --trace-exporter otlp --otlp-endpoint collector:4318
//
// Signals:
//   - SIGINT, SIGTERM: stop accepting calls, flush spans, close the store
package main
