// Package server assembles the user service process.
//
// New wires, from configuration:
//   - the span pipeline (service.name grpc-server-instrumentation)
//   - the storage backend, its breaker, metrics and seed users
//   - the gRPC server with the trace-extracting interceptor
//   - the admin HTTP router serving /health and /metrics
//
// Close stops the gRPC server gracefully, flushes pending spans and closes
// the store, in that order.
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.New(ctx, cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close(context.Background())
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
