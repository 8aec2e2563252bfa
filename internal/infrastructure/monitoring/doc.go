/*
Package monitoring provides Prometheus metrics and the admin HTTP router.

# Metrics

  - gRPC calls by side (client or server), method and status code
  - user store operations by outcome (FOUND, NOT_FOUND, EXISTS, INSERTED, ERROR)
  - span pipeline counters (exported, dropped, failed, queued)
  - admin HTTP requests and process uptime

Metrics register on an explicit registry so tests can build isolated
collectors.

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	metrics.TrackTracer(tracer)

	// gRPC interceptors report through ObserveRPC
	tracing.GRPCUnaryInterceptor(logger, metrics)

	// Admin endpoints
	router := monitoring.Router(metrics, reg, map[string]monitoring.HealthCheck{
		"store": store.Ping,
	})
*/
package monitoring
