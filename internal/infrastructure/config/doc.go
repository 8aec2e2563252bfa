// Package config provides 12-factor configuration for the user service and
// its client.
//
// Configuration is loaded from environment variables with defaults. The
// commands let pflag flags override individual values.
//
// Configuration Sections:
//   - Server: gRPC and admin listen addresses, per-request timeout
//   - Client: user service target, per-call timeout, circuit breaker
//   - Store: backend kind (memory, sqlite, etcd, consul), DSN or endpoints,
//     read cache size, seed users
//   - Tracing: service name, exporter kind (log, otlp, stdout, none),
//     export queue and batch settings
//   - Logging: log level and output format
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	seed, err := config.ParseSeed(cfg.Store.Seed)
//
// Environment Variables:
//   - GRPC_ADDR, ADMIN_ADDR, REQUEST_TIMEOUT
//   - USER_SERVICE_ADDR, CALL_TIMEOUT, BREAKER_MAX_FAILURES, BREAKER_TIMEOUT
//   - STORE_KIND, STORE_DSN, STORE_ENDPOINTS, STORE_PREFIX, STORE_CACHE_SIZE, STORE_SEED
//   - SERVICE_NAME, TRACE_EXPORTER, OTLP_ENDPOINT, TRACE_BATCH_SIZE, TRACE_SAMPLED
//   - LOG_LEVEL, LOG_DEV
package config
