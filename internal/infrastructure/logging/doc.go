// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: colored console output
//
// Logs default to stderr. Inside a request, WithSpan attaches the current
// trace_id and span_id so log lines can be joined with exported spans:
//
//	log := logger.WithSpan(ctx)
//	log.Info("user created", zap.Int64("user_id", id))
package logging
