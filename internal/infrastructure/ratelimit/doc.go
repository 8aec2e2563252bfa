// Package ratelimit provides per-peer token bucket limiting for the gRPC
// server and the admin HTTP router.
package ratelimit
