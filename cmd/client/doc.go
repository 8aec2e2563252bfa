// Package main runs the user service demo client.
//
// The client opens one root span (client-root-ops), issues each call in its
// own child span (client-req1..N) and flushes all spans before exiting.
// Spans are reported as service grpc-client-app.
//
// Usage:
//
//	./client --target localhost:50051
//	./client --call get:2 --call create:11:9876543210 --trace-exporter stdout
package main
