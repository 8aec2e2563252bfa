// Package user exposes the user store over gRPC.
//
// The service is described by a hand-written grpc.ServiceDesc and uses a
// JSON codec (sonic) selected through the "json" content subtype, so no
// generated protobuf code is needed. Trace context travels in the
// traceparent metadata key; see the tracing package interceptors.
package user
