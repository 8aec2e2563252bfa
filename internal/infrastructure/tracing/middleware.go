package tracing

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// RPCObserver receives the outcome of every intercepted call
type RPCObserver interface {
	ObserveRPC(side, method, code string, duration time.Duration)
}

// GRPCUnaryInterceptor extracts the propagated trace context from incoming
// metadata so the handler's spans join the caller's trace. A missing or
// malformed header starts a new root trace.
func GRPCUnaryInterceptor(logger *zap.Logger, observer RPCObserver) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		ctx, propagated := ExtractIncoming(ctx)
		if !propagated {
			logger.Debug("no trace context on request, starting new trace",
				zap.String("method", info.FullMethod),
			)
		}

		start := time.Now()
		resp, err := handler(ctx, req)

		if observer != nil {
			observer.ObserveRPC("server", info.FullMethod, status.Code(err).String(), time.Since(start))
		}
		return resp, err
	}
}

// GRPCClientInterceptor injects the current span context into outgoing
// metadata
func GRPCClientInterceptor(observer RPCObserver) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		ctx = InjectOutgoing(ctx)

		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)

		if observer != nil {
			observer.ObserveRPC("client", method, status.Code(err).String(), time.Since(start))
		}
		return err
	}
}
