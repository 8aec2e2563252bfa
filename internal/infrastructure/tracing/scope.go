package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/codes"
)

// WithSpan runs fn inside a new span and ends the span on every exit path.
// A returned error is recorded with ERROR status; a panic is recorded, the
// span is ended, and the panic continues.
func WithSpan(
	ctx context.Context,
	tracer *Tracer,
	name string,
	fn func(ctx context.Context, span *Span) error,
	opts ...SpanOption,
) (err error) {
	span, ctx := tracer.StartSpan(ctx, name, opts...)

	defer func() {
		if r := recover(); r != nil {
			span.RecordError(fmt.Errorf("panic: %v", r))
			span.SetStatus(codes.Error, "panic")
			span.End()
			panic(r)
		}
		span.End()
	}()

	if err = fn(ctx, span); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
