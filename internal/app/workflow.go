package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/usertrace/internal/infrastructure/logging"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/tracing"
)

// RootSpanName is the span every workflow run hangs off
const RootSpanName = "client-root-ops"

// Operation names a user service call
type Operation string

const (
	OpGetUserData     Operation = "get"
	OpGetOrCreateUser Operation = "create"
)

// Call is one request in a workflow
type Call struct {
	Op           Operation
	UserID       int64
	MobileNumber string
}

// String renders the call in the form ParseCall accepts
func (c Call) String() string {
	if c.Op == OpGetOrCreateUser {
		return fmt.Sprintf("%s:%d:%s", c.Op, c.UserID, c.MobileNumber)
	}
	return fmt.Sprintf("%s:%d", c.Op, c.UserID)
}

// ParseCall parses "get:<id>" or "create:<id>:<mobile>"; the mobile number
// may be empty
func ParseCall(s string) (Call, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 3)
	if len(parts) < 2 {
		return Call{}, fmt.Errorf("invalid call %q: want get:<id> or create:<id>:<mobile>", s)
	}

	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Call{}, fmt.Errorf("invalid user id in %q: %w", s, err)
	}

	switch Operation(parts[0]) {
	case OpGetUserData:
		if len(parts) != 2 {
			return Call{}, fmt.Errorf("invalid call %q: get takes only a user id", s)
		}
		return Call{Op: OpGetUserData, UserID: id}, nil
	case OpGetOrCreateUser:
		call := Call{Op: OpGetOrCreateUser, UserID: id}
		if len(parts) == 3 {
			call.MobileNumber = parts[2]
		}
		return call, nil
	default:
		return Call{}, fmt.Errorf("unknown operation %q in %q", parts[0], s)
	}
}

// ParseCalls parses every entry with ParseCall
func ParseCalls(specs []string) ([]Call, error) {
	calls := make([]Call, 0, len(specs))
	for _, s := range specs {
		call, err := ParseCall(s)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return calls, nil
}

// DefaultCalls is the demo sequence: an existing user, a creation, a
// missing user and a second creation
func DefaultCalls() []Call {
	return []Call{
		{Op: OpGetUserData, UserID: 2},
		{Op: OpGetOrCreateUser, UserID: 0, MobileNumber: "1234567890"},
		{Op: OpGetUserData, UserID: 5},
		{Op: OpGetOrCreateUser, UserID: 11, MobileNumber: "9876543210"},
	}
}

// UserClient interface for dependency injection
type UserClient interface {
	GetUserData(ctx context.Context, userID int64) (string, error)
	GetOrCreateUser(ctx context.Context, userID int64, mobileNumber string) (bool, error)
}

// Result is the outcome of one call
type Result struct {
	Call         Call
	MobileNumber string
	IsNewUser    bool
	Err          error
}

// Workflow issues a sequence of calls under one trace
type Workflow struct {
	client UserClient
	tracer *tracing.Tracer
	logger *logging.Logger
}

// NewWorkflow creates a workflow over client
func NewWorkflow(client UserClient, tracer *tracing.Tracer, logger *logging.Logger) *Workflow {
	if tracer == nil {
		tracer = tracing.NewNoop()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Workflow{
		client: client,
		tracer: tracer,
		logger: logger.Named("workflow"),
	}
}

// Run issues calls in order under a root span, each in its own child span
// client-req1..N. A failed call is recorded and the run moves on; every
// span is ended before Run returns. The returned error joins all call
// failures.
func (w *Workflow) Run(ctx context.Context, calls []Call) ([]Result, error) {
	root, ctx := w.tracer.StartSpan(ctx, RootSpanName, tracing.WithNewRoot())
	defer root.End()

	results := make([]Result, 0, len(calls))
	var errs []error

	for i, call := range calls {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		result := w.runCall(ctx, i+1, call)
		results = append(results, result)
		if result.Err != nil {
			errs = append(errs, result.Err)
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		root.SetStatus(codes.Error, fmt.Sprintf("%d calls failed", len(errs)))
	} else {
		root.SetStatus(codes.Ok, "")
	}
	return results, err
}

func (w *Workflow) runCall(ctx context.Context, n int, call Call) Result {
	result := Result{Call: call}
	name := fmt.Sprintf("client-req%d", n)

	result.Err = tracing.WithSpan(ctx, w.tracer, name, func(ctx context.Context, span *tracing.Span) error {
		span.SetAttributes(
			attribute.String("rpc.operation", string(call.Op)),
			attribute.Int64("user.id", call.UserID),
		)
		log := w.logger.WithSpan(ctx)

		var err error
		switch call.Op {
		case OpGetUserData:
			result.MobileNumber, err = w.client.GetUserData(ctx, call.UserID)
		case OpGetOrCreateUser:
			result.IsNewUser, err = w.client.GetOrCreateUser(ctx, call.UserID, call.MobileNumber)
		default:
			err = fmt.Errorf("unknown operation %q", call.Op)
		}
		if err != nil {
			log.Warn("call failed", zap.String("call", call.String()), zap.Error(err))
			return err
		}

		log.Info("call completed",
			zap.String("call", call.String()),
			zap.String("mobile_number", result.MobileNumber),
			zap.Bool("is_new_user", result.IsNewUser),
		)
		span.SetStatus(codes.Ok, "")
		return nil
	}, tracing.WithSpanKind(oteltrace.SpanKindClient))

	return result
}
