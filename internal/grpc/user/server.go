package user

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	userdomain "github.com/GriffinCanCode/usertrace/internal/domain/user"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/logging"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/tracing"
)

// Server span names
const (
	SpanGetUserData     = "UserService/getUserData"
	SpanGetOrCreateUser = "UserService/getOrCreateUser"
)

// ErrInvalidUserID rejects negative user ids
var ErrInvalidUserID = errors.New("user id must not be negative")

// Server implements UserServiceServer on top of the user store
type Server struct {
	store   *userdomain.Store
	tracer  *tracing.Tracer
	logger  *logging.Logger
	timeout time.Duration
}

// NewServer creates the user service handler. A positive timeout bounds
// every request on top of the caller's deadline.
func NewServer(store *userdomain.Store, tracer *tracing.Tracer, logger *logging.Logger, timeout time.Duration) *Server {
	if tracer == nil {
		tracer = tracing.NewNoop()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		store:   store,
		tracer:  tracer,
		logger:  logger.Named("user-service"),
		timeout: timeout,
	}
}

// GetUserData returns the user's mobile number, or an empty number when the
// user does not exist
func (s *Server) GetUserData(ctx context.Context, req *GetUserDataRequest) (*GetUserDataResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp := &GetUserDataResponse{}
	err := tracing.WithSpan(ctx, s.tracer, SpanGetUserData, func(ctx context.Context, span *tracing.Span) error {
		span.SetAttributes(
			attribute.Int64("user.id", req.UserID),
			attribute.String("grpc.method", "getUserData"),
		)
		s.logger.WithSpan(ctx).Info("received getUserData request", zap.Int64("user_id", req.UserID))

		if req.UserID < 0 {
			return ErrInvalidUserID
		}

		result, err := s.store.LookupMobileNumber(ctx, req.UserID)
		if err != nil {
			return err
		}
		// The lookup finished but nobody is waiting for it anymore.
		if err := ctx.Err(); err != nil {
			return err
		}

		resp.MobileNumber = result.MobileNumber
		span.SetStatus(codes.Ok, "")
		return nil
	}, tracing.WithSpanKind(oteltrace.SpanKindServer))

	if err != nil {
		s.logger.WithSpan(ctx).Warn("getUserData failed", zap.Int64("user_id", req.UserID), zap.Error(err))
		return nil, toStatus(err)
	}
	return resp, nil
}

// GetOrCreateUser creates the user unless it exists and reports whether
// this call created it
func (s *Server) GetOrCreateUser(ctx context.Context, req *GetOrCreateUserRequest) (*GetOrCreateUserResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp := &GetOrCreateUserResponse{}
	err := tracing.WithSpan(ctx, s.tracer, SpanGetOrCreateUser, func(ctx context.Context, span *tracing.Span) error {
		span.SetAttributes(
			attribute.Int64("user.id", req.UserID),
			attribute.String("grpc.method", "getOrCreateUser"),
			attribute.String("mobile.number", req.MobileNumber),
		)
		s.logger.WithSpan(ctx).Info("received getOrCreateUser request",
			zap.Int64("user_id", req.UserID),
			zap.String("mobile_number", req.MobileNumber),
		)

		if req.UserID < 0 {
			return ErrInvalidUserID
		}

		isNew, err := s.store.GetOrCreate(ctx, req.UserID, req.MobileNumber)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		resp.IsNewUser = isNew
		span.SetStatus(codes.Ok, "")
		return nil
	}, tracing.WithSpanKind(oteltrace.SpanKindServer))

	if err != nil {
		s.logger.WithSpan(ctx).Warn("getOrCreateUser failed", zap.Int64("user_id", req.UserID), zap.Error(err))
		return nil, toStatus(err)
	}
	return resp, nil
}

func (s *Server) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// toStatus maps domain errors to gRPC status codes
func toStatus(err error) error {
	var code grpccodes.Code
	switch {
	case errors.Is(err, ErrInvalidUserID):
		code = grpccodes.InvalidArgument
	case errors.Is(err, context.DeadlineExceeded):
		code = grpccodes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = grpccodes.Canceled
	case errors.Is(err, userdomain.ErrStoreUnavailable), errors.Is(err, resilience.ErrCircuitOpen):
		code = grpccodes.Unavailable
	default:
		code = grpccodes.Internal
	}
	return status.Error(code, err.Error())
}
