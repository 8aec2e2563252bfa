package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/usertrace/internal/infrastructure/logging"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/storage"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/tracing"
)

// ErrStoreUnavailable marks a backend failure (connectivity, transaction,
// open circuit). It is never used for a lookup miss.
var ErrStoreUnavailable = errors.New("user store unavailable")

// TableName is reported as db.table on store spans
const TableName = "users"

// Span names
const (
	SpanLookup      = "db.getMobileNumberByUserId"
	SpanGetOrCreate = "db.getOrCreateAndCheckIsNew"
)

// Outcome of a lookup
type Outcome int

const (
	NotFound Outcome = iota
	Found
)

// String returns the db.result value for the outcome
func (o Outcome) String() string {
	if o == Found {
		return "FOUND"
	}
	return "NOT_FOUND"
}

// LookupResult separates "no such user" from a store failure, which is
// returned as an error instead
type LookupResult struct {
	Outcome      Outcome
	MobileNumber string
}

// Found reports whether the user exists
func (r LookupResult) Found() bool {
	return r.Outcome == Found
}

// Store implements user lookup and find-or-create on top of a storage
// backend. Each operation runs in its own span, a child of the span in ctx.
type Store struct {
	backend storage.Backend
	tracer  *tracing.Tracer
	logger  *logging.Logger
	breaker *resilience.Breaker
	metrics *monitoring.Metrics
	now     func() time.Time
}

// NewStore creates a store over backend
func NewStore(backend storage.Backend, tracer *tracing.Tracer, logger *logging.Logger) *Store {
	if tracer == nil {
		tracer = tracing.NewNoop()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		backend: backend,
		tracer:  tracer,
		logger:  logger.Named("user-store"),
		now:     time.Now,
	}
}

// WithBreaker routes backend calls through breaker
func (s *Store) WithBreaker(breaker *resilience.Breaker) *Store {
	s.breaker = breaker
	return s
}

// WithMetrics adds metrics tracking to the store
func (s *Store) WithMetrics(metrics *monitoring.Metrics) *Store {
	s.metrics = metrics
	return s
}

// NewBreaker returns a breaker for store backends. Lookup misses and caller
// cancellation do not count as failures.
func NewBreaker(maxFailures uint32, openFor time.Duration, logger *logging.Logger) *resilience.Breaker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return resilience.New("user-store", resilience.Settings{
		Timeout: openFor,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return resilience.DefaultIsSuccessful(err) || errors.Is(err, storage.ErrNotFound)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// LookupMobileNumber returns the mobile number stored for userID. A missing
// user is a NotFound result, not an error.
func (s *Store) LookupMobileNumber(ctx context.Context, userID int64) (LookupResult, error) {
	var result LookupResult

	err := tracing.WithSpan(ctx, s.tracer, SpanLookup, func(ctx context.Context, span *tracing.Span) error {
		span.SetAttributes(
			attribute.String("db.table", TableName),
			attribute.String("db.operation", "SELECT"),
			attribute.Int64("db.user_id", userID),
		)
		timer := monitoring.NewTimer(s.metrics, "lookup")

		var rec storage.Record
		err := s.call(ctx, func(ctx context.Context) error {
			var err error
			rec, err = s.backend.Get(ctx, userID)
			return err
		})

		switch {
		case errors.Is(err, storage.ErrNotFound):
			result = LookupResult{Outcome: NotFound}
		case err != nil:
			timer.Stop("ERROR")
			return s.fail(ctx, "lookup", userID, err)
		default:
			result = LookupResult{Outcome: Found, MobileNumber: rec.MobileNumber}
			span.SetAttributes(attribute.String("db.mobile_number_found", rec.MobileNumber))
		}

		span.SetAttributes(attribute.String("db.result", result.Outcome.String()))
		span.SetStatus(codes.Ok, "")
		timer.Stop(result.Outcome.String())
		return nil
	})

	return result, err
}

// GetOrCreate creates the user unless it exists and reports whether this
// call created it. Across concurrent calls for one unseen userID exactly one
// returns true. An existing record is never modified, whatever mobileNumber
// is passed.
func (s *Store) GetOrCreate(ctx context.Context, userID int64, mobileNumber string) (isNew bool, err error) {
	err = tracing.WithSpan(ctx, s.tracer, SpanGetOrCreate, func(ctx context.Context, span *tracing.Span) error {
		span.SetAttributes(
			attribute.String("db.table", TableName),
			attribute.Int64("db.user_id", userID),
			attribute.String("mobile.number", mobileNumber),
			attribute.String("db.operation", "SELECT_OR_INSERT"),
		)
		timer := monitoring.NewTimer(s.metrics, "get_or_create")

		rec := storage.Record{
			UserID:       userID,
			MobileNumber: mobileNumber,
			CreatedAt:    s.now().UTC(),
		}
		err := s.call(ctx, func(ctx context.Context) error {
			var err error
			_, isNew, err = s.backend.PutIfAbsent(ctx, rec)
			return err
		})
		if err != nil {
			timer.Stop("ERROR")
			return s.fail(ctx, "get or create", userID, err)
		}

		result := "EXISTS"
		if isNew {
			result = "INSERTED"
			s.logger.WithSpan(ctx).Info("user created", zap.Int64("user_id", userID))
		}
		span.SetAttributes(attribute.String("db.result", result))
		span.SetStatus(codes.Ok, "")
		timer.Stop(result)
		return nil
	})

	return isNew && err == nil, err
}

// Ping checks the backend
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Close closes the backend
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.breaker == nil {
		return fn(ctx)
	}
	return s.breaker.Do(ctx, fn)
}

// fail classifies err. Cancellation and deadlines stay what they are so the
// RPC layer can report them; everything else is ErrStoreUnavailable.
func (s *Store) fail(ctx context.Context, op string, userID int64, err error) error {
	log := s.logger.WithSpan(ctx)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Debug("store call abandoned", zap.String("op", op), zap.Int64("user_id", userID), zap.Error(err))
		return fmt.Errorf("%s user %d: %w", op, userID, err)
	}

	log.Error("store call failed", zap.String("op", op), zap.Int64("user_id", userID), zap.Error(err))
	return fmt.Errorf("%s user %d: %w: %w", op, userID, ErrStoreUnavailable, err)
}
