package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	userdomain "github.com/GriffinCanCode/usertrace/internal/domain/user"
	usergrpc "github.com/GriffinCanCode/usertrace/internal/grpc/user"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/config"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/logging"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/ratelimit"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/storage"
	"github.com/GriffinCanCode/usertrace/internal/infrastructure/tracing"
)

// ServiceName is the service.name reported by the server's spans
const ServiceName = "grpc-server-instrumentation"

// Server wraps the gRPC user service, the admin HTTP server and their
// dependencies
type Server struct {
	config   *config.Config
	logger   *logging.Logger
	provider *tracing.Provider
	metrics  *monitoring.Metrics
	store    *userdomain.Store
	grpc     *grpc.Server
	admin    *http.Server

	closeOnce sync.Once
	closeErr  error
}

// New wires the server from cfg. Nothing listens until Run or Serve.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing user service",
		zap.String("grpc_addr", cfg.Server.Address),
		zap.String("admin_addr", cfg.Server.AdminAddress),
		zap.String("store", cfg.Store.Kind),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)

	provider, err := tracing.NewProviderFromConfig(ctx, cfg.Tracing, ServiceName, logger.Logger, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	tracer := provider.Tracer()
	metrics.TrackTracer(tracer)

	backend, err := storage.Open(cfg.Store)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Kind, err)
	}

	store := userdomain.NewStore(backend, tracer, logger).
		WithBreaker(userdomain.NewBreaker(cfg.Store.BreakerMaxFail, cfg.Store.BreakerTimeout, logger)).
		WithMetrics(metrics)

	if err := seed(ctx, store, cfg.Store.Seed); err != nil {
		_ = store.Close()
		_ = provider.Shutdown(ctx)
		return nil, err
	}

	interceptors := []grpc.UnaryServerInterceptor{tracing.GRPCUnaryInterceptor(logger.Logger, metrics)}
	var adminMiddleware []gin.HandlerFunc
	if limits := (ratelimit.Config{RequestsPerSecond: cfg.Server.RateLimitRPS, Burst: cfg.Server.RateLimitBurst}); limits.Enabled() {
		logger.Info("Rate limiting enabled",
			zap.Float64("rps", limits.RequestsPerSecond),
			zap.Int("burst", limits.Burst),
		)
		limiter := ratelimit.New(limits)
		interceptors = append(interceptors, limiter.UnaryServerInterceptor())
		adminMiddleware = append(adminMiddleware, limiter.Middleware())
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(interceptors...),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             30 * time.Second,
			PermitWithoutStream: false,
		}),
	)
	usergrpc.RegisterUserServiceServer(grpcServer,
		usergrpc.NewServer(store, tracer, logger, cfg.Server.RequestTimeout))

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := monitoring.Router(metrics, registry, map[string]monitoring.HealthCheck{
		"store": store.Ping,
	}, adminMiddleware...)

	logger.Info("User service initialized successfully")

	return &Server{
		config:   cfg,
		logger:   logger,
		provider: provider,
		metrics:  metrics,
		store:    store,
		grpc:     grpcServer,
		admin: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

func seed(ctx context.Context, store *userdomain.Store, spec string) error {
	entries, err := config.ParseSeed(spec)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	users := make([]userdomain.User, 0, len(entries))
	for _, e := range entries {
		users = append(users, userdomain.User{ID: e.UserID, MobileNumber: e.MobileNumber})
	}
	if err := store.Seed(ctx, users...); err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	return nil
}

// Run listens on the configured addresses and serves until ctx is done or
// a listener fails
func (s *Server) Run(ctx context.Context) error {
	grpcLis, err := net.Listen("tcp", s.config.Server.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.Address, err)
	}

	adminLis, err := net.Listen("tcp", s.config.Server.AdminAddress)
	if err != nil {
		grpcLis.Close()
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.AdminAddress, err)
	}

	return s.Serve(ctx, grpcLis, adminLis)
}

// Serve serves gRPC on grpcLis and the admin API on adminLis. A nil
// adminLis disables the admin API.
func (s *Server) Serve(ctx context.Context, grpcLis, adminLis net.Listener) error {
	errCh := make(chan error, 2)

	go func() {
		s.logger.Info("Starting gRPC server", zap.String("addr", grpcLis.Addr().String()))
		if err := s.grpc.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	if adminLis != nil {
		go func() {
			s.logger.Info("Starting admin server", zap.String("addr", adminLis.Addr().String()))
			if err := s.admin.Serve(adminLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("admin server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops accepting calls, waits for in-flight ones up to ctx's
// deadline, flushes spans and closes the store. Later calls return the
// first result.
func (s *Server) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closeErr = s.close(ctx)
	})
	return s.closeErr
}

func (s *Server) close(ctx context.Context) error {
	s.logger.Info("Shutting down user service...")
	var errs []error

	stopped := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.logger.Warn("Graceful stop timed out, closing connections")
		s.grpc.Stop()
		<-stopped
	}

	if err := s.admin.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop admin server: %w", err))
	}

	if err := s.provider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush spans: %w", err))
	} else {
		s.logger.Info("Server spans flushed")
	}

	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}

	for _, err := range errs {
		s.logger.Error("Shutdown error", zap.Error(err))
	}
	_ = s.logger.Sync()

	return errors.Join(errs...)
}

// Tracer returns the server's tracer
func (s *Server) Tracer() *tracing.Tracer {
	return s.provider.Tracer()
}
