package tracing

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Provider owns the process tracer. The tracer is built on first use and
// shut down at most once; components receive the Tracer explicitly instead
// of reaching for a global.
type Provider struct {
	service  string
	logger   *zap.Logger
	exporter Exporter
	opts     []Option

	initOnce     sync.Once
	shutdownOnce sync.Once
	tracer       *Tracer
	shutdownErr  error
}

// NewProvider prepares a provider; nothing starts until Tracer is called
func NewProvider(service string, logger *zap.Logger, exporter Exporter, opts ...Option) *Provider {
	return &Provider{
		service:  service,
		logger:   logger,
		exporter: exporter,
		opts:     opts,
	}
}

// Tracer returns the process tracer, creating it on the first call
func (p *Provider) Tracer() *Tracer {
	p.initOnce.Do(func() {
		opts := append([]Option{WithExporter(p.exporter)}, p.opts...)
		p.tracer = New(p.service, p.logger, opts...)
	})
	return p.tracer
}

// ForceFlush exports all spans ended so far
func (p *Provider) ForceFlush(ctx context.Context) error {
	return p.Tracer().ForceFlush(ctx)
}

// Shutdown flushes and stops the tracer. Later calls return the first
// result.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		p.shutdownErr = p.Tracer().Shutdown(ctx)
	})
	return p.shutdownErr
}
