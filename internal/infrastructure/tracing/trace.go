package tracing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/usertrace/internal/shared/id"
)

// ErrTracerStopped is returned by ForceFlush after Shutdown
var ErrTracerStopped = errors.New("tracer is shut down")

// Default pipeline settings
const (
	DefaultQueueSize     = 2048
	DefaultBatchSize     = 512
	DefaultFlushInterval = 500 * time.Millisecond
	DefaultExportTimeout = 2 * time.Second
)

// Tracer creates spans and forwards finished ones to an Exporter through a
// bounded queue. Tracing failures are logged and never reach callers.
type Tracer struct {
	service string
	logger  *zap.Logger
	ids     *id.Generator
	now     func() time.Time
	sampled bool

	exporter      Exporter
	syncExport    bool
	batchSize     int
	flushInterval time.Duration
	exportTimeout time.Duration

	spans    chan SpanData
	flushReq chan chan struct{}
	stop     chan struct{}
	wg       sync.WaitGroup

	mu       sync.RWMutex
	stopped  bool
	stopOnce sync.Once

	exported atomic.Uint64
	dropped  atomic.Uint64
	failed   atomic.Uint64
}

// Option configures a Tracer
type Option func(*Tracer)

// WithExporter sets the span exporter (default: discard)
func WithExporter(e Exporter) Option {
	return func(t *Tracer) {
		t.exporter = e
	}
}

// WithQueueSize bounds the number of finished spans waiting for export
func WithQueueSize(n int) Option {
	return func(t *Tracer) {
		if n > 0 {
			t.spans = make(chan SpanData, n)
		}
	}
}

// WithBatchSize sets the maximum spans per export call
func WithBatchSize(n int) Option {
	return func(t *Tracer) {
		if n > 0 {
			t.batchSize = n
		}
	}
}

// WithFlushInterval sets how long a partial batch may wait
func WithFlushInterval(d time.Duration) Option {
	return func(t *Tracer) {
		if d > 0 {
			t.flushInterval = d
		}
	}
}

// WithExportTimeout bounds a single export call
func WithExportTimeout(d time.Duration) Option {
	return func(t *Tracer) {
		if d > 0 {
			t.exportTimeout = d
		}
	}
}

// WithSampled sets the sampling decision for new root traces
func WithSampled(sampled bool) Option {
	return func(t *Tracer) {
		t.sampled = sampled
	}
}

// WithSyncExport exports each span from End without queueing. Meant for tests.
func WithSyncExport() Option {
	return func(t *Tracer) {
		t.syncExport = true
	}
}

// WithIDGenerator replaces the identifier source
func WithIDGenerator(g *id.Generator) Option {
	return func(t *Tracer) {
		t.ids = g
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(t *Tracer) {
		t.now = now
	}
}

// New creates a tracer for service and starts its export loop
func New(service string, logger *zap.Logger, opts ...Option) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracer{
		service:       service,
		logger:        logger,
		ids:           id.Default(),
		now:           time.Now,
		sampled:       true,
		exporter:      discardExporter{},
		batchSize:     DefaultBatchSize,
		flushInterval: DefaultFlushInterval,
		exportTimeout: DefaultExportTimeout,
		spans:         make(chan SpanData, DefaultQueueSize),
		flushReq:      make(chan chan struct{}),
		stop:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	if !t.syncExport {
		t.wg.Add(1)
		go t.collectSpans()
	}

	return t
}

// NewNoop returns a tracer that creates and propagates spans but exports
// nothing
func NewNoop() *Tracer {
	return New("noop", zap.NewNop(), WithSyncExport(), WithSampled(false))
}

// Service returns the service name stamped on exported spans
func (t *Tracer) Service() string {
	return t.service
}

// SpanOption configures a span at start
type SpanOption func(*spanConfig)

type spanConfig struct {
	kind    oteltrace.SpanKind
	attrs   []attribute.KeyValue
	newRoot bool
}

// WithSpanKind sets the span kind (default internal)
func WithSpanKind(kind oteltrace.SpanKind) SpanOption {
	return func(c *spanConfig) {
		c.kind = kind
	}
}

// WithAttributes sets initial attributes
func WithAttributes(kv ...attribute.KeyValue) SpanOption {
	return func(c *spanConfig) {
		c.attrs = append(c.attrs, kv...)
	}
}

// WithNewRoot ignores any parent found in the context
func WithNewRoot() SpanOption {
	return func(c *spanConfig) {
		c.newRoot = true
	}
}

// StartSpan creates a span as a child of the span (or remote parent) in ctx,
// or as a new root when there is none. The returned context carries the new
// span as current; callers must End the span.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (*Span, context.Context) {
	cfg := spanConfig{kind: oteltrace.SpanKindInternal}
	for _, opt := range opts {
		opt(&cfg)
	}

	var parent SpanContext
	if !cfg.newRoot {
		parent = SpanContextFromContext(ctx)
	}

	sc := SpanContext{SpanID: SpanID(t.ids.SpanID())}
	if parent.IsValid() {
		sc.TraceID = parent.TraceID
		sc.Flags = parent.Flags
	} else {
		parent = SpanContext{}
		sc.TraceID = TraceID(t.ids.TraceID())
		if t.sampled {
			sc.Flags = FlagsSampled
		}
	}

	span := &Span{
		tracer: t,
		name:   name,
		kind:   cfg.kind,
		sc:     sc,
		parent: parent,
		start:  t.now(),
		attrs:  make(map[attribute.Key]attribute.Value, len(cfg.attrs)),
	}
	for _, a := range cfg.attrs {
		if a.Valid() {
			span.attrs[a.Key] = a.Value
		}
	}

	return span, ContextWithSpan(ctx, span)
}

// Submit hands a finished span to the export pipeline. Unsampled spans are
// discarded; a full queue drops the span with a warning.
func (t *Tracer) Submit(span SpanData) {
	if !span.Context.IsSampled() {
		return
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.stopped {
		t.dropped.Add(1)
		return
	}

	if t.syncExport {
		t.export([]SpanData{span})
		return
	}

	select {
	case t.spans <- span:
	default:
		t.dropped.Add(1)
		t.logger.Warn("span buffer full, dropping span",
			zap.String("trace_id", span.Context.TraceID.String()),
			zap.String("span_id", span.Context.SpanID.String()),
		)
	}
}

// collectSpans batches queued spans and exports them
func (t *Tracer) collectSpans() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.flushInterval)
	defer ticker.Stop()

	batch := make([]SpanData, 0, t.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		t.export(batch)
		batch = make([]SpanData, 0, t.batchSize)
	}
	drain := func() {
		for {
			select {
			case span := <-t.spans:
				batch = append(batch, span)
				if len(batch) >= t.batchSize {
					flush()
				}
			default:
				return
			}
		}
	}

	for {
		select {
		case span := <-t.spans:
			batch = append(batch, span)
			if len(batch) >= t.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case ack := <-t.flushReq:
			drain()
			flush()
			close(ack)
		case <-t.stop:
			drain()
			flush()
			return
		}
	}
}

// export calls the exporter; failures and panics are logged, not returned
func (t *Tracer) export(batch []SpanData) {
	ctx, cancel := context.WithTimeout(context.Background(), t.exportTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			t.failed.Add(uint64(len(batch)))
			t.logger.Error("span exporter panicked", zap.Any("panic", r), zap.Int("spans", len(batch)))
		}
	}()

	if err := t.exporter.ExportSpans(ctx, batch); err != nil {
		t.failed.Add(uint64(len(batch)))
		t.logger.Warn("failed to export spans", zap.Error(err), zap.Int("spans", len(batch)))
		return
	}
	t.exported.Add(uint64(len(batch)))
}

// ForceFlush exports every span submitted before the call
func (t *Tracer) ForceFlush(ctx context.Context) error {
	t.mu.RLock()
	stopped := t.stopped
	t.mu.RUnlock()

	if stopped {
		return ErrTracerStopped
	}
	if t.syncExport {
		return nil
	}

	ack := make(chan struct{})
	select {
	case t.flushReq <- ack:
	case <-t.stop:
		return ErrTracerStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown exports queued spans and shuts the exporter down. Only the first
// call has any effect.
func (t *Tracer) Shutdown(ctx context.Context) error {
	var err error
	t.stopOnce.Do(func() {
		t.mu.Lock()
		t.stopped = true
		t.mu.Unlock()
		close(t.stop)

		done := make(chan struct{})
		go func() {
			t.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("waiting for span export: %w", ctx.Err())
			return
		}

		if shutdownErr := t.exporter.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("shutting down exporter: %w", shutdownErr)
		}
	})
	return err
}

// Stats is a point-in-time view of the export pipeline
type Stats struct {
	Exported uint64
	Dropped  uint64
	Failed   uint64
	Queued   int
}

// Stats returns export counters
func (t *Tracer) Stats() Stats {
	return Stats{
		Exported: t.exported.Load(),
		Dropped:  t.dropped.Load(),
		Failed:   t.failed.Load(),
		Queued:   len(t.spans),
	}
}
